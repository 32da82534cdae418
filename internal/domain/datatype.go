package domain

import (
	"fmt"
	"strings"
)

// DataType identifies which of the four entity shapes a file carries.
type DataType string

const (
	DataTypePeople      DataType = "people"
	DataTypeAssignments DataType = "assignments"
	DataTypeAbsences    DataType = "absences"
	DataTypeSchedules   DataType = "schedules"
)

// ParseDataType resolves a caller-supplied type name.
func ParseDataType(raw string) (DataType, error) {
	switch DataType(strings.ToLower(strings.TrimSpace(raw))) {
	case DataTypePeople:
		return DataTypePeople, nil
	case DataTypeAssignments:
		return DataTypeAssignments, nil
	case DataTypeAbsences:
		return DataTypeAbsences, nil
	case DataTypeSchedules:
		return DataTypeSchedules, nil
	default:
		return "", fmt.Errorf("unknown data type %q", raw)
	}
}

// FileFormat classifies the physical shape of an uploaded file.
type FileFormat string

const (
	FormatCSV         FileFormat = "csv"
	FormatJSON        FileFormat = "json"
	FormatSpreadsheet FileFormat = "spreadsheet"
)

// TypeSelection is the tagged union behind data-type detection: either the
// caller pinned a type, or the classifier decides from the column set.
// Manual always wins.
type TypeSelection struct {
	manual *DataType
}

// AutoType lets the classifier pick the entity shape.
func AutoType() TypeSelection {
	return TypeSelection{}
}

// ManualType pins the entity shape, bypassing classification.
func ManualType(dt DataType) TypeSelection {
	return TypeSelection{manual: &dt}
}

// Manual returns the pinned type and whether one was pinned.
func (s TypeSelection) Manual() (DataType, bool) {
	if s.manual == nil {
		return "", false
	}
	return *s.manual, true
}
