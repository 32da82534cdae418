package importer

import (
	"strings"

	"github.com/rpattn/rosterflow/internal/domain"
)

// ClassifyColumns infers which entity shape a canonical column set
// represents. The check order is load-bearing: the people check runs first
// but is guarded against date/timeOfDay columns, because loose matching
// would otherwise let a personName column satisfy the name requirement and
// misclassify schedule data as people data.
func ClassifyColumns(columns []string) domain.DataType {
	switch {
	case looseMatch(columns, FieldName, FieldType) &&
		!anyColumnContains(columns, FieldDate) && !anyColumnContains(columns, FieldTimeOfDay):
		return domain.DataTypePeople
	case looseMatch(columns, FieldStartDate, FieldEndDate, FieldAbsenceType):
		return domain.DataTypeAbsences
	case looseMatch(columns, FieldDate, FieldTimeOfDay, FieldPersonName, FieldRole):
		return domain.DataTypeSchedules
	case looseMatch(columns, FieldDate, FieldTimeOfDay, FieldRole):
		return domain.DataTypeAssignments
	default:
		return domain.DataTypePeople
	}
}

// ResolveDataType honors a manual selection when present and classifies
// otherwise.
func ResolveDataType(selection domain.TypeSelection, columns []string) domain.DataType {
	if manual, ok := selection.Manual(); ok {
		return manual
	}
	return ClassifyColumns(columns)
}

// looseMatch requires, for every token, some column that contains the token
// or is contained by it (case-insensitive).
func looseMatch(columns []string, tokens ...string) bool {
	for _, token := range tokens {
		token = strings.ToLower(token)
		found := false
		for _, column := range columns {
			column = strings.ToLower(strings.TrimSpace(column))
			if column == "" {
				continue
			}
			if strings.Contains(column, token) || strings.Contains(token, column) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// anyColumnContains reports whether any column contains the token,
// case-insensitively. The people guard needs substring matching so that
// startDate or endDate columns also veto the people classification.
func anyColumnContains(columns []string, token string) bool {
	token = strings.ToLower(token)
	for _, column := range columns {
		if strings.Contains(strings.ToLower(column), token) {
			return true
		}
	}
	return false
}
