package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rpattn/rosterflow/internal/domain"
)

// FindDuplicates flags rows that repeat an entity-specific natural key
// earlier in the same file. Always warning severity: within-file duplicates
// are advisory. Empty rows are skipped. rowNumbers must parallel records.
func FindDuplicates(records []domain.Record, rowNumbers []int, dataType domain.DataType) []domain.Finding {
	var findings []domain.Finding
	firstSeen := make(map[string]int)

	for idx, record := range records {
		if record.IsEmpty() {
			continue
		}
		key, column := naturalKey(record, dataType)
		if key == "" {
			continue
		}
		rowNumber := rowNumbers[idx]
		if earlier, ok := firstSeen[key]; ok {
			findings = append(findings, domain.NewWarning(rowNumber, column, record.String(column),
				fmt.Sprintf("duplicate of row %d", earlier)))
			continue
		}
		firstSeen[key] = rowNumber
	}
	return findings
}

func naturalKey(record domain.Record, dataType domain.DataType) (key, column string) {
	switch dataType {
	case domain.DataTypePeople:
		name := strings.ToLower(strings.TrimSpace(record.String(FieldName)))
		if name == "" {
			return "", FieldName
		}
		return name, FieldName
	case domain.DataTypeAssignments, domain.DataTypeSchedules:
		parts := []string{
			strings.TrimSpace(record.String(FieldDate)),
			strings.ToUpper(strings.TrimSpace(record.String(FieldTimeOfDay))),
			personKey(record),
		}
		for _, part := range parts {
			if part == "" {
				return "", FieldDate
			}
		}
		return strings.Join(parts, "|"), FieldDate
	case domain.DataTypeAbsences:
		parts := []string{
			personKey(record),
			strings.TrimSpace(record.String(FieldStartDate)),
			strings.TrimSpace(record.String(FieldEndDate)),
		}
		for _, part := range parts {
			if part == "" {
				return "", FieldStartDate
			}
		}
		return strings.Join(parts, "|"), FieldStartDate
	default:
		return "", ""
	}
}

func personKey(record domain.Record) string {
	if record.Has(FieldPersonName) {
		return strings.ToLower(strings.TrimSpace(record.String(FieldPersonName)))
	}
	return strings.ToLower(strings.TrimSpace(record.String(FieldPersonID)))
}

type dateRange struct {
	rowNumber int
	start     time.Time
	end       time.Time
}

// FindOverlaps flags absence rows whose date ranges overlap an earlier row
// for the same person. Quadratic per person; absence counts per person are
// small. Rows with unparseable dates are ignored here; the row validator
// already reports those.
func FindOverlaps(records []domain.Record, rowNumbers []int, dataType domain.DataType) []domain.Finding {
	if dataType != domain.DataTypeAbsences {
		return nil
	}

	byPerson := make(map[string][]dateRange)
	for idx, record := range records {
		if record.IsEmpty() {
			continue
		}
		person := personKey(record)
		if person == "" {
			continue
		}
		start, startErr := ParseDate(record.String(FieldStartDate))
		end, endErr := ParseDate(record.String(FieldEndDate))
		if startErr != nil || endErr != nil {
			continue
		}
		byPerson[person] = append(byPerson[person], dateRange{rowNumber: rowNumbers[idx], start: start, end: end})
	}

	var findings []domain.Finding
	for _, ranges := range byPerson {
		for i := 0; i < len(ranges); i++ {
			for j := i + 1; j < len(ranges); j++ {
				a, b := ranges[i], ranges[j]
				if !a.start.After(b.end) && !b.start.After(a.end) {
					later, earlier := b, a
					if earlier.rowNumber > later.rowNumber {
						later, earlier = a, b
					}
					findings = append(findings, domain.NewWarning(later.rowNumber, FieldStartDate, nil,
						fmt.Sprintf("absence overlaps row %d", earlier.rowNumber)))
				}
			}
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Row < findings[j].Row })
	return findings
}
