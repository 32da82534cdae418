package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/rosterflow/internal/domain"
)

// RowValidator validates one normalized record against its entity rules.
// rowNumber is 1-based and header-row-adjusted. Pure functions; findings are
// data, not errors.
type RowValidator func(record domain.Record, rowNumber int) []domain.Finding

// rowValidators is the per-entity dispatch table.
var rowValidators = map[domain.DataType]RowValidator{
	domain.DataTypePeople:      validatePersonRow,
	domain.DataTypeAssignments: validateAssignmentRow,
	domain.DataTypeAbsences:    validateAbsenceRow,
	domain.DataTypeSchedules:   validateScheduleRow,
}

// ValidatorFor returns the row validator for a data type.
func ValidatorFor(dataType domain.DataType) RowValidator {
	return rowValidators[dataType]
}

var (
	personTypes = []string{"resident", "faculty"}
	timesOfDay  = []string{"AM", "PM"}
	roles       = []string{"primary", "supervising", "backup"}

	absenceTypes = []string{
		"vacation", "sick", "personal", "conference", "tdy",
		"deployment", "medical", "parental", "bereavement", "jury_duty",
		"interview", "administrative", "educational", "emergency",
	}

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	dateLayouts = []string{
		"2006-01-02",
		"01/02/2006",
		"01-02-2006",
		"02.01.2006",
	}
)

func validatePersonRow(record domain.Record, rowNumber int) []domain.Finding {
	var findings []domain.Finding

	name := record.String(FieldName)
	if !record.Has(FieldName) {
		findings = append(findings, domain.NewError(rowNumber, FieldName, nil, "name is required"))
	} else if len(strings.TrimSpace(name)) < 2 {
		findings = append(findings, domain.NewError(rowNumber, FieldName, name, "name must be at least 2 characters"))
	}

	findings = append(findings, checkEnum(record, rowNumber, FieldType, personTypes, true)...)

	if record.Has(FieldEmail) {
		email := record.String(FieldEmail)
		if !emailPattern.MatchString(email) {
			findings = append(findings, domain.NewError(rowNumber, FieldEmail, email, "invalid email address"))
		}
	}

	if strings.EqualFold(record.String(FieldType), "resident") {
		findings = append(findings, checkNumericRange(record, rowNumber, FieldPGYLevel, 1, 8, true)...)
	}

	return findings
}

func validateAssignmentRow(record domain.Record, rowNumber int) []domain.Finding {
	var findings []domain.Finding

	findings = append(findings, checkPersonReference(record, rowNumber)...)
	findings = append(findings, checkDate(record, rowNumber, FieldDate, true)...)
	findings = append(findings, checkEnum(record, rowNumber, FieldTimeOfDay, timesOfDay, true)...)
	findings = append(findings, checkEnum(record, rowNumber, FieldRole, roles, true)...)

	if date, err := ParseDate(record.String(FieldDate)); err == nil {
		if date.Before(today()) {
			findings = append(findings, domain.NewWarning(rowNumber, FieldDate, record.String(FieldDate),
				"assignment date is in the past"))
		}
	}

	return findings
}

func validateAbsenceRow(record domain.Record, rowNumber int) []domain.Finding {
	var findings []domain.Finding

	findings = append(findings, checkPersonReference(record, rowNumber)...)
	findings = append(findings, checkDate(record, rowNumber, FieldStartDate, true)...)
	findings = append(findings, checkDate(record, rowNumber, FieldEndDate, true)...)
	findings = append(findings, checkEnum(record, rowNumber, FieldAbsenceType, absenceTypes, true)...)

	start, startErr := ParseDate(record.String(FieldStartDate))
	end, endErr := ParseDate(record.String(FieldEndDate))
	if startErr == nil && endErr == nil && end.Before(start) {
		findings = append(findings, domain.NewError(rowNumber, FieldEndDate, record.String(FieldEndDate),
			"end date is before start date"))
	}

	if strings.EqualFold(record.String(FieldAbsenceType), "tdy") && !record.Has(FieldTDYLocation) {
		findings = append(findings, domain.NewWarning(rowNumber, FieldTDYLocation, nil,
			"TDY absence has no location"))
	}

	return findings
}

func validateScheduleRow(record domain.Record, rowNumber int) []domain.Finding {
	var findings []domain.Finding

	findings = append(findings, checkPersonReference(record, rowNumber)...)
	findings = append(findings, checkDate(record, rowNumber, FieldDate, true)...)
	findings = append(findings, checkEnum(record, rowNumber, FieldTimeOfDay, timesOfDay, true)...)
	if !record.Has(FieldRole) {
		findings = append(findings, domain.NewError(rowNumber, FieldRole, nil, "role is required"))
	}

	if !record.Has(FieldRotationName) && !record.Has(FieldRotationTemplate) && !record.Has(FieldActivityOverride) {
		findings = append(findings, domain.NewWarning(rowNumber, FieldRotationName, nil,
			"schedule row has no rotation or activity"))
	}

	return findings
}

// checkPersonReference requires one of personName or personId.
func checkPersonReference(record domain.Record, rowNumber int) []domain.Finding {
	if record.Has(FieldPersonName) || record.Has(FieldPersonID) {
		return nil
	}
	return []domain.Finding{domain.NewError(rowNumber, FieldPersonName, nil, "personName or personId is required")}
}

// checkEnum verifies membership (case-insensitive) in allowed, optionally
// requiring presence.
func checkEnum(record domain.Record, rowNumber int, column string, allowed []string, required bool) []domain.Finding {
	if !record.Has(column) {
		if required {
			return []domain.Finding{domain.NewError(rowNumber, column, nil, fmt.Sprintf("%s is required", column))}
		}
		return nil
	}
	value := record.String(column)
	for _, candidate := range allowed {
		if strings.EqualFold(value, candidate) {
			return nil
		}
	}
	return []domain.Finding{domain.NewError(rowNumber, column, value,
		fmt.Sprintf("%s must be one of %s", column, strings.Join(allowed, ", ")))}
}

// checkDate verifies the field parses in one of the accepted layouts.
func checkDate(record domain.Record, rowNumber int, column string, required bool) []domain.Finding {
	if !record.Has(column) {
		if required {
			return []domain.Finding{domain.NewError(rowNumber, column, nil, fmt.Sprintf("%s is required", column))}
		}
		return nil
	}
	value := record.String(column)
	if _, err := ParseDate(value); err != nil {
		return []domain.Finding{domain.NewError(rowNumber, column, value,
			fmt.Sprintf("%s is not a recognized date", column))}
	}
	return nil
}

// checkNumericRange verifies the field is a number within [min, max].
func checkNumericRange(record domain.Record, rowNumber int, column string, min, max float64, required bool) []domain.Finding {
	if !record.Has(column) {
		if required {
			return []domain.Finding{domain.NewError(rowNumber, column, nil, fmt.Sprintf("%s is required", column))}
		}
		return nil
	}
	raw := record.String(column)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return []domain.Finding{domain.NewError(rowNumber, column, raw, fmt.Sprintf("%s must be a number", column))}
	}
	if value < min || value > max {
		return []domain.Finding{domain.NewError(rowNumber, column, raw,
			fmt.Sprintf("%s must be between %g and %g", column, min, max))}
	}
	return nil
}

// ParseDate accepts ISO dates plus the US slash/dash and European dot
// layouts seen in uploaded files.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// today is stubbed in tests to keep past-date warnings deterministic.
var today = func() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
