package importer

import (
	"strings"

	"github.com/rpattn/rosterflow/internal/domain"
)

// Canonical field names used across all import sources.
const (
	FieldName             = "name"
	FieldType             = "type"
	FieldEmail            = "email"
	FieldPGYLevel         = "pgyLevel"
	FieldPersonName       = "personName"
	FieldPersonID         = "personId"
	FieldDate             = "date"
	FieldTimeOfDay        = "timeOfDay"
	FieldRole             = "role"
	FieldStartDate        = "startDate"
	FieldEndDate          = "endDate"
	FieldAbsenceType      = "absenceType"
	FieldTDYLocation      = "tdyLocation"
	FieldRotationName     = "rotationName"
	FieldRotationTemplate = "rotationTemplateId"
	FieldActivityOverride = "activityOverride"
	FieldNotes            = "notes"
)

// columnAliases maps collapsed header spellings (lowercased, separators
// stripped) to canonical field names. Snake_case, camelCase and spaced
// variants of the canonical name itself collapse to the same key, so only
// genuine synonyms need extra entries.
var columnAliases = map[string]string{
	"name":     FieldName,
	"fullname": FieldName,

	"type":       FieldType,
	"persontype": FieldType,
	"category":   FieldType,

	"email":        FieldEmail,
	"emailaddress": FieldEmail,
	"mail":         FieldEmail,

	"pgylevel": FieldPGYLevel,
	"pgy":      FieldPGYLevel,
	"level":    FieldPGYLevel,

	"personname":   FieldPersonName,
	"person":       FieldPersonName,
	"residentname": FieldPersonName,
	"provider":     FieldPersonName,
	"staffname":    FieldPersonName,

	"personid":   FieldPersonID,
	"residentid": FieldPersonID,
	"staffid":    FieldPersonID,

	"date":         FieldDate,
	"shiftdate":    FieldDate,
	"scheduledate": FieldDate,

	"timeofday": FieldTimeOfDay,
	"shift":     FieldTimeOfDay,
	"session":   FieldTimeOfDay,
	"ampm":      FieldTimeOfDay,

	"role":           FieldRole,
	"assignmentrole": FieldRole,
	"position":       FieldRole,

	"startdate": FieldStartDate,
	"start":     FieldStartDate,
	"from":      FieldStartDate,
	"begindate": FieldStartDate,

	"enddate": FieldEndDate,
	"end":     FieldEndDate,
	"to":      FieldEndDate,
	"until":   FieldEndDate,

	"absencetype": FieldAbsenceType,
	"leavetype":   FieldAbsenceType,
	"reason":      FieldAbsenceType,

	"tdylocation": FieldTDYLocation,
	"location":    FieldTDYLocation,

	"rotationname": FieldRotationName,
	"rotation":     FieldRotationName,

	"rotationtemplateid": FieldRotationTemplate,
	"rotationtemplate":   FieldRotationTemplate,
	"templateid":         FieldRotationTemplate,

	"activityoverride": FieldActivityOverride,
	"activity":         FieldActivityOverride,
	"override":         FieldActivityOverride,

	"notes":   FieldNotes,
	"comment": FieldNotes,
	"remarks": FieldNotes,
}

// CanonicalColumn resolves one raw header to its canonical field name.
// Matching is case and separator insensitive; unmapped headers pass through
// unchanged.
func CanonicalColumn(raw string) string {
	if canonical, ok := columnAliases[collapseKey(raw)]; ok {
		return canonical
	}
	return strings.TrimSpace(raw)
}

// NormalizeColumns rewrites every record's keys to canonical field names.
// Pure: input records are not mutated.
func NormalizeColumns(records []domain.Record) []domain.Record {
	normalized := make([]domain.Record, len(records))
	for i, record := range records {
		out := make(domain.Record, len(record))
		for key, value := range record {
			out[CanonicalColumn(key)] = value
		}
		normalized[i] = out
	}
	return normalized
}

// NormalizeColumnNames maps a header list to canonical names, preserving
// order and dropping duplicates introduced by alias collapsing.
func NormalizeColumnNames(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, 0, len(columns))
	for _, column := range columns {
		canonical := CanonicalColumn(column)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}

func collapseKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch r {
		case '_', '-', ' ', '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
