package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single validation error or warning attached to one row and
// column. Immutable once produced.
type Finding struct {
	Row      int      `json:"row"`
	Column   string   `json:"column"`
	Value    any      `json:"value,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// NewError builds an error-severity finding.
func NewError(row int, column string, value any, message string) Finding {
	return Finding{Row: row, Column: column, Value: value, Message: message, Severity: SeverityError}
}

// NewWarning builds a warning-severity finding.
func NewWarning(row int, column string, value any, message string) Finding {
	return Finding{Row: row, Column: column, Value: value, Message: message, Severity: SeverityWarning}
}

func (f Finding) String() string {
	return fmt.Sprintf("row %d %s: %s", f.Row, f.Column, f.Message)
}

// ScalarString renders a scalar record value for display and serialization.
func ScalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}
