package spreadsheet

import (
	"errors"
	"fmt"
)

// Table is the row/column extraction of one worksheet. Values are raw cell
// strings; typing happens downstream.
type Table struct {
	Columns      []string
	Rows         [][]string
	Warnings     []string
	UsedFallback bool
}

// Reader extracts tabular content from raw spreadsheet bytes.
type Reader interface {
	Read(data []byte) (Table, error)
}

// Fallback tries a primary reader first and falls back to a secondary local
// reader when the primary is unreachable or errors. Fallback parsing is
// reduced fidelity (no cell metadata), which is surfaced as a warning but
// never blocks the import.
type Fallback struct {
	Primary   Reader
	Secondary Reader
}

func (f Fallback) Read(data []byte) (Table, error) {
	if f.Primary != nil {
		table, err := f.Primary.Read(data)
		if err == nil {
			return table, nil
		}
		if f.Secondary == nil {
			return Table{}, err
		}
		fallbackTable, fallbackErr := f.Secondary.Read(data)
		if fallbackErr != nil {
			return Table{}, errors.Join(err, fallbackErr)
		}
		fallbackTable.UsedFallback = true
		fallbackTable.Warnings = append(fallbackTable.Warnings,
			fmt.Sprintf("primary spreadsheet reader unavailable (%v); used fallback reader with reduced fidelity", err))
		return fallbackTable, nil
	}
	if f.Secondary == nil {
		return Table{}, errors.New("no spreadsheet reader configured")
	}
	return f.Secondary.Read(data)
}
