package domain

// Phase tracks where an import run is in its lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseParsing    Phase = "parsing"
	PhaseValidating Phase = "validating"
	PhaseImporting  Phase = "importing"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

// Progress is the mutable state of one in-flight import run. It is owned by
// exactly one run and mutated only by that run; observers receive copies.
type Progress struct {
	Status        Phase     `json:"status"`
	CurrentRow    int       `json:"currentRow"`
	TotalRows     int       `json:"totalRows"`
	ProcessedRows int       `json:"processedRows"`
	SuccessCount  int       `json:"successCount"`
	ErrorCount    int       `json:"errorCount"`
	WarningCount  int       `json:"warningCount"`
	Message       string    `json:"message"`
	Errors        []Finding `json:"errors,omitempty"`
}

// Snapshot returns a copy safe to hand to observers while the run keeps
// mutating its own state.
func (p Progress) Snapshot() Progress {
	copied := p
	copied.Errors = append([]Finding(nil), p.Errors...)
	return copied
}
