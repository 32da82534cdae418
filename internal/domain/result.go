package domain

// Options is caller-supplied import configuration, constant for one run.
// SkipInvalidRows keeps its historical meaning: when true, warning rows are
// committable alongside valid rows.
type Options struct {
	SkipDuplicates  bool   `json:"skipDuplicates"`
	UpdateExisting  bool   `json:"updateExisting"`
	SkipInvalidRows bool   `json:"skipInvalidRows"`
	DateFormat      string `json:"dateFormat,omitempty"`
	TrimWhitespace  bool   `json:"trimWhitespace"`
}

// Result is the terminal record of one commit run. ImportedIDs is the
// authoritative list of what actually reached the store; a cancelled or
// partially failed run still reports everything committed before it stopped.
type Result struct {
	Success        bool      `json:"success"`
	TotalProcessed int       `json:"totalProcessed"`
	SuccessCount   int       `json:"successCount"`
	ErrorCount     int       `json:"errorCount"`
	SkippedCount   int       `json:"skippedCount"`
	Errors         []Finding `json:"errors,omitempty"`
	ImportedIDs    []string  `json:"importedIds,omitempty"`
}

// BatchResult is what a bulk-write collaborator reports for one batch.
type BatchResult struct {
	SuccessCount int       `json:"successCount"`
	ErrorCount   int       `json:"errorCount"`
	Errors       []Finding `json:"errors,omitempty"`
	ImportedIDs  []string  `json:"importedIds,omitempty"`
}
