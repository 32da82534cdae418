package importer

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rpattn/rosterflow/internal/domain"
)

// DetectFormat classifies an upload as CSV, JSON or spreadsheet. The
// filename extension wins, then the declared content type, then a byte
// sniff of the payload. Unknown inputs default to CSV. Total, never errors.
func DetectFormat(fileName, contentType string, payload []byte) domain.FileFormat {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return domain.FormatCSV
	case ".json":
		return domain.FormatJSON
	case ".xlsx", ".xls", ".xlsm", ".ods":
		return domain.FormatSpreadsheet
	}

	if format, ok := formatFromContentType(contentType); ok {
		return format
	}

	if len(payload) > 0 {
		if format, ok := formatFromContentType(mimetype.Detect(payload).String()); ok {
			return format
		}
	}

	return domain.FormatCSV
}

func formatFromContentType(contentType string) (domain.FileFormat, bool) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	switch contentType {
	case "text/csv", "application/csv":
		return domain.FormatCSV, true
	case "application/json", "text/json":
		return domain.FormatJSON, true
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"application/vnd.oasis.opendocument.spreadsheet",
		"application/zip":
		return domain.FormatSpreadsheet, true
	}
	return "", false
}
