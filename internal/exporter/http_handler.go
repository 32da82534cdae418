package exporter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/rosterflow/internal/domain"
)

// Handler renders exports and streams them back as downloads.
type Handler struct {
	log *logrus.Logger
}

// NewHTTPHandler wraps the exporter with a POST endpoint acting as the
// download sink: the response carries a Content-Disposition attachment.
func NewHTTPHandler(log *logrus.Logger) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{log: log}
}

type exportPayload struct {
	FileName string          `json:"fileName"`
	Format   Format          `json:"format"`
	Title    string          `json:"title"`
	Columns  []columnPayload `json:"columns"`
	Records  []domain.Record `json:"records"`
}

type columnPayload struct {
	Key    string `json:"key"`
	Header string `json:"header"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var payload exportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	columns := make([]Column, 0, len(payload.Columns))
	for _, column := range payload.Columns {
		columns = append(columns, Column{Key: column.Key, Header: column.Header})
	}

	file, err := Export(payload.Records, columns, payload.Format, payload.Title)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fileName := strings.TrimSpace(payload.FileName)
	if fileName == "" {
		fileName = "export"
	}
	if !strings.HasSuffix(strings.ToLower(fileName), "."+file.Extension) {
		fileName = fileName + "." + file.Extension
	}

	h.log.Infof("[export] rendered %s (%d bytes, %d rows)", fileName, len(file.Content), len(payload.Records))

	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
