package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/rosterflow/internal/domain"
	"github.com/rpattn/rosterflow/internal/repository"
)

// Handler exposes the import pipeline over HTTP.
type Handler struct {
	service   *Service
	logs      repository.ImportLogRepository
	maxUpload int64
}

// NewHTTPHandler wraps the service with upload, commit, progress, cancel and
// log endpoints. maxUpload bounds the multipart form size; zero or negative
// falls back to 32 MiB.
func NewHTTPHandler(service *Service, logs repository.ImportLogRepository, maxUpload int64) http.Handler {
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handler{service: service, logs: logs, maxUpload: maxUpload}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/commit"):
		h.handleCommit(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cancel"):
		h.handleCancel(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/progress"):
		h.handleProgress(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/logs"):
		h.handleLogs(w, r)
	case r.Method == http.MethodPost:
		h.handleUpload(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type uploadResponse struct {
	RunID   string         `json:"runId"`
	Preview domain.Preview `json:"preview"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	selection := domain.AutoType()
	if raw := strings.TrimSpace(r.FormValue("dataType")); raw != "" {
		dataType, parseErr := domain.ParseDataType(raw)
		if parseErr != nil {
			http.Error(w, parseErr.Error(), http.StatusBadRequest)
			return
		}
		selection = domain.ManualType(dataType)
	}

	options := optionsFromForm(r)
	run := h.service.NewRun()
	preview, err := h.service.Parse(r.Context(), run, UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
		Selection:   selection,
		Options:     options,
	})
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, ErrParse) {
			status = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{RunID: run.ID.String(), Preview: preview})
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runFromPath(w, r, "/commit")
	if !ok {
		return
	}

	var options domain.Options
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&options); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("invalid options payload: %v", err), http.StatusBadRequest)
			return
		}
	}

	result, err := h.service.Commit(r.Context(), run, options)
	switch {
	case errors.Is(err, ErrCancelled):
		// Partial results are still meaningful after cancellation.
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, ErrPrecondition):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runFromPath(w, r, "/progress")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run.Progress())
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runFromPath(w, r, "/cancel")
	if !ok {
		return
	}
	run.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runFromPath(w, r, "/logs")
	if !ok {
		return
	}
	if h.logs == nil {
		writeJSON(w, http.StatusOK, []domain.ImportLogEntry{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.logs.List(r.Context(), run.ID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) runFromPath(w http.ResponseWriter, r *http.Request, suffix string) (*Run, bool) {
	trimmed := strings.TrimSuffix(r.URL.Path, suffix)
	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) == 0 {
		http.Error(w, "run id required", http.StatusBadRequest)
		return nil, false
	}
	id, err := uuid.Parse(segments[len(segments)-1])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid run id: %v", err), http.StatusBadRequest)
		return nil, false
	}
	run, found := h.service.GetRun(id)
	if !found {
		http.Error(w, "run not found", http.StatusNotFound)
		return nil, false
	}
	return run, true
}

func optionsFromForm(r *http.Request) domain.Options {
	boolValue := func(name string, fallback bool) bool {
		raw := strings.TrimSpace(r.FormValue(name))
		if raw == "" {
			return fallback
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return fallback
		}
		return value
	}
	return domain.Options{
		SkipDuplicates:  boolValue("skipDuplicates", false),
		UpdateExisting:  boolValue("updateExisting", false),
		SkipInvalidRows: boolValue("skipInvalidRows", false),
		DateFormat:      strings.TrimSpace(r.FormValue("dateFormat")),
		TrimWhitespace:  boolValue("trimWhitespace", true),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
