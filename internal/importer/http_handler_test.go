package importer

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpattn/rosterflow/internal/domain"
)

func multipartUpload(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHandlerUploadThenCommit(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	handler := NewHTTPHandler(service, &stubLogRepo{}, 0)

	body, contentType := multipartUpload(t, "people.csv",
		"name,type\nAlice Smith,faculty\nBob Jones,faculty\n", nil)

	req := httptest.NewRequest(http.MethodPost, "/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var uploaded uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if uploaded.Preview.TotalRows != 2 || uploaded.Preview.ValidRows != 2 {
		t.Fatalf("unexpected preview: %+v", uploaded.Preview)
	}

	commitReq := httptest.NewRequest(http.MethodPost,
		"/imports/"+uploaded.RunID+"/commit", strings.NewReader(`{"skipInvalidRows":true}`))
	commitRec := httptest.NewRecorder()
	handler.ServeHTTP(commitRec, commitReq)

	if commitRec.Code != http.StatusOK {
		t.Fatalf("commit status = %d, body: %s", commitRec.Code, commitRec.Body.String())
	}

	var result domain.Result
	if err := json.Unmarshal(commitRec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode commit response: %v", err)
	}
	if !result.Success || result.SuccessCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestHandlerUploadRejectsMalformedFile(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	handler := NewHTTPHandler(service, &stubLogRepo{}, 0)

	body, contentType := multipartUpload(t, "empty.csv", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty file, got %d", rec.Code)
	}
}

func TestHandlerUploadManualDataType(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	handler := NewHTTPHandler(service, &stubLogRepo{}, 0)

	body, contentType := multipartUpload(t, "rows.csv",
		"name,type\nAlice Smith,faculty\n", map[string]string{"dataType": "absences"})
	req := httptest.NewRequest(http.MethodPost, "/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var uploaded uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if uploaded.Preview.DataType != domain.DataTypeAbsences {
		t.Fatalf("expected manual type honored, got %s", uploaded.Preview.DataType)
	}
}

func TestHandlerUploadUnknownDataType(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	handler := NewHTTPHandler(service, &stubLogRepo{}, 0)

	body, contentType := multipartUpload(t, "rows.csv",
		"name,type\nAlice Smith,faculty\n", map[string]string{"dataType": "widgets"})
	req := httptest.NewRequest(http.MethodPost, "/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown data type, got %d", rec.Code)
	}
}

func TestHandlerCommitWithoutPreviewConflicts(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	handler := NewHTTPHandler(service, &stubLogRepo{}, 0)
	run := service.NewRun()

	req := httptest.NewRequest(http.MethodPost, "/imports/"+run.ID.String()+"/commit", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without preview, got %d", rec.Code)
	}
}

func TestHandlerProgressAndCancel(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	handler := NewHTTPHandler(service, &stubLogRepo{}, 0)
	run := service.NewRun()

	req := httptest.NewRequest(http.MethodGet, "/imports/"+run.ID.String()+"/progress", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	var progress domain.Progress
	if err := json.Unmarshal(rec.Body.Bytes(), &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.Status != domain.PhaseIdle {
		t.Fatalf("expected idle run, got %s", progress.Status)
	}

	cancelReq := httptest.NewRequest(http.MethodPost, "/imports/"+run.ID.String()+"/cancel", nil)
	cancelRec := httptest.NewRecorder()
	handler.ServeHTTP(cancelRec, cancelReq)
	if cancelRec.Code != http.StatusAccepted {
		t.Fatalf("cancel status = %d", cancelRec.Code)
	}
}

func TestHandlerUnknownRun(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	handler := NewHTTPHandler(service, &stubLogRepo{}, 0)

	req := httptest.NewRequest(http.MethodGet, "/imports/00000000-0000-0000-0000-000000000001/progress", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown run, got %d", rec.Code)
	}
}
