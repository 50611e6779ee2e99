package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docextract/pkg/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeExtractor struct {
	kind     models.MediaKind
	data     []byte
	language string
	result   *models.ExtractionResult
	err      error
	panicMsg string
}

func (f *fakeExtractor) Extract(ctx context.Context, kind models.MediaKind, data []byte, language string) (*models.ExtractionResult, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.kind, f.data, f.language = kind, data, language
	return f.result, f.err
}

func (f *fakeExtractor) ExtractPDF(ctx context.Context, data []byte, language string) (*models.ExtractionResult, error) {
	return f.Extract(ctx, models.MediaPDF, data, language)
}

func (f *fakeExtractor) ExtractImage(ctx context.Context, data []byte, language string) (*models.ExtractionResult, error) {
	return f.Extract(ctx, models.MediaImage, data, language)
}

func strPtr(s string) *string { return &s }

func multipartBody(t *testing.T, field, filename, contentType string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func doUpload(t *testing.T, srv *Server, target, filename, contentType string, content []byte, extra map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, contentType, content, extra)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return resp.Detail
}

func TestHealth(t *testing.T) {
	srv := New(Config{}, &fakeExtractor{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestExtractPDF(t *testing.T) {
	pages := 2
	fake := &fakeExtractor{result: &models.ExtractionResult{
		Text:     "Name:\nJane Doe",
		Method:   models.MethodTextLayer,
		Status:   models.StatusSuccess,
		NumPages: &pages,
		Record:   &models.MedicalRecord{Name: strPtr("Jane Doe")},
	}}
	srv := New(Config{MaxUploadBytes: 1 << 20}, fake)

	rec := doUpload(t, srv, "/extract", "report.pdf", "application/pdf", []byte("%PDF-1.4"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp models.ExtractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "report.pdf" || resp.FileType != "pdf" || resp.Method != "text-layer" {
		t.Errorf("response = %+v", resp)
	}
	if resp.NumPages == nil || *resp.NumPages != 2 {
		t.Errorf("num_pages = %v, want 2", resp.NumPages)
	}
	if resp.StructuredData == nil || !resp.StructuredData.IsMedicalDocument {
		t.Errorf("structured_data = %+v", resp.StructuredData)
	}
	if fake.kind != models.MediaPDF || string(fake.data) != "%PDF-1.4" {
		t.Errorf("extractor got kind %q data %q", fake.kind, fake.data)
	}
}

func TestExtractImageByExtension(t *testing.T) {
	fake := &fakeExtractor{result: &models.ExtractionResult{Method: models.MethodOCR, Status: models.StatusSuccess, Record: &models.MedicalRecord{}}}
	srv := New(Config{}, fake)

	rec := doUpload(t, srv, "/extract?lang=deu", "scan.JPG", "application/octet-stream", []byte{0xff, 0xd8}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw["file_type"] != "image" {
		t.Errorf("file_type = %v", raw["file_type"])
	}
	if v, ok := raw["num_pages"]; !ok || v != nil {
		t.Errorf("num_pages = %v, want explicit null", v)
	}
	if fake.language != "deu" {
		t.Errorf("language = %q, want deu", fake.language)
	}
}

func TestExtractLanguageFormField(t *testing.T) {
	fake := &fakeExtractor{result: &models.ExtractionResult{Method: models.MethodOCR}}
	srv := New(Config{}, fake)

	rec := doUpload(t, srv, "/extract?lang=deu", "scan.png", "image/png", []byte("img"), map[string]string{"lang": "fra"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if fake.language != "fra" {
		t.Errorf("language = %q, want fra", fake.language)
	}
}

func TestExtractRejections(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
		maxBytes    int64
		wantStatus  int
		wantDetail  string
	}{
		{
			name:        "empty file",
			filename:    "empty.pdf",
			contentType: "application/pdf",
			content:     nil,
			wantStatus:  http.StatusBadRequest,
			wantDetail:  "Empty file uploaded",
		},
		{
			name:        "unsupported content type",
			filename:    "notes.txt",
			contentType: "text/plain",
			content:     []byte("hello"),
			wantStatus:  http.StatusUnsupportedMediaType,
			wantDetail:  "Unsupported file type: text/plain",
		},
		{
			name:       "unsupported extension without content type",
			filename:   "notes.TXT",
			content:    []byte("hello"),
			wantStatus: http.StatusUnsupportedMediaType,
			wantDetail: "Unsupported file type: .txt",
		},
		{
			name:        "upload too large",
			filename:    "big.pdf",
			contentType: "application/pdf",
			content:     bytes.Repeat([]byte("x"), 4096),
			maxBytes:    1024,
			wantStatus:  http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeExtractor{}
			srv := New(Config{MaxUploadBytes: tt.maxBytes}, fake)

			rec := doUpload(t, srv, "/extract", tt.filename, tt.contentType, tt.content, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			detail := decodeDetail(t, rec)
			if tt.wantDetail != "" && detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", detail, tt.wantDetail)
			}
			if fake.data != nil {
				t.Error("extractor should not run for rejected uploads")
			}
		})
	}
}

func TestExtractMissingFileField(t *testing.T) {
	srv := New(Config{}, &fakeExtractor{})

	body, ct := multipartBody(t, "document", "a.pdf", "application/pdf", []byte("%PDF"), nil)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExtractFailures(t *testing.T) {
	t.Run("extractor error", func(t *testing.T) {
		srv := New(Config{}, &fakeExtractor{err: errors.New("boom")})
		rec := doUpload(t, srv, "/extract", "a.pdf", "application/pdf", []byte("%PDF"), nil)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if got := decodeDetail(t, rec); got != "Extraction failed: boom" {
			t.Errorf("detail = %q", got)
		}
	})

	t.Run("panic", func(t *testing.T) {
		srv := New(Config{}, &fakeExtractor{panicMsg: "nil page"})
		rec := doUpload(t, srv, "/extract", "a.pdf", "application/pdf", []byte("%PDF"), nil)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if got := decodeDetail(t, rec); got != "Extraction failed: nil page" {
			t.Errorf("detail = %q", got)
		}
	})
}

func TestRequestIDPropagation(t *testing.T) {
	srv := New(Config{}, &fakeExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantStatus int
		wantHeader string
	}{
		{"wildcard", []string{"*"}, "http://ui.local", http.StatusNoContent, "*"},
		{"no origins configured", nil, "http://ui.local", http.StatusNoContent, "*"},
		{"listed origin", []string{"http://ui.local/"}, "http://ui.local", http.StatusNoContent, "http://ui.local"},
		{"second listed origin", []string{"http://a.local", "https://ui.local"}, "https://ui.local", http.StatusNoContent, "https://ui.local"},
		{"unlisted origin", []string{"http://ui.local"}, "http://evil.local", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Config{AllowedOrigins: tt.allowed}, &fakeExtractor{})
			req := httptest.NewRequest(http.MethodOptions, "/extract", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("preflight status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestCORSExposesRequestID(t *testing.T) {
	srv := New(Config{AllowedOrigins: []string{"http://ui.local"}}, &fakeExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://ui.local")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Errorf("Allow-Origin = %q, want %q", got, "http://ui.local")
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(strings.ToLower(got), strings.ToLower(RequestIDHeader)) {
		t.Errorf("Expose-Headers = %q, want it to include %s", got, RequestIDHeader)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := New(Config{Addr: "127.0.0.1:0"}, &fakeExtractor{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := srv.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
