package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docextract/internal/ocr"
	"docextract/pkg/models"
)

type fakePDF struct {
	text       string
	textErr    error
	pages      int
	pagesErr   error
	images     [][]byte
	renderErr  error
	renderCall int
}

func (f *fakePDF) TextLayer(data []byte) (string, error) { return f.text, f.textErr }
func (f *fakePDF) PageCount(data []byte) (int, error)    { return f.pages, f.pagesErr }
func (f *fakePDF) RenderPages(data []byte, dpi float64) ([][]byte, error) {
	f.renderCall++
	return f.images, f.renderErr
}

// fakeEngine answers by image content: "fail" errors, anything else echoes back.
type fakeEngine struct {
	languages []string
	cancel    context.CancelFunc
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) RecognizeImage(ctx context.Context, image []byte, language string) (string, error) {
	f.languages = append(f.languages, language)
	if f.cancel != nil {
		f.cancel()
	}
	if string(image) == "fail" {
		return "", errors.New("engine exploded")
	}
	return string(image), nil
}

type fakePDFEngine struct {
	fakeEngine
	pages    []string
	err      error
	maxPages int
	calls    int
}

func (f *fakePDFEngine) RecognizePDF(ctx context.Context, pdf []byte, language string) ([]string, error) {
	f.calls++
	return f.pages, f.err
}

func (f *fakePDFEngine) MaxPDFPages() int { return f.maxPages }

var pdfBytes = []byte("%PDF-1.4 test")

const longText = "Name:\nJohn Smith\nAge:\n45\nAllergies:\nPenicillin\n"

func TestExtractPDFTextLayer(t *testing.T) {
	reader := &fakePDF{text: "  " + longText + "  ", pages: 2}
	engine := &fakeEngine{}
	svc := NewService(reader, engine, Config{})

	result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
	if err != nil {
		t.Fatalf("ExtractPDF() error = %v", err)
	}

	if result.Method != models.MethodTextLayer {
		t.Errorf("Method = %q, want %q", result.Method, models.MethodTextLayer)
	}
	if result.Status != models.StatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}
	if result.Text != strings.TrimSpace(longText) {
		t.Errorf("Text = %q", result.Text)
	}
	if result.NumPages == nil || *result.NumPages != 2 {
		t.Errorf("NumPages = %v, want 2", result.NumPages)
	}
	if reader.renderCall != 0 || len(engine.languages) != 0 {
		t.Error("OCR ran although the text layer was long enough")
	}
	if got := result.Record.Name; got == nil || *got != "John Smith" {
		t.Errorf("Record.Name = %v, want John Smith", got)
	}
	if !result.Record.IsMedicalDocument() {
		t.Error("IsMedicalDocument() = false, want true")
	}
}

func TestExtractPDFThreshold(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		method string
	}{
		{"exactly threshold", strings.Repeat("a", 20), models.MethodTextLayer},
		{"one below threshold", strings.Repeat("a", 19), models.MethodOCR},
		{"whitespace padded short text", "   " + strings.Repeat("a", 19) + "\n\n", models.MethodOCR},
		{"multibyte characters", strings.Repeat("ä", 20), models.MethodTextLayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakePDF{text: tt.text, pages: 1, images: [][]byte{[]byte("scanned")}}
			svc := NewService(reader, &fakeEngine{}, Config{})

			result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
			if err != nil {
				t.Fatalf("ExtractPDF() error = %v", err)
			}
			if result.Method != tt.method {
				t.Errorf("Method = %q, want %q", result.Method, tt.method)
			}
		})
	}
}

func TestExtractPDFRasterOCR(t *testing.T) {
	reader := &fakePDF{
		pages:  0,
		images: [][]byte{[]byte("  page one  "), []byte("   "), []byte("page three")},
	}
	engine := &fakeEngine{}
	svc := NewService(reader, engine, Config{Language: "deu"})

	result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
	if err != nil {
		t.Fatalf("ExtractPDF() error = %v", err)
	}

	if result.Method != models.MethodOCR {
		t.Errorf("Method = %q, want ocr", result.Method)
	}
	if result.Text != "page one\n\npage three" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.NumPages == nil || *result.NumPages != 3 {
		t.Errorf("NumPages = %v, want 3", result.NumPages)
	}
	for _, lang := range engine.languages {
		if lang != "deu" {
			t.Errorf("engine got language %q, want deu", lang)
		}
	}
}

func TestExtractPDFDegradedPages(t *testing.T) {
	reader := &fakePDF{images: [][]byte{[]byte("first"), []byte("fail"), []byte("third")}}
	svc := NewService(reader, &fakeEngine{}, Config{})

	result, err := svc.ExtractPDF(context.Background(), pdfBytes, "eng")
	if err != nil {
		t.Fatalf("ExtractPDF() error = %v", err)
	}

	if result.Status != models.StatusDegraded {
		t.Errorf("Status = %q, want degraded", result.Status)
	}
	if result.Method != models.MethodOCR {
		t.Errorf("Method = %q, want ocr", result.Method)
	}
	if result.Text != "first\n\nthird" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Reason != "OCR failed on 1 of 3 pages" {
		t.Errorf("Reason = %q", result.Reason)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "page 2") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestExtractPDFOCRFailure(t *testing.T) {
	tests := []struct {
		name       string
		reader     *fakePDF
		wantText   string
		wantMethod string
		wantStatus models.ExtractionStatus
	}{
		{
			name:       "render error without text layer",
			reader:     &fakePDF{renderErr: errors.New("cannot render")},
			wantText:   "",
			wantMethod: "error: cannot render",
			wantStatus: models.StatusFailure,
		},
		{
			name:       "all pages fail without text layer",
			reader:     &fakePDF{images: [][]byte{[]byte("fail")}},
			wantText:   "",
			wantMethod: "error: engine exploded",
			wantStatus: models.StatusFailure,
		},
		{
			name:       "render error keeps short text layer",
			reader:     &fakePDF{text: " short ", renderErr: errors.New("cannot render")},
			wantText:   "short",
			wantMethod: models.MethodTextLayer,
			wantStatus: models.StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.reader, &fakeEngine{}, Config{})

			result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
			if err != nil {
				t.Fatalf("ExtractPDF() error = %v", err)
			}
			if result.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", result.Text, tt.wantText)
			}
			if result.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", result.Method, tt.wantMethod)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", result.Status, tt.wantStatus)
			}
			if result.Reason == "" {
				t.Error("Reason is empty")
			}
		})
	}
}

func TestExtractPDFReaderErrorsBecomeWarnings(t *testing.T) {
	reader := &fakePDF{
		textErr:  errors.New("malformed xref"),
		pagesErr: errors.New("no catalog"),
		images:   [][]byte{[]byte("recovered text")},
	}
	svc := NewService(reader, &fakeEngine{}, Config{})

	result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
	if err != nil {
		t.Fatalf("ExtractPDF() error = %v", err)
	}
	if result.Text != "recovered text" {
		t.Errorf("Text = %q", result.Text)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2 entries", result.Warnings)
	}
	if result.Status != models.StatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}
}

func TestExtractPDFUsesPDFRecognizer(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		reader := &fakePDF{pages: 2}
		engine := &fakePDFEngine{pages: []string{"one", "", "two"}, maxPages: 5}
		svc := NewService(reader, engine, Config{})

		result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
		if err != nil {
			t.Fatalf("ExtractPDF() error = %v", err)
		}
		if engine.calls != 1 || reader.renderCall != 0 {
			t.Errorf("RecognizePDF calls = %d, render calls = %d", engine.calls, reader.renderCall)
		}
		if result.Text != "one\n\ntwo" {
			t.Errorf("Text = %q", result.Text)
		}
	})

	t.Run("over limit renders pages", func(t *testing.T) {
		reader := &fakePDF{pages: 9, images: [][]byte{[]byte("rendered")}}
		engine := &fakePDFEngine{maxPages: 5}
		svc := NewService(reader, engine, Config{})

		result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
		if err != nil {
			t.Fatalf("ExtractPDF() error = %v", err)
		}
		if engine.calls != 0 || reader.renderCall != 1 {
			t.Errorf("RecognizePDF calls = %d, render calls = %d", engine.calls, reader.renderCall)
		}
		if result.Text != "rendered" {
			t.Errorf("Text = %q", result.Text)
		}
	})

	t.Run("recognizer failure falls back to rendering", func(t *testing.T) {
		reader := &fakePDF{pages: 1, images: [][]byte{[]byte("rendered")}}
		engine := &fakePDFEngine{err: ocr.ErrOCRFailed, maxPages: 5}
		svc := NewService(reader, engine, Config{})

		result, err := svc.ExtractPDF(context.Background(), pdfBytes, "")
		if err != nil {
			t.Fatalf("ExtractPDF() error = %v", err)
		}
		if result.Text != "rendered" || len(result.Warnings) != 1 {
			t.Errorf("Text = %q, Warnings = %v", result.Text, result.Warnings)
		}
	})
}

func TestExtractImage(t *testing.T) {
	svc := NewService(&fakePDF{}, &fakeEngine{}, Config{})

	result, err := svc.ExtractImage(context.Background(), []byte("  Patient text\n"), "")
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}
	if result.Method != models.MethodOCR || result.Text != "Patient text" {
		t.Errorf("Method = %q, Text = %q", result.Method, result.Text)
	}
	if result.NumPages != nil {
		t.Errorf("NumPages = %v, want nil", *result.NumPages)
	}

	result, err = svc.ExtractImage(context.Background(), []byte("fail"), "")
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}
	if result.Method != "error: engine exploded" || result.Text != "" || result.Status != models.StatusFailure {
		t.Errorf("failure result = %+v", result)
	}
	if result.Record == nil || result.Record.IsMedicalDocument() {
		t.Error("failed extraction should carry an empty record")
	}
}

func TestExtractCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := &fakeEngine{cancel: cancel}
	svc := NewService(&fakePDF{images: [][]byte{[]byte("a"), []byte("b")}}, engine, Config{})

	_, err := svc.ExtractPDF(ctx, pdfBytes, "")
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("ExtractPDF() error = %v, want cancellation", err)
	}
	if len(engine.languages) != 1 {
		t.Errorf("engine called %d times after cancel, want 1", len(engine.languages))
	}
}

func TestExtractDispatch(t *testing.T) {
	svc := NewService(&fakePDF{text: longText}, &fakeEngine{}, Config{})

	if _, err := svc.Extract(context.Background(), models.MediaUnsupported, []byte("x"), ""); !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("unsupported error = %v", err)
	}
	if _, err := svc.Extract(context.Background(), models.MediaPDF, nil, ""); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty error = %v", err)
	}

	result, err := svc.Extract(context.Background(), models.MediaPDF, pdfBytes, "")
	if err != nil || result.Method != models.MethodTextLayer {
		t.Errorf("Extract(pdf) = %+v, %v", result, err)
	}
}
