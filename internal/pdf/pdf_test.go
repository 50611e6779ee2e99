package pdf

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// buildPDF assembles a minimal single-font PDF with one page per string.
func buildPDF(pages ...string) []byte {
	var objects []string
	n := len(pages)

	// 1: catalog, 2: pages, 3: font, then page/content pairs.
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func TestTextLayer(t *testing.T) {
	data := buildPDF("Name: John Smith")

	text, err := NewToolkit().TextLayer(data)
	if err != nil {
		t.Fatalf("TextLayer() error = %v", err)
	}
	if !strings.Contains(text, "John Smith") {
		t.Errorf("TextLayer() = %q, want it to contain %q", text, "John Smith")
	}
}

func TestPageCount(t *testing.T) {
	data := buildPDF("one", "two", "three")

	n, err := NewToolkit().PageCount(data)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 3 {
		t.Errorf("PageCount() = %d, want 3", n)
	}
}

func TestReadersRejectGarbage(t *testing.T) {
	garbage := []byte("this is not a pdf document at all")
	tk := NewToolkit()

	if _, err := tk.TextLayer(garbage); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("TextLayer() error = %v, want ErrMissingHeader", err)
	}
	if _, err := tk.PageCount(garbage); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("PageCount() error = %v, want ErrMissingHeader", err)
	}
	if _, err := tk.RenderPages(garbage, 0); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("RenderPages() error = %v, want ErrMissingHeader", err)
	}
}
