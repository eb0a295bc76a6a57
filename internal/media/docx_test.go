package media

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"solar_sdr_backend/platform/apperr"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCXText(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Fatura de energia</w:t></w:r></w:p>
    <w:p><w:r><w:t>Total: R$ 612,40</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := extractDOCXText(buildDOCX(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Fatura de energia") || !strings.Contains(text, "R$ 612,40") {
		t.Fatalf("content lost: %q", text)
	}
	// Paragraph boundaries survive as line breaks.
	if !strings.Contains(text, "\n") {
		t.Fatalf("paragraphs collapsed: %q", text)
	}
}

func TestExtractDOCXTextMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, _ := w.Create("word/styles.xml")
	_, _ = f.Write([]byte("<styles/>"))
	_ = w.Close()

	_, err := extractDOCXText(buf.Bytes())
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestExtractDOCXTextNotAZip(t *testing.T) {
	_, err := extractDOCXText([]byte("definitely not a zip"))
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestPDFPageCount(t *testing.T) {
	pdf := []byte("%PDF-1.4\n/Type /Pages\n/Type /Page\n/Type /Page\n/Type /Page\n")
	if got := pdfPageCount(pdf); got != 3 {
		t.Fatalf("unexpected page count: %d", got)
	}
	// Degenerate input still reports at least one page.
	if got := pdfPageCount([]byte("%PDF-")); got != 1 {
		t.Fatalf("unexpected minimum: %d", got)
	}
}
