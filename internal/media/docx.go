package media

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"solar_sdr_backend/platform/apperr"
)

// extractDOCXText pulls plain text out of the main document part of a DOCX
// container. Paragraph boundaries become newlines; all other layout is
// dropped.
func extractDOCXText(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadRequest, "failed to open docx container", err)
	}

	var doc *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", apperr.New(apperr.KindBadRequest, "docx has no document part")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadRequest, "failed to read docx document", err)
	}
	defer rc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", apperr.Wrap(apperr.KindBadRequest, "malformed docx xml", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteByte('\n')
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// pdfPageCount estimates the number of pages by counting page objects.
// Good enough for the first-N-pages cutoff hint; never used for layout.
func pdfPageCount(data []byte) int {
	count := bytes.Count(data, []byte("/Type /Page"))
	count -= bytes.Count(data, []byte("/Type /Pages"))
	if count < 1 {
		count = 1
	}
	return count
}
