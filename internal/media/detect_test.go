package media

import (
	"testing"
)

func TestDetectSignatures(t *testing.T) {
	cases := []struct {
		name       string
		data       []byte
		fileName   string
		format     Format
		confidence Confidence
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "", FormatPNG, ConfidenceHigh},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "", FormatJPEG, ConfidenceHigh},
		{"pdf", []byte("%PDF-1.7 rest"), "", FormatPDF, ConfidenceHigh},
		{"ogg opus", append([]byte("OggS\x00\x00"), []byte("OpusHead")...), "", FormatOGG, ConfidenceHigh},
		{"ogg no opus head", []byte("OggS\x00\x00somethingelse"), "", FormatOGG, ConfidenceMedium},
		{"bare zip", []byte{'P', 'K', 0x03, 0x04, 0x00, 0x00}, "", FormatZIP, ConfidenceMedium},
	}
	for _, tc := range cases {
		format, confidence := Detect(tc.data, tc.fileName)
		if format != tc.format || confidence != tc.confidence {
			t.Fatalf("%s: Detect = %q/%q, want %q/%q", tc.name, format, confidence, tc.format, tc.confidence)
		}
	}
}

func TestDetectDOCXOverZIP(t *testing.T) {
	data := append([]byte{'P', 'K', 0x03, 0x04}, []byte("....[Content_Types].xml....word/document.xml")...)
	format, confidence := Detect(data, "")
	if format != FormatDOCX || confidence != ConfidenceMedium {
		t.Fatalf("Detect = %q/%q, want DOCX/MEDIUM", format, confidence)
	}
}

func TestDetectExtensionFallback(t *testing.T) {
	format, confidence := Detect([]byte("no known signature"), "fatura.PDF")
	if format != FormatPDF || confidence != ConfidenceLow {
		t.Fatalf("Detect = %q/%q, want PDF/LOW", format, confidence)
	}

	format, confidence = Detect([]byte("???"), "nota.txt")
	if format != FormatUnknown || confidence != ConfidenceNone {
		t.Fatalf("Detect = %q/%q, want UNKNOWN/NONE", format, confidence)
	}
}

func TestFormatMIMEType(t *testing.T) {
	cases := []struct {
		format Format
		want   string
	}{
		{FormatPNG, "image/png"},
		{FormatJPEG, "image/jpeg"},
		{FormatPDF, "application/pdf"},
		{FormatOGG, "audio/ogg"},
		{FormatUnknown, "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := tc.format.MIMEType(); got != tc.want {
			t.Fatalf("MIMEType(%q) = %q, want %q", tc.format, got, tc.want)
		}
	}
}

func TestFormatPaths(t *testing.T) {
	if !FormatPNG.IsImage() || !FormatJPEG.IsImage() || FormatPDF.IsImage() {
		t.Fatal("image path classification wrong")
	}
	if !FormatPDF.IsDocument() || !FormatDOCX.IsDocument() || FormatOGG.IsDocument() {
		t.Fatal("document path classification wrong")
	}
}

func TestDetectTruncatedData(t *testing.T) {
	// Partial signatures must not panic or match.
	format, confidence := Detect([]byte{0x89, 'P'}, "")
	if format != FormatUnknown || confidence != ConfidenceNone {
		t.Fatalf("truncated data detected as %q/%q", format, confidence)
	}
}
