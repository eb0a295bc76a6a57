// Package media implements the ingestion pipeline for inbound WhatsApp
// media: format detection, authenticated download, image downscaling,
// document text extraction, and audio understanding.
package media

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format is the detected media container.
type Format string

const (
	FormatPNG     Format = "PNG"
	FormatJPEG    Format = "JPEG"
	FormatPDF     Format = "PDF"
	FormatDOCX    Format = "DOCX"
	FormatZIP     Format = "ZIP"
	FormatOGG     Format = "OGG_OPUS"
	FormatUnknown Format = "UNKNOWN"
)

// Confidence is the tier of the detection decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
	ConfidenceNone   Confidence = "NONE"
)

var (
	sigPNG  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	sigJPEG = []byte{0xFF, 0xD8, 0xFF}
	sigPDF  = []byte("%PDF-")
	sigZIP  = []byte{'P', 'K', 0x03, 0x04}
	sigOGG  = []byte("OggS")
)

// docxMarkers are inner-XML hints that a ZIP container is really a DOCX.
var docxMarkers = [][]byte{
	[]byte("word/"),
	[]byte("[Content_Types].xml"),
}

// Detect classifies media bytes from their magic-byte signature. Exact
// signatures are HIGH confidence; container formats that need an inner
// heuristic are MEDIUM; an extension-only match on fileName is LOW. DOCX is
// preferred over raw ZIP whenever the inner markers exist.
func Detect(data []byte, fileName string) (Format, Confidence) {
	switch {
	case bytes.HasPrefix(data, sigPNG):
		return FormatPNG, ConfidenceHigh
	case bytes.HasPrefix(data, sigJPEG):
		return FormatJPEG, ConfidenceHigh
	case bytes.HasPrefix(data, sigPDF):
		return FormatPDF, ConfidenceHigh
	case bytes.HasPrefix(data, sigOGG):
		if bytes.Contains(head(data, 512), []byte("OpusHead")) {
			return FormatOGG, ConfidenceHigh
		}
		return FormatOGG, ConfidenceMedium
	case bytes.HasPrefix(data, sigZIP):
		scan := head(data, 4096)
		for _, marker := range docxMarkers {
			if bytes.Contains(scan, marker) {
				return FormatDOCX, ConfidenceMedium
			}
		}
		return FormatZIP, ConfidenceMedium
	}

	if format := byExtension(fileName); format != FormatUnknown {
		return format, ConfidenceLow
	}
	return FormatUnknown, ConfidenceNone
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}

func byExtension(fileName string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return FormatPNG
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".ogg", ".opus":
		return FormatOGG
	}
	return FormatUnknown
}

// MIMEType maps a detected format to the MIME type submitted to the model.
func (f Format) MIMEType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatOGG:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// IsImage reports whether the format feeds the vision path.
func (f Format) IsImage() bool {
	return f == FormatPNG || f == FormatJPEG
}

// IsDocument reports whether the format feeds the document extraction path.
func (f Format) IsDocument() bool {
	return f == FormatPDF || f == FormatDOCX
}
