package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"os"
	"time"

	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/ai/gemini"
	"solar_sdr_backend/platform/logger"
)

const (
	downloadRetries = 2
	// documentPageLimit caps how much of a long document the model reads.
	documentPageLimit = 20
)

// ArtifactKind tags the pipeline output.
type ArtifactKind string

const (
	KindImage    ArtifactKind = "IMAGE"
	KindAudio    ArtifactKind = "AUDIO"
	KindDocument ArtifactKind = "DOCUMENT"
)

// Ref points at inbound media. Sources are tried in order: inline bytes,
// base64, local path, authenticated gateway download.
type Ref struct {
	Inline    []byte
	Base64    string
	LocalPath string
	URL       string
	MessageID string
	FileName  string
}

// Artifact is the model-ready result of ingestion. A non-empty Err means
// extraction failed unrecoverably; the orchestrator surfaces a polite
// fallback instead of the artifact.
type Artifact struct {
	Kind          ArtifactKind
	Format        Format
	Bytes         []byte
	MIME          string
	OCRText       string
	Transcript    string
	DurationSec   float64
	ExtractedText string
	PageCount     int
	StorageKey    string
	Err           string
}

// Downloader fetches gateway-hosted media with the auth token attached.
type Downloader interface {
	DownloadMedia(ctx context.Context, messageID, mediaURL string) ([]byte, error)
}

// Reader runs multimodal completions for OCR, transcription, and document
// extraction.
type Reader interface {
	Complete(ctx context.Context, req gemini.CompletionRequest) (string, error)
}

// Pipeline ingests media refs into model-ready artifacts.
type Pipeline struct {
	downloader Downloader
	reader     Reader
	store      *Store
	log        *logger.Logger
}

// NewPipeline creates the ingestion pipeline. store may be nil when artifact
// persistence is disabled.
func NewPipeline(downloader Downloader, reader Reader, store *Store, log *logger.Logger) *Pipeline {
	return &Pipeline{downloader: downloader, reader: reader, store: store, log: log}
}

// Ingest resolves, classifies, and extracts a media ref. Unrecoverable
// extraction failures return an error artifact with Err set, not a Go error;
// hard failures (no bytes at all) return a Go error.
func (p *Pipeline) Ingest(ctx context.Context, ref Ref) (*Artifact, error) {
	data, err := p.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	format, confidence := Detect(data, ref.FileName)
	if format == FormatUnknown || format == FormatZIP {
		return nil, apperr.New(apperr.KindBadRequest,
			fmt.Sprintf("unsupported media format %s (confidence %s)", format, confidence))
	}

	var artifact *Artifact
	switch {
	case format.IsImage():
		artifact = p.ingestImage(ctx, data)
	case format == FormatOGG:
		artifact = p.ingestAudio(ctx, data)
	case format.IsDocument():
		artifact = p.ingestDocument(ctx, data, format)
	}
	artifact.Format = format

	if p.store != nil && artifact.Err == "" {
		key, storeErr := p.store.Put(ctx, artifact.Bytes, artifact.MIME)
		if storeErr != nil {
			p.log.Warn("media artifact store failed", "error", storeErr)
		} else {
			artifact.StorageKey = key
		}
	}

	return artifact, nil
}

func (p *Pipeline) resolve(ctx context.Context, ref Ref) ([]byte, error) {
	switch {
	case len(ref.Inline) > 0:
		return ref.Inline, nil
	case ref.Base64 != "":
		data, err := base64.StdEncoding.DecodeString(ref.Base64)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindBadRequest, "invalid base64 media", err)
		}
		return data, nil
	case ref.LocalPath != "":
		data, err := os.ReadFile(ref.LocalPath)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindBadRequest, "failed to read media file", err)
		}
		return data, nil
	case ref.URL != "" || ref.MessageID != "":
		return p.download(ctx, ref)
	}
	return nil, apperr.New(apperr.KindBadRequest, "media ref has no source")
}

// download fetches via the gateway with jittered backoff on transient errors.
func (p *Pipeline) download(ctx context.Context, ref Ref) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= downloadRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		data, err := p.downloader.DownloadMedia(ctx, ref.MessageID, ref.URL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !apperr.Retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (p *Pipeline) ingestImage(ctx context.Context, data []byte) *Artifact {
	reduced, mime, err := DownscaleImage(data)
	if err != nil {
		return &Artifact{Kind: KindImage, Err: err.Error()}
	}

	ocr, err := p.reader.Complete(ctx, gemini.CompletionRequest{
		System: "Você é um extrator de texto. Transcreva todo o texto visível na imagem, preservando valores numéricos exatamente como aparecem. Responda apenas com o texto extraído.",
		Messages: []gemini.Message{
			{Role: "user", Text: "Extraia o texto desta imagem."},
		},
		Media: []gemini.Media{{MIMEType: mime, Data: reduced}},
	})
	if err != nil {
		// The image itself is still usable by the vision model downstream.
		p.log.Warn("image ocr failed", "error", err)
		ocr = ""
	}

	return &Artifact{Kind: KindImage, Bytes: reduced, MIME: mime, OCRText: ocr}
}

func (p *Pipeline) ingestAudio(ctx context.Context, data []byte) *Artifact {
	duration := OggDuration(data)

	transcript, err := p.reader.Complete(ctx, gemini.CompletionRequest{
		System: "Você é um transcritor. Transcreva o áudio em português exatamente como falado. Responda apenas com a transcrição.",
		Messages: []gemini.Message{
			{Role: "user", Text: "Transcreva este áudio."},
		},
		Media: []gemini.Media{{MIMEType: "audio/ogg", Data: data}},
	})
	if err != nil {
		return &Artifact{Kind: KindAudio, DurationSec: duration, Err: err.Error()}
	}
	if transcript == "" {
		return &Artifact{Kind: KindAudio, DurationSec: duration, Err: "empty transcript"}
	}

	return &Artifact{
		Kind:        KindAudio,
		Bytes:       data,
		MIME:        "audio/ogg",
		Transcript:  transcript,
		DurationSec: duration,
	}
}

func (p *Pipeline) ingestDocument(ctx context.Context, data []byte, format Format) *Artifact {
	if format == FormatDOCX {
		text, err := extractDOCXText(data)
		if err != nil {
			return &Artifact{Kind: KindDocument, Err: err.Error()}
		}
		return &Artifact{
			Kind:          KindDocument,
			Bytes:         data,
			MIME:          format.MIMEType(),
			ExtractedText: text,
			PageCount:     1,
		}
	}

	pages := pdfPageCount(data)
	text, err := p.reader.Complete(ctx, gemini.CompletionRequest{
		System: fmt.Sprintf("Você é um extrator de documentos. Extraia o texto das primeiras %d páginas do PDF, preservando valores e tabelas de forma legível. Responda apenas com o texto.", documentPageLimit),
		Messages: []gemini.Message{
			{Role: "user", Text: "Extraia o texto deste documento."},
		},
		Media: []gemini.Media{{MIMEType: "application/pdf", Data: data}},
	})
	if err != nil {
		return &Artifact{Kind: KindDocument, PageCount: pages, Err: err.Error()}
	}

	return &Artifact{
		Kind:          KindDocument,
		Bytes:         data,
		MIME:          "application/pdf",
		ExtractedText: text,
		PageCount:     pages,
	}
}
