// Package gateway implements the thin client for the WhatsApp-bridge
// service: text sends, reactions, typing indicators, and authenticated
// media downloads.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/logger"
)

const (
	requestTimeout = 10 * time.Second
	// mediaTimeout is longer because media downloads can be several MB.
	mediaTimeout = 30 * time.Second

	maxMediaBytes = 32 << 20
)

// Client talks to the gateway REST API.
type Client struct {
	baseURL   string
	apiKey    string
	instance  string
	http      *http.Client
	mediaHTTP *http.Client
	log       *logger.Logger
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:   cfg.GetGatewayURL(),
		apiKey:    cfg.GetGatewayAPIKey(),
		instance:  cfg.GetGatewayInstance(),
		http:      &http.Client{Timeout: requestTimeout},
		mediaHTTP: &http.Client{Timeout: mediaTimeout},
		log:       log,
	}
}

// SendResult carries the gateway-assigned id of a sent message.
type SendResult struct {
	ID string `json:"id"`
}

type sendTextRequest struct {
	Number   string `json:"number"`
	Text     string `json:"text"`
	QuotedID string `json:"quotedId,omitempty"`
}

// SendText delivers a text message. quotedID may be empty.
func (c *Client) SendText(ctx context.Context, phone, text, quotedID string) (*SendResult, error) {
	payload := sendTextRequest{Number: phone, Text: text, QuotedID: quotedID}

	var result SendResult
	if err := c.post(ctx, c.http, fmt.Sprintf("/message/sendText/%s", c.instance), payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type sendReactionRequest struct {
	Number    string `json:"number"`
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// SendReaction reacts to a previously received message.
func (c *Client) SendReaction(ctx context.Context, phone, messageID, emoji string) error {
	payload := sendReactionRequest{Number: phone, MessageID: messageID, Emoji: emoji}
	return c.post(ctx, c.http, fmt.Sprintf("/message/sendReaction/%s", c.instance), payload, nil)
}

type setTypingRequest struct {
	Number     string `json:"number"`
	Presence   string `json:"presence"`
	DurationMS int    `json:"delay"`
}

// SetTyping shows the typing indicator for the given duration.
func (c *Client) SetTyping(ctx context.Context, phone string, duration time.Duration) error {
	payload := setTypingRequest{
		Number:     phone,
		Presence:   "composing",
		DurationMS: int(duration.Milliseconds()),
	}
	return c.post(ctx, c.http, fmt.Sprintf("/chat/sendPresence/%s", c.instance), payload, nil)
}

type downloadMediaRequest struct {
	MessageID string `json:"messageId,omitempty"`
	MediaURL  string `json:"mediaUrl,omitempty"`
}

// DownloadMedia fetches media bytes through the gateway with the auth token
// attached. Gateway-hosted URLs must pass through here, never directly to
// model providers.
func (c *Client) DownloadMedia(ctx context.Context, messageID, mediaURL string) ([]byte, error) {
	payload := downloadMediaRequest{MessageID: messageID, MediaURL: mediaURL}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to encode media request", err)
	}

	url := fmt.Sprintf("%s/media/download/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build media request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.mediaHTTP.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, "media download")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to read media body", err)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode gateway request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := hc.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, "gateway call")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to decode gateway response", err)
		}
	}
	return nil
}

// classifyTransport maps network errors to retryable kinds. Deadline
// expiry becomes a timeout; everything else is treated as unavailable.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, "gateway call timed out", err)
	}
	return apperr.Wrap(apperr.KindUnavailable, "gateway unreachable", err)
}

// classifyStatus maps HTTP status codes to the error taxonomy: 429/5xx are
// retryable, everything else is a client-protocol failure.
func classifyStatus(status int, op string) error {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return apperr.New(apperr.KindUnavailable, fmt.Sprintf("%s failed with status %d", op, status))
	case status == http.StatusRequestTimeout:
		return apperr.New(apperr.KindTimeout, fmt.Sprintf("%s timed out (status %d)", op, status))
	default:
		return apperr.New(apperr.KindBadRequest, fmt.Sprintf("%s rejected with status %d", op, status))
	}
}
