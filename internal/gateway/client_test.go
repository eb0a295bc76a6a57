package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/logger"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL:   srv.URL,
		apiKey:    "test-key",
		instance:  "main",
		http:      srv.Client(),
		mediaHTTP: srv.Client(),
		log:       logger.New("test"),
	}
}

func TestSendText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message/sendText/main" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "test-key" {
			t.Fatalf("missing api key header")
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["number"] != "+5581999887766" || req["text"] != "oi" {
			t.Fatalf("unexpected payload: %v", req)
		}
		if _, ok := req["quotedId"]; ok {
			t.Fatalf("empty quoted id must be omitted: %v", req)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "WAMID-1"})
	}))
	defer srv.Close()

	result, err := testClient(srv).SendText(context.Background(), "+5581999887766", "oi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != "WAMID-1" {
		t.Fatalf("unexpected message id: %q", result.ID)
	}
}

func TestSendTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv).SendText(context.Background(), "+5581999887766", "oi", "")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("5xx must be unavailable, got %v", err)
	}
	if !apperr.Retryable(err) {
		t.Fatal("5xx must be retryable")
	}
}

func TestSendTextRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := testClient(srv).SendText(context.Background(), "bad-number", "oi", "")
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("4xx must be bad request, got %v", err)
	}
	if apperr.Retryable(err) {
		t.Fatal("4xx must not be retryable")
	}
}

func TestSetTypingSendsDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["presence"] != "composing" {
			t.Fatalf("unexpected presence: %v", req["presence"])
		}
		if req["delay"] != float64(2500) {
			t.Fatalf("unexpected delay: %v", req["delay"])
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := testClient(srv).SetTyping(context.Background(), "+5581999887766", 2500*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDownloadMedia(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/download/main" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	data, err := testClient(srv).DownloadMedia(context.Background(), "MSG-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != len(payload) {
		t.Fatalf("unexpected media size: %d", len(data))
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   apperr.Kind
	}{
		{http.StatusTooManyRequests, apperr.KindUnavailable},
		{http.StatusInternalServerError, apperr.KindUnavailable},
		{http.StatusRequestTimeout, apperr.KindTimeout},
		{http.StatusNotFound, apperr.KindBadRequest},
	}
	for _, tc := range cases {
		if err := classifyStatus(tc.status, "test"); !apperr.Is(err, tc.kind) {
			t.Fatalf("status %d classified as %v", tc.status, err)
		}
	}
}
