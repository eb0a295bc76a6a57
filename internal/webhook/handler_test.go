package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"solar_sdr_backend/platform/logger"
)

func testRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(nil, logger.New("test"))
	h.RegisterRoutes(engine.Group("/webhook"), token)
	return engine
}

func post(t *testing.T, engine *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHandleEventRejectsBadToken(t *testing.T) {
	engine := testRouter("secret")

	rec := post(t, engine, `{"event":"connection.update"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token accepted: %d", rec.Code)
	}

	rec = post(t, engine, `{"event":"connection.update"}`, map[string]string{"X-Webhook-Token": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token accepted: %d", rec.Code)
	}

	rec = post(t, engine, `{"event":"connection.update"}`, map[string]string{"X-Webhook-Token": "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected: %d", rec.Code)
	}
}

func TestHandleEventMalformedPayload(t *testing.T) {
	engine := testRouter("")
	rec := post(t, engine, `{"event":`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed payload got %d", rec.Code)
	}
}

func TestHandleEventAcknowledgesIgnoredKinds(t *testing.T) {
	engine := testRouter("")

	for _, body := range []string{
		`{"event":"messages.update","data":{"state":"READ"}}`,
		`{"event":"connection.update","data":{"state":"open"}}`,
		`{"event":"something.else"}`,
	} {
		rec := post(t, engine, body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("ignored event %s got %d", body, rec.Code)
		}
	}
}

func TestHandleEventSkipsOwnEchoes(t *testing.T) {
	engine := testRouter("")

	// FromMe messages normalize to nil before the orchestrator is touched,
	// and the webhook still acknowledges them.
	body := `{"event":"messages.upsert","data":{"key":{"remoteJid":"5581999887766@s.whatsapp.net","fromMe":true,"id":"M1"},"message":{"conversation":"eco"}}}`
	rec := post(t, engine, body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("echo got %d", rec.Code)
	}
}
