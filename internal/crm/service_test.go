package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/internal/leads/repository"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

type fakeLeadStore struct {
	patches []domain.LeadPatch
}

func (f *fakeLeadStore) Pool() *pgxpool.Pool { return nil }

func (f *fakeLeadStore) UpdateLead(_ context.Context, _ repository.Querier, _ string, patch domain.LeadPatch) (*domain.Lead, error) {
	f.patches = append(f.patches, patch)
	return &domain.Lead{}, nil
}

func testClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL: srv.URL,
		apiKey:  "test-key",
		http:    srv.Client(),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "crm-test"}),
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     logger.New("test"),
	}
}

func TestAddNoteSyncsUnsyncedLeadFirst(t *testing.T) {
	var notes int
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/leads", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "ext-1"}`))
	})
	mux.HandleFunc("POST /api/v1/leads/ext-1/notes", func(w http.ResponseWriter, _ *http.Request) {
		notes++
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	log := logger.New("test")
	store := &fakeLeadStore{}
	svc := NewService(testClient(srv), store, platformevents.NewInMemoryBus(log), "pipe-1", log)

	// Handoff notes often arrive on the lead's very first turns, before any
	// sync gave it an external id. The note must still land.
	lead := &domain.Lead{
		ID:          uuid.New(),
		Phone:       "+5581999887766",
		Stage:       domain.StageDiscoveringSolution,
		Temperature: domain.TemperatureCold,
	}
	svc.AddNote(context.Background(), lead, "Lead pediu a trilha de investimento.")

	if notes != 1 {
		t.Fatalf("note requests: want 1, got %d", notes)
	}
	if lead.CRMExternalID == nil || *lead.CRMExternalID != "ext-1" {
		t.Fatalf("external id not set on lead: %v", lead.CRMExternalID)
	}
	if len(store.patches) != 1 || store.patches[0].CRMExternalID == nil {
		t.Fatalf("external id not persisted: %+v", store.patches)
	}
}

func TestAddNoteSkipsWhenSyncFails(t *testing.T) {
	var notes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/notes") {
			notes++
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	log := logger.New("test")
	svc := NewService(testClient(srv), &fakeLeadStore{}, platformevents.NewInMemoryBus(log), "pipe-1", log)

	lead := &domain.Lead{
		ID:          uuid.New(),
		Phone:       "+5581999887766",
		Stage:       domain.StageDiscoveringSolution,
		Temperature: domain.TemperatureCold,
	}
	svc.AddNote(context.Background(), lead, "nota qualquer")

	if notes != 0 {
		t.Fatalf("note sent without an external id, got %d requests", notes)
	}
}
