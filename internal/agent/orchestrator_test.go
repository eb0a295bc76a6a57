package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"solar_sdr_backend/internal/followups"
	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

// recordingQuerier captures every statement so tests can assert which writes
// share one transaction handle.
type recordingQuerier struct {
	statements []string
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	q.statements = append(q.statements, sql)
	return pgconn.CommandTag{}, nil
}

func (q *recordingQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.statements = append(q.statements, sql)
	return nil, nil
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.statements = append(q.statements, sql)
	return stubRow{}
}

func (q *recordingQuerier) count(marker string) int {
	n := 0
	for _, sql := range q.statements {
		if strings.Contains(sql, marker) {
			n++
		}
	}
	return n
}

type stubRow struct{}

func (stubRow) Scan(...any) error { return nil }

func testOrchestrator() *Orchestrator {
	log := logger.New("test")
	return &Orchestrator{
		repo:        leadsrepo.New(nil),
		followupSvc: followups.NewService(followups.NewRepository(nil), platformevents.NewInMemoryBus(log), log),
		log:         log,
		maxTurns:    20,
	}
}

func turnFixture() (*domain.Lead, *domain.Conversation, *domain.AgentSession, *Inbound) {
	lead := &domain.Lead{ID: uuid.New(), Phone: "+5581999887766", Stage: domain.StageIdentifying}
	conv := &domain.Conversation{ID: uuid.New(), LeadID: lead.ID}
	sess := &domain.AgentSession{ID: uuid.New(), ConversationID: conv.ID}
	in := &Inbound{
		Phone:            lead.Phone,
		Text:             "me chamo Ana",
		GatewayMessageID: "wamid-test-1",
		ContentType:      domain.ContentText,
	}
	return lead, conv, sess, in
}

func TestPersistTurnWritesThroughOneQuerier(t *testing.T) {
	o := testOrchestrator()
	lead, conv, sess, in := turnFixture()
	q := &recordingQuerier{}

	_, err := o.persistTurnTx(context.Background(), q, lead, conv, sess,
		domain.Slots{Name: "Ana"}, domain.StageDiscoveringSolution, 12, domain.TemperatureCold,
		in, in.Text, "Prazer, Ana!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Inbound and outbound rows, the lead patch, and the session snapshot
	// must all land on the same handle, or a crash mid-turn leaves the
	// transcript ahead of the lead state.
	if got := q.count("INSERT INTO messages"); got != 2 {
		t.Fatalf("message inserts on the transaction: want 2, got %d", got)
	}
	if got := q.count("UPDATE leads"); got != 1 {
		t.Fatalf("lead updates on the transaction: want 1, got %d", got)
	}
	if got := q.count("UPDATE agent_sessions"); got != 1 {
		t.Fatalf("session saves on the transaction: want 1, got %d", got)
	}
	if got := q.count("UPDATE conversations"); got == 0 {
		t.Fatal("conversation activity not touched on the transaction")
	}
}

func TestPersistTurnTerminalStageCancelsReengagements(t *testing.T) {
	o := testOrchestrator()
	lead, conv, sess, in := turnFixture()
	q := &recordingQuerier{}

	_, err := o.persistTurnTx(context.Background(), q, lead, conv, sess,
		domain.Slots{}, domain.StageScheduled, 80, domain.TemperatureHot,
		in, in.Text, "Reunião confirmada!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := q.count("UPDATE follow_ups"); got != 1 {
		t.Fatalf("pending reengagements not canceled in the turn transaction, got %d statements", got)
	}
}

func TestNeedsReengagement(t *testing.T) {
	cases := []struct {
		stage domain.Stage
		want  bool
	}{
		{domain.StageInitial, false},
		// A greeted lead who never answered the name question still gets
		// the reengagement ladder.
		{domain.StageIdentifying, true},
		{domain.StageDiscoveringSolution, true},
		{domain.StageCapturingBill, true},
		{domain.StageCheckingCompetitor, true},
		{domain.StageScheduling, false},
		{domain.StageScheduled, false},
		{domain.StageWon, false},
		{domain.StageLost, false},
		{domain.StageAbandoned, false},
	}
	for _, tc := range cases {
		if got := needsReengagement(tc.stage); got != tc.want {
			t.Fatalf("needsReengagement(%q) = %v, want %v", tc.stage, got, tc.want)
		}
	}
}

func TestPlanReengagementCreatesPendingRow(t *testing.T) {
	log := logger.New("test")
	agent := NewFollowUpAgent(
		followups.NewService(followups.NewRepository(nil), platformevents.NewInMemoryBus(log), log),
		leadsrepo.New(nil),
	)
	q := &recordingQuerier{}

	err := agent.PlanReengagement(context.Background(), q, uuid.New(),
		domain.FollowUpReengage30M, time.Now().Add(30*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := q.count("INSERT INTO follow_ups"); got != 1 {
		t.Fatalf("follow-up inserts: want 1, got %d", got)
	}
}

func TestMergeSlotsKeepsFilledFields(t *testing.T) {
	base := domain.Slots{Name: "Ana", MonthlyBillAmount: 500}
	updates := domain.Slots{
		Name:            "Outra Pessoa",
		Email:           "ana@example.com",
		MeetingDatetime: "2026-09-01T14:00:00Z",
		AttendeeEmails:  []string{"ana@example.com"},
	}

	out := mergeSlots(base, updates)
	if out.Name != "Ana" {
		t.Fatalf("filled name overwritten: %q", out.Name)
	}
	if out.Email != "ana@example.com" {
		t.Fatalf("empty email not filled: %q", out.Email)
	}
	if out.MeetingDatetime != "2026-09-01T14:00:00Z" {
		t.Fatalf("meeting datetime not merged: %q", out.MeetingDatetime)
	}
	if len(out.AttendeeEmails) != 1 {
		t.Fatalf("attendee emails not merged: %v", out.AttendeeEmails)
	}
}
