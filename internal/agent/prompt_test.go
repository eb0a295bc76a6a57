package agent

import (
	"strings"
	"testing"

	"solar_sdr_backend/internal/knowledge"
	"solar_sdr_backend/internal/leads/domain"
)

func TestParseModelReplyPlainJSON(t *testing.T) {
	reply, err := ParseModelReply(`{"reply": "Oi! Qual seu nome?", "next_action": "perguntar o nome"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Reply != "Oi! Qual seu nome?" {
		t.Fatalf("unexpected reply: %q", reply.Reply)
	}
	if reply.NextAction != "perguntar o nome" {
		t.Fatalf("unexpected next action: %q", reply.NextAction)
	}
}

func TestParseModelReplyMarkdownFence(t *testing.T) {
	raw := "```json\n{\"reply\": \"Claro, posso explicar.\"}\n```"
	reply, err := ParseModelReply(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Reply != "Claro, posso explicar." {
		t.Fatalf("unexpected reply: %q", reply.Reply)
	}
}

func TestParseModelReplyRepairsTrailingComma(t *testing.T) {
	reply, err := ParseModelReply(`{"reply": "Beleza!", "next_action": "perguntar o valor da conta",}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Reply != "Beleza!" {
		t.Fatalf("unexpected reply: %q", reply.Reply)
	}
	if reply.NextAction != "perguntar o valor da conta" {
		t.Fatalf("unexpected next action: %q", reply.NextAction)
	}
}

func TestReplyContractOmitsMeetingSlots(t *testing.T) {
	lead := &domain.Lead{Stage: domain.StageScheduling}
	prompt := BuildSystemPrompt("persona-base", lead, domain.Slots{}, "", nil, nil)

	// The scheduling tools are the only writer of the meeting slots; the
	// coordinator contract must not invite the model to fill them.
	for _, banned := range []string{"meeting_datetime", "attendee_emails", "stage_suggestion"} {
		if strings.Contains(prompt, banned) {
			t.Fatalf("reply contract still asks the model for %q", banned)
		}
	}
}

func TestParseModelReplySlotUpdates(t *testing.T) {
	reply, err := ParseModelReply(`{"reply": "Anotei!", "slot_updates": {"name": "Ana", "monthly_bill_amount": 720}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.SlotUpdates == nil {
		t.Fatal("slot updates not decoded")
	}
	if reply.SlotUpdates.Name != "Ana" || reply.SlotUpdates.MonthlyBillAmount != 720 {
		t.Fatalf("unexpected slot updates: %+v", reply.SlotUpdates)
	}
}

func TestParseModelReplyRejectsEmptyReply(t *testing.T) {
	if _, err := ParseModelReply(`{"reply": ""}`); err == nil {
		t.Fatal("expected error for empty reply text")
	}
	if _, err := ParseModelReply("not json at all {{{"); err == nil {
		t.Fatal("expected error for unparseable text")
	}
}

func TestBuildSystemPromptIncludesState(t *testing.T) {
	lead := &domain.Lead{Stage: domain.StageCapturingBill}
	no := false
	slots := domain.Slots{
		Name:          "Ana",
		Solution:      domain.SolutionLotRental,
		HasCompetitor: &no,
	}
	chunks := []knowledge.ScoredChunk{
		{Chunk: knowledge.Chunk{Question: "Tem fidelidade?", Answer: "Aviso prévio de 90 dias."}},
	}

	prompt := BuildSystemPrompt("persona-base", lead, slots, "perguntar o valor da conta", chunks, nil)

	for _, want := range []string{
		"persona-base",
		"Etapa atual: CAPTURING_BILL",
		"Nome: Ana",
		"Não tem desconto com concorrente",
		"perguntar o valor da conta",
		"Tem fidelidade?",
		`"reply"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
