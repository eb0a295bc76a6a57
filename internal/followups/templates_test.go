package followups

import (
	"strings"
	"testing"

	"solar_sdr_backend/internal/leads/domain"
)

func TestRenderUsesFirstName(t *testing.T) {
	lead := &domain.Lead{DisplayName: "Ana Paula Souza"}
	text := Render(TemplateReengageSoon, domain.FollowUpReengage30M, lead)
	if !strings.HasPrefix(text, "Oi Ana!") {
		t.Fatalf("unexpected rendering: %q", text)
	}
	if strings.Contains(text, "{name}") {
		t.Fatalf("placeholder leaked: %q", text)
	}
}

func TestRenderWithoutName(t *testing.T) {
	text := Render(TemplateReminder2H, domain.FollowUpReminder2H, &domain.Lead{})
	if !strings.HasPrefix(text, "Oi!") {
		t.Fatalf("neutral greeting expected: %q", text)
	}

	text = Render(TemplateNurture, domain.FollowUpNurture, nil)
	if strings.Contains(text, "{name}") {
		t.Fatalf("placeholder leaked for nil lead: %q", text)
	}
}

func TestRenderUnknownKeyFallsBackToKind(t *testing.T) {
	text := Render("deleted_template", domain.FollowUpReminder30M, &domain.Lead{DisplayName: "Bruno"})
	if text != Render(TemplateReminder30M, domain.FollowUpReminder30M, &domain.Lead{DisplayName: "Bruno"}) {
		t.Fatalf("unknown key did not fall back to kind default: %q", text)
	}
	if text == "" {
		t.Fatal("empty rendering")
	}
}

func TestDefaultTemplateKey(t *testing.T) {
	if key := DefaultTemplateKey(domain.FollowUpReengage24H); key != TemplateReengageNextDay {
		t.Fatalf("unexpected default: %q", key)
	}
	// Unknown kinds still produce sendable copy.
	if key := DefaultTemplateKey(domain.FollowUpKind("SOMETHING_NEW")); key != TemplateNurture {
		t.Fatalf("unexpected fallback: %q", key)
	}
}
