package qualification

import (
	"testing"

	"solar_sdr_backend/internal/leads/domain"
)

func TestExtractSlotsName(t *testing.T) {
	slots := ExtractSlots(domain.Slots{}, "Oi, meu nome é João Pedro")
	if slots.Name != "João Pedro" {
		t.Fatalf("unexpected name:\nwant: %q\ngot:  %q", "João Pedro", slots.Name)
	}

	// A filled name survives a plain mention.
	slots = ExtractSlots(slots, "sou o Carlos")
	if slots.Name != "João Pedro" {
		t.Fatalf("name overwritten without correction: %q", slots.Name)
	}

	// A correction marker allows the overwrite.
	slots = ExtractSlots(slots, "na verdade me chamo Carlos")
	if slots.Name != "Carlos" {
		t.Fatalf("correction did not overwrite name:\nwant: %q\ngot:  %q", "Carlos", slots.Name)
	}
}

func TestExtractSlotsBillAmount(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"pago R$ 850 por mês", 850},
		{"minha conta de 1.234,56 tá pesada", 1234.56},
		{"R$ 400,50", 400.50},
		{"pago 600", 600},
	}
	for _, tc := range cases {
		slots := ExtractSlots(domain.Slots{}, tc.text)
		if slots.MonthlyBillAmount != tc.want {
			t.Fatalf("amount for %q:\nwant: %v\ngot:  %v", tc.text, tc.want, slots.MonthlyBillAmount)
		}
	}

	// No currency context means no extraction.
	slots := ExtractSlots(domain.Slots{}, "moro no número 850")
	if slots.MonthlyBillAmount != 0 {
		t.Fatalf("extracted amount from non-currency text: %v", slots.MonthlyBillAmount)
	}
}

func TestExtractSlotsEmail(t *testing.T) {
	slots := ExtractSlots(domain.Slots{}, "meu e-mail é joao@example.com")
	if slots.Email != "joao@example.com" {
		t.Fatalf("unexpected email: %q", slots.Email)
	}
	if len(slots.AttendeeEmails) != 1 || slots.AttendeeEmails[0] != "joao@example.com" {
		t.Fatalf("email not added to attendees: %v", slots.AttendeeEmails)
	}

	// Same address again must not duplicate the attendee list.
	slots = ExtractSlots(slots, "pode mandar para Joao@Example.com")
	if len(slots.AttendeeEmails) != 1 {
		t.Fatalf("attendee list grew on duplicate: %v", slots.AttendeeEmails)
	}

	// A second address joins the attendees but keeps the primary email.
	slots = ExtractSlots(slots, "inclui também maria@example.com")
	if slots.Email != "joao@example.com" {
		t.Fatalf("primary email overwritten: %q", slots.Email)
	}
	if len(slots.AttendeeEmails) != 2 {
		t.Fatalf("second attendee missing: %v", slots.AttendeeEmails)
	}
}

func TestExtractSolution(t *testing.T) {
	cases := []struct {
		text string
		want domain.Solution
	}{
		{"quero uma usina própria", domain.SolutionOwnPlant},
		{"me interessa o aluguel de lote", domain.SolutionLotRental},
		{"prefiro o desconto maior", domain.SolutionDiscountHigh},
		{"o desconto menor serve", domain.SolutionDiscountLow},
		{"quero investir", domain.SolutionInvestment},
		{"2", domain.SolutionLotRental},
		{"5", domain.SolutionInvestment},
	}
	for _, tc := range cases {
		slots := ExtractSlots(domain.Slots{}, tc.text)
		if slots.Solution != tc.want {
			t.Fatalf("solution for %q:\nwant: %q\ngot:  %q", tc.text, tc.want, slots.Solution)
		}
	}

	slots := ExtractSlots(domain.Slots{}, "bom dia")
	if slots.Solution != "" {
		t.Fatalf("solution extracted from unrelated text: %q", slots.Solution)
	}
}

func TestExtractCompetitor(t *testing.T) {
	slots := ExtractSlots(domain.Slots{}, "não tenho desconto nenhum")
	if slots.HasCompetitor == nil || *slots.HasCompetitor {
		t.Fatalf("expected HasCompetitor=false, got %v", slots.HasCompetitor)
	}

	slots = ExtractSlots(domain.Slots{}, "já tenho 15% com a Origo")
	if slots.HasCompetitor == nil || !*slots.HasCompetitor {
		t.Fatalf("expected HasCompetitor=true, got %v", slots.HasCompetitor)
	}
	if slots.CompetitorDiscountPct != 15 {
		t.Fatalf("unexpected discount pct: %v", slots.CompetitorDiscountPct)
	}
	if slots.CompetitorName != "Origo" {
		t.Fatalf("unexpected competitor name: %q", slots.CompetitorName)
	}

	// A bare percentage is enough to flag a competitor.
	slots = ExtractSlots(domain.Slots{}, "recebo 12,5% hoje")
	if slots.HasCompetitor == nil || !*slots.HasCompetitor {
		t.Fatalf("percentage alone did not flag competitor")
	}
	if slots.CompetitorDiscountPct != 12.5 {
		t.Fatalf("unexpected discount pct: %v", slots.CompetitorDiscountPct)
	}
}

func TestExtractSlotsMultipleInOneMessage(t *testing.T) {
	slots := ExtractSlots(domain.Slots{}, "Meu nome é Ana, pago R$ 900 e quero o aluguel de lote")
	if slots.Name == "" {
		t.Fatal("name not extracted")
	}
	if slots.MonthlyBillAmount != 900 {
		t.Fatalf("unexpected amount: %v", slots.MonthlyBillAmount)
	}
	if slots.Solution != domain.SolutionLotRental {
		t.Fatalf("unexpected solution: %q", slots.Solution)
	}
}

func TestParseBRLAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"850", 850, true},
		{"1.234,56", 1234.56, true},
		{"2.000", 2000, true},
		{"0", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseBRLAmount(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseBRLAmount(%q) = %v, %v; want %v, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
