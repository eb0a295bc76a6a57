// Package qualification implements the staged funnel: rule-based slot
// extraction, stage advancement, and lead scoring.
package qualification

import (
	"regexp"
	"strconv"
	"strings"

	"solar_sdr_backend/internal/leads/domain"
)

var (
	nameRe = regexp.MustCompile(`(?i)\b(?:meu nome é|me chamo|pode me chamar de|aqui é o|aqui é a|sou o|sou a)\s+([\p{L}]+(?:\s+[\p{L}]+){0,2})`)

	// currencyRe matches "R$ 850", "R$ 1.234,56", and "pago 850".
	currencyRe = regexp.MustCompile(`(?i)(?:r\$\s*|pago\s+(?:r\$\s*)?|conta\s+de\s+(?:r\$\s*)?)(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?|\d+(?:,\d{1,2})?)`)

	percentRe = regexp.MustCompile(`(\d{1,2}(?:[.,]\d+)?)\s*%`)

	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	competitorNameRe = regexp.MustCompile(`(?i)(?:com\s+a|da|pela)\s+([\p{Lu}][\p{L}]+)`)
)

// correctionMarkers signal the user is overriding an earlier answer, which
// is the only case where extraction may overwrite a filled slot.
var correctionMarkers = []string{
	"na verdade", "corrigindo", "me enganei", "errei", "quis dizer", "não é isso",
}

// solutionKeywords maps lowercase phrases to the solution they indicate.
// Checked in order so the more specific phrases win.
var solutionKeywords = []struct {
	phrase   string
	solution domain.Solution
}{
	{"usina própria", domain.SolutionOwnPlant},
	{"usina propria", domain.SolutionOwnPlant},
	{"minha usina", domain.SolutionOwnPlant},
	{"aluguel de lote", domain.SolutionLotRental},
	{"alugar um lote", domain.SolutionLotRental},
	{"lote", domain.SolutionLotRental},
	{"desconto maior", domain.SolutionDiscountHigh},
	{"desconto alto", domain.SolutionDiscountHigh},
	{"desconto menor", domain.SolutionDiscountLow},
	{"desconto baixo", domain.SolutionDiscountLow},
	{"investimento", domain.SolutionInvestment},
	{"investir", domain.SolutionInvestment},
	{"usina", domain.SolutionOwnPlant},
	{"desconto", domain.SolutionDiscountLow},
}

// solutionByDigit resolves a bare menu pick ("1".."5").
var solutionByDigit = map[string]domain.Solution{
	"1": domain.SolutionOwnPlant,
	"2": domain.SolutionLotRental,
	"3": domain.SolutionDiscountHigh,
	"4": domain.SolutionDiscountLow,
	"5": domain.SolutionInvestment,
}

// noCompetitorMarkers indicate the lead has no current discount supplier.
var noCompetitorMarkers = []string{
	"não tenho desconto", "nao tenho desconto", "não tenho nenhum", "nao tenho nenhum",
	"sem desconto", "nenhum desconto", "não tenho fornecedor", "nao tenho fornecedor",
}

// hasCompetitorMarkers indicate an existing supplier relationship.
var hasCompetitorMarkers = []string{
	"tenho desconto", "já tenho", "ja tenho", "já sou cliente", "ja sou cliente",
	"já recebo", "ja recebo",
}

// ExtractSlots applies the rule-based extractors to the inbound text and
// merges the findings into a copy of the current slots. A filled slot is
// only overwritten when the message carries a correction marker.
func ExtractSlots(current domain.Slots, text string) domain.Slots {
	updated := current
	lower := strings.ToLower(text)
	correcting := isCorrection(lower)

	if m := nameRe.FindStringSubmatch(text); m != nil {
		if updated.Name == "" || correcting {
			updated.Name = strings.TrimSpace(m[1])
		}
	}

	if m := currencyRe.FindStringSubmatch(text); m != nil {
		if amount, ok := parseBRLAmount(m[1]); ok {
			if updated.MonthlyBillAmount == 0 || correcting {
				updated.MonthlyBillAmount = amount
			}
		}
	}

	if m := emailRe.FindString(text); m != "" {
		if updated.Email == "" || correcting {
			updated.Email = m
		}
		if !contains(updated.AttendeeEmails, m) {
			updated.AttendeeEmails = append(updated.AttendeeEmails, m)
		}
	}

	if sol := extractSolution(lower); sol != domain.SolutionUnknown {
		if updated.Solution == "" || updated.Solution == domain.SolutionUnknown || correcting {
			updated.Solution = sol
		}
	}

	applyCompetitor(&updated, text, lower, correcting)

	return updated
}

func applyCompetitor(slots *domain.Slots, text, lower string, correcting bool) {
	for _, marker := range noCompetitorMarkers {
		if strings.Contains(lower, marker) {
			if slots.HasCompetitor == nil || correcting {
				no := false
				slots.HasCompetitor = &no
			}
			return
		}
	}

	hasMarker := false
	for _, marker := range hasCompetitorMarkers {
		if strings.Contains(lower, marker) {
			hasMarker = true
			break
		}
	}
	if !hasMarker && !percentRe.MatchString(text) {
		return
	}

	if slots.HasCompetitor == nil || correcting {
		yes := true
		slots.HasCompetitor = &yes
	}

	if m := percentRe.FindStringSubmatch(text); m != nil {
		if pct, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			if slots.CompetitorDiscountPct == 0 || correcting {
				slots.CompetitorDiscountPct = pct
			}
		}
	}

	if m := competitorNameRe.FindStringSubmatch(text); m != nil {
		if slots.CompetitorName == "" || correcting {
			slots.CompetitorName = m[1]
		}
	}
}

func extractSolution(lower string) domain.Solution {
	for _, kw := range solutionKeywords {
		if strings.Contains(lower, kw.phrase) {
			return kw.solution
		}
	}
	trimmed := strings.TrimSpace(lower)
	if sol, ok := solutionByDigit[trimmed]; ok {
		return sol
	}
	return domain.SolutionUnknown
}

func isCorrection(lower string) bool {
	for _, marker := range correctionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// parseBRLAmount converts "1.234,56" / "850" to a float.
func parseBRLAmount(raw string) (float64, bool) {
	normalized := strings.ReplaceAll(raw, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
