package agent

import (
	"strings"

	"solar_sdr_backend/internal/media"
)

// Intent is the delegation decision for a turn.
type Intent string

const (
	IntentDirect     Intent = "direct"
	IntentCalendar   Intent = "calendar"
	IntentFollowUp   Intent = "followup"
	IntentBill       Intent = "bill"
	IntentCompetitor Intent = "competitor"
	IntentKnowledge  Intent = "knowledge"
)

// Keyword sets per intent signal. Scoring is a plain hit count; the
// strongest signal above the threshold wins.
var (
	calendarKeywords = []string{
		"agendar", "agenda", "reunião", "reuniao", "marcar", "remarcar",
		"horário", "horario", "disponibilidade", "cancelar reunião", "cancelar reuniao",
		"terça", "terca", "quarta", "quinta", "sexta", "segunda", "sábado", "sabado",
	}
	followUpKeywords = []string{
		"me lembra", "depois", "mais tarde", "semana que vem", "outro dia",
		"me chama", "te respondo", "agora não", "agora nao", "ocupado",
	}
	billKeywords = []string{
		"conta de luz", "conta de energia", "fatura", "boleto", "kwh",
		"valor da conta", "pago por mês", "pago por mes", "consumo",
	}
	competitorKeywords = []string{
		"desconto", "já tenho", "ja tenho", "outra empresa", "concorrente",
		"origo", "lemon", "cemig sim", "fornecedor",
	}
	knowledgeKeywords = []string{
		"como funciona", "o que é", "o que e", "qual a diferença", "qual a diferenca",
		"é seguro", "e seguro", "garantia", "instalação", "instalacao", "contrato",
		"fidelidade", "prazo", "painel", "placa solar", "inversor", "por que", "porque",
	}
)

const intentThreshold = 1

// ClassifyIntent computes the delegation decision from inbound text and
// media. Media routes to the bill analyzer; otherwise the keyword signal
// with the most hits wins, with a complexity heuristic steering long
// question-dense messages to knowledge.
func ClassifyIntent(text string, artifact *media.Artifact) Intent {
	if artifact != nil && (artifact.Kind == media.KindImage || artifact.Kind == media.KindDocument) {
		return IntentBill
	}

	lower := strings.ToLower(text)

	scores := map[Intent]int{
		IntentCalendar:   countKeywords(lower, calendarKeywords),
		IntentFollowUp:   countKeywords(lower, followUpKeywords),
		IntentBill:       countKeywords(lower, billKeywords),
		IntentCompetitor: countKeywords(lower, competitorKeywords),
		IntentKnowledge:  countKeywords(lower, knowledgeKeywords),
	}

	// Long, question-dense messages lean informational even without an
	// exact keyword hit.
	if len(lower) > 200 && strings.Count(lower, "?") >= 2 {
		scores[IntentKnowledge]++
	}

	best := IntentDirect
	bestScore := 0
	for _, intent := range []Intent{IntentCalendar, IntentBill, IntentCompetitor, IntentKnowledge, IntentFollowUp} {
		if scores[intent] > bestScore {
			best = intent
			bestScore = scores[intent]
		}
	}

	if bestScore < intentThreshold {
		return IntentDirect
	}
	return best
}

func countKeywords(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}
