package followups

import (
	"strings"

	"solar_sdr_backend/internal/leads/domain"
)

// Template keys referenced by the orchestrator and the reminder loop.
const (
	TemplateReengageSoon    = "reengage_soon"
	TemplateReengageNextDay = "reengage_next_day"
	TemplateNurture         = "nurture"
	TemplateReminder24H     = "reminder_24h"
	TemplateReminder2H      = "reminder_2h"
	TemplateReminder30M     = "reminder_30m"
)

// templates hold the outbound copy per key. {name} falls back to a neutral
// greeting when the lead never gave one.
var templates = map[string]string{
	TemplateReengageSoon:    "Oi{name}! Vi que nossa conversa ficou pela metade. Posso te ajudar a continuar de onde paramos?",
	TemplateReengageNextDay: "Oi{name}, tudo bem? Ontem começamos a falar sobre economia na sua conta de luz. Ainda tem interesse em saber quanto você pode economizar?",
	TemplateNurture:         "Oi{name}! Só passando para lembrar que a economia com energia solar começa já na primeira conta. Quando quiser, é só me chamar por aqui.",
	TemplateReminder24H:     "Oi{name}! Lembrete: nossa reunião é amanhã. Qualquer imprevisto, me avisa por aqui que a gente reagenda.",
	TemplateReminder2H:      "Oi{name}! Nossa reunião é daqui a 2 horas. Já deixei tudo preparado, te espero lá!",
	TemplateReminder30M:     "Oi{name}! Nossa reunião começa em 30 minutos. Até já!",
}

// kindDefaults maps follow-up kinds to their default template key.
var kindDefaults = map[domain.FollowUpKind]string{
	domain.FollowUpReengage30M: TemplateReengageSoon,
	domain.FollowUpReengage24H: TemplateReengageNextDay,
	domain.FollowUpNurture:     TemplateNurture,
	domain.FollowUpReminder24H: TemplateReminder24H,
	domain.FollowUpReminder2H:  TemplateReminder2H,
	domain.FollowUpReminder30M: TemplateReminder30M,
}

// DefaultTemplateKey returns the standard template for a kind.
func DefaultTemplateKey(kind domain.FollowUpKind) string {
	if key, ok := kindDefaults[kind]; ok {
		return key
	}
	return TemplateNurture
}

// Render produces the outbound text for a follow-up. Unknown keys fall back
// to the kind default so a stale row still sends something coherent.
func Render(templateKey string, kind domain.FollowUpKind, lead *domain.Lead) string {
	text, ok := templates[templateKey]
	if !ok {
		text = templates[DefaultTemplateKey(kind)]
	}

	name := ""
	if lead != nil && lead.DisplayName != "" {
		name = " " + firstName(lead.DisplayName)
	}
	return strings.ReplaceAll(text, "{name}", name)
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
