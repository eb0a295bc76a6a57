package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"solar_sdr_backend/internal/knowledge"
	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/internal/media"
	"solar_sdr_backend/platform/apperr"
)

// defaultPersona is the built-in SDR persona used when no prompt file is
// configured. Production deployments override it via PERSONA_PROMPT_PATH.
const defaultPersona = `Você é a Sol, consultora de energia solar. Seu objetivo é qualificar o cliente
de forma leve e natural pelo WhatsApp: descobrir o nome, entender qual solução
interessa (usina própria, aluguel de lote, desconto na conta ou investimento),
o valor da conta de luz, se já tem desconto com outra empresa, e agendar uma
reunião com um especialista. Seja calorosa, direta e nunca envie mais de três
parágrafos curtos por mensagem. Nunca peça documentos pessoais ou dados
bancários.`

// LoadPersona reads the persona prompt from the configured path, falling
// back to the built-in default.
func LoadPersona(path string) (string, error) {
	if path == "" {
		return defaultPersona, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to read persona prompt", err)
	}
	return string(raw), nil
}

// ModelReply is the structured response the coordinator asks the model for.
type ModelReply struct {
	Reply       string        `json:"reply"`
	SlotUpdates *domain.Slots `json:"slot_updates,omitempty"`
	NextAction  string        `json:"next_action,omitempty"`
}

// replyContract is appended to the system prompt so the model returns the
// structured shape the post-processor expects. The meeting slots are absent
// on purpose: only the scheduling tools fill those.
const replyContract = `

Responda SEMPRE com um JSON válido neste formato:
{"reply": "texto para o cliente", "slot_updates": {"name": "", "email": "", "solution": "", "monthly_bill_amount": 0, "competitor_name": "", "competitor_discount_pct": 0}, "next_action": ""}
Inclua em slot_updates apenas os campos que a mensagem do cliente realmente revelou.`

// BuildSystemPrompt assembles persona, lead state, and retrieved knowledge
// into the coordinator system prompt.
func BuildSystemPrompt(persona string, lead *domain.Lead, slots domain.Slots, hint string, chunks []knowledge.ScoredChunk, artifact *media.Artifact) string {
	var sb strings.Builder
	sb.WriteString(persona)

	sb.WriteString("\n\n## Estado do cliente\n")
	fmt.Fprintf(&sb, "Etapa atual: %s\n", lead.Stage)
	if slots.Name != "" {
		fmt.Fprintf(&sb, "Nome: %s\n", slots.Name)
	}
	if slots.Solution != "" && slots.Solution != domain.SolutionUnknown {
		fmt.Fprintf(&sb, "Solução de interesse: %s\n", slots.Solution)
	}
	if slots.MonthlyBillAmount > 0 {
		fmt.Fprintf(&sb, "Conta mensal: R$ %.2f\n", slots.MonthlyBillAmount)
	}
	if slots.HasCompetitor != nil {
		if *slots.HasCompetitor {
			fmt.Fprintf(&sb, "Já tem desconto com: %s (%.0f%%)\n", slots.CompetitorName, slots.CompetitorDiscountPct)
		} else {
			sb.WriteString("Não tem desconto com concorrente\n")
		}
	}
	if hint != "" {
		fmt.Fprintf(&sb, "Próximo objetivo da conversa: %s\n", hint)
	}

	if len(chunks) > 0 {
		sb.WriteString("\n## Informações de referência\n")
		for _, sc := range chunks {
			fmt.Fprintf(&sb, "- %s: %s\n", sc.Chunk.Question, sc.Chunk.Answer)
		}
	}

	if artifact != nil {
		sb.WriteString("\n## Mídia recebida nesta mensagem\n")
		switch artifact.Kind {
		case media.KindImage:
			fmt.Fprintf(&sb, "Imagem anexada. Texto extraído: %s\n", artifact.OCRText)
		case media.KindAudio:
			fmt.Fprintf(&sb, "Áudio transcrito: %s\n", artifact.Transcript)
		case media.KindDocument:
			fmt.Fprintf(&sb, "Documento anexado. Texto extraído: %s\n", artifact.ExtractedText)
		}
	}

	sb.WriteString(replyContract)
	return sb.String()
}

// ParseModelReply decodes the structured model response, repairing almost-
// JSON (markdown fences, trailing commas) before giving up.
func ParseModelReply(raw string) (*ModelReply, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	var reply ModelReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err == nil && reply.Reply != "" {
		return &reply, nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "model reply is not parseable json", err)
	}
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "repaired model reply still invalid", err)
	}
	if reply.Reply == "" {
		return nil, apperr.New(apperr.KindInternal, "model reply missing text")
	}
	return &reply, nil
}
