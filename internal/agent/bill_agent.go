package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"solar_sdr_backend/internal/media"
	"solar_sdr_backend/platform/ai/gemini"
	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/logger"
)

const billSystemPrompt = `Você analisa contas de energia elétrica brasileiras. Extraia do documento:
- amount: valor total da fatura em reais (número)
- kwh: consumo em kWh (número, 0 se ausente)
- distributor: nome da distribuidora (string vazia se ausente)
- reference_period: mês de referência, ex "07/2026" (string vazia se ausente)
Responda somente com o JSON. Se a imagem não for uma conta de luz, responda {"amount": 0}.`

// BillAgent reads a power-bill image or PDF and extracts the monthly amount.
type BillAgent struct {
	ai  *gemini.Client
	log *logger.Logger
}

// NewBillAgent creates the bill analyzer subagent.
func NewBillAgent(ai *gemini.Client, log *logger.Logger) *BillAgent {
	return &BillAgent{ai: ai, log: log}
}

// Name implements Subagent.
func (a *BillAgent) Name() string { return "bill" }

// Handle extracts the bill reading from the turn's media artifact. Without
// an artifact it falls back to the regex extractor via the returned nil
// analysis, letting the coordinator ask for the value in text.
func (a *BillAgent) Handle(ctx context.Context, input *Input) (*Result, error) {
	art := input.Artifact
	if art == nil || len(art.Bytes) == 0 {
		return &Result{Source: a.Name()}, nil
	}
	if !art.Format.IsImage() && art.Format != media.FormatPDF {
		return &Result{Source: a.Name()}, nil
	}

	analysis, err := a.analyze(ctx, art)
	if err != nil {
		return nil, err
	}

	result := &Result{Source: a.Name(), BillAnalysis: analysis}
	if analysis.Amount > 0 {
		slots := input.Slots
		if slots.MonthlyBillAmount == 0 {
			slots.MonthlyBillAmount = analysis.Amount
			result.SlotUpdates = &slots
		}
		result.NextAction = fmt.Sprintf("confirmar conta de R$ %.2f com o cliente", analysis.Amount)
	}
	return result, nil
}

func (a *BillAgent) analyze(ctx context.Context, art *media.Artifact) (*BillAnalysis, error) {
	req := gemini.CompletionRequest{
		System: billSystemPrompt,
		Messages: []gemini.Message{
			{Role: "user", Text: "Analise esta conta de energia."},
		},
		Media: []gemini.Media{
			{MIMEType: art.MIME, Data: art.Bytes},
		},
		Temperature: 0.1,
		JSONOutput:  true,
	}

	raw, err := a.ai.Complete(ctx, req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "bill analysis model call failed", err)
	}

	var analysis BillAnalysis
	cleaned := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(cleaned)
		if rerr != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "bill analysis output is not json", err)
		}
		if err := json.Unmarshal([]byte(repaired), &analysis); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "bill analysis output is not json", err)
		}
	}
	return &analysis, nil
}
