package agent

import (
	"context"
	"strings"
	"time"

	"solar_sdr_backend/internal/events"
	"solar_sdr_backend/internal/followups"
	"solar_sdr_backend/internal/knowledge"
	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/internal/media"
	"solar_sdr_backend/internal/qualification"
	"solar_sdr_backend/platform/ai/gemini"
	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/config"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

const (
	degradedReply      = "Opa, tive um probleminha aqui do meu lado. Pode repetir em instantes?"
	mediaFallbackReply = "Não consegui abrir o arquivo que você mandou. Pode me dizer o valor da conta em texto?"
	reengageDelay      = 30 * time.Minute
)

// Inbound is one normalized gateway message handed to the orchestrator.
type Inbound struct {
	Phone            string
	PushName         string
	Text             string
	GatewayMessageID string
	ContentType      domain.ContentType
	Media            *media.Ref
}

// Orchestrator runs one conversation turn end to end: resolve state, ingest
// media, check guardrails, route to a subagent or the coordinator model,
// apply the state machine, persist, and deliver through the humanized
// sender. Turns for the same lead are strictly serialized.
type Orchestrator struct {
	repo      *leadsrepo.Repository
	pipeline  *media.Pipeline
	knowledge *knowledge.Service
	ai        *gemini.Client
	bus       platformevents.Bus
	sender    *Sender
	locks     *LeadLocks
	log       *logger.Logger

	qualAgent     *QualificationAgent
	knowAgent     *KnowledgeAgent
	billAgent     *BillAgent
	calendarAgent *CalendarAgent
	crmAgent      *CRMAgent
	followupAgent *FollowUpAgent
	followupSvc   *followups.Service

	persona      string
	turnBudget   time.Duration
	historyLimit int
	maxTurns     int
	topK         int
}

// OrchestratorDeps bundles the orchestrator's collaborators.
type OrchestratorDeps struct {
	Repo          *leadsrepo.Repository
	Pipeline      *media.Pipeline
	Knowledge     *knowledge.Service
	AI            *gemini.Client
	Bus           platformevents.Bus
	Sender        *Sender
	Locks         *LeadLocks
	QualAgent     *QualificationAgent
	KnowAgent     *KnowledgeAgent
	BillAgent     *BillAgent
	CalendarAgent *CalendarAgent
	CRMAgent      *CRMAgent
	FollowUpAgent *FollowUpAgent
	FollowupSvc   *followups.Service
	Logger        *logger.Logger
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(deps OrchestratorDeps, cfg config.OrchestratorConfig, kcfg config.KnowledgeConfig) (*Orchestrator, error) {
	persona, err := LoadPersona(cfg.GetPersonaPromptPath())
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		repo:          deps.Repo,
		pipeline:      deps.Pipeline,
		knowledge:     deps.Knowledge,
		ai:            deps.AI,
		bus:           deps.Bus,
		sender:        deps.Sender,
		locks:         deps.Locks,
		log:           deps.Logger,
		qualAgent:     deps.QualAgent,
		knowAgent:     deps.KnowAgent,
		billAgent:     deps.BillAgent,
		calendarAgent: deps.CalendarAgent,
		crmAgent:      deps.CRMAgent,
		followupAgent: deps.FollowUpAgent,
		followupSvc:   deps.FollowupSvc,
		persona:       persona,
		turnBudget:    cfg.GetTurnBudget(),
		historyLimit:  cfg.GetHistoryLimit(),
		maxTurns:      cfg.GetSessionMaxTurns(),
		topK:          kcfg.GetKnowledgeTopK(),
	}, nil
}

// HandleInbound processes one inbound message. It holds the lead's lock for
// the whole turn so no follow-up or second message can interleave.
func (o *Orchestrator) HandleInbound(ctx context.Context, in *Inbound) error {
	o.locks.Lock(in.Phone)
	defer o.locks.Unlock(in.Phone)

	ctx, cancel := context.WithTimeout(ctx, o.turnBudget)
	defer cancel()

	start := time.Now()
	log := o.log.WithLead(in.Phone)
	pool := o.repo.Pool()

	if in.GatewayMessageID != "" {
		seen, err := o.repo.HasGatewayMessage(ctx, pool, in.GatewayMessageID)
		if err != nil {
			return err
		}
		if seen {
			log.Debug("duplicate gateway message skipped", "gateway_message_id", in.GatewayMessageID)
			return nil
		}
	}

	lead, conv, sess, err := o.resolveState(ctx, in)
	if err != nil {
		return err
	}

	artifact := o.ingestMedia(ctx, lead, in)
	text := strings.TrimSpace(in.Text)
	if text == "" && artifact != nil && artifact.Transcript != "" {
		text = artifact.Transcript
	}

	// Unreadable media with no caption: ask for the value in text instead
	// of guessing.
	if in.Media != nil && artifact == nil && text == "" {
		return o.shortCircuit(ctx, lead, conv, in, text, mediaFallbackReply, "media-fallback", true, start)
	}

	if term := CheckGuardrails(text); term != "" {
		o.bus.Publish(ctx, events.NewGuardrailFired(lead.ID, term))
		return o.shortCircuit(ctx, lead, conv, in, text, refusalReply, "guardrail", false, start)
	}

	history, err := o.repo.GetConversationHistory(ctx, pool, conv.ID, o.historyLimit)
	if err != nil {
		return err
	}

	input := &Input{Lead: lead, Slots: sess.Slots, Text: text, Artifact: artifact, History: history}

	// The deterministic extractor runs on every turn. Model output can add
	// slots afterwards but never overwrite what regex already captured.
	qres, err := o.qualAgent.Handle(ctx, input)
	if err != nil {
		return err
	}
	slots := *qres.SlotUpdates
	input.Slots = slots

	hint := qres.NextAction
	if qres.NeedsHandoff {
		// Investment track: a human specialist takes over. The model closes
		// the loop; the CRM note carries the signal to the sales team.
		o.crmAgent.NoteHandoff(ctx, lead)
		hint = "explicar que um especialista humano vai assumir a conversa sobre investimento e entrará em contato em breve"
	}

	intent := ClassifyIntent(text, artifact)
	reply, delegated, slots, degraded := o.route(ctx, input, intent, slots, hint)

	prevStage := lead.Stage
	newStage, _ := o.qualAgent.machine.Advance(lead.Stage, slots)
	if !qualification.ValidTransition(lead.Stage, newStage) {
		newStage = lead.Stage
	}
	score, temperature := o.qualAgent.ScoreAndClassify(slots, conv.MessageCount+1)

	outMsg, err := o.persistTurn(ctx, lead, conv, sess, slots, newStage, score, temperature, in, text, reply)
	if err != nil {
		if apperr.Is(err, apperr.KindIntegrity) {
			log.TurnError(in.Phone, string(lead.Stage), err)
		}
		return err
	}

	if err := o.sendReply(ctx, lead, outMsg, reply); err != nil {
		log.TurnError(in.Phone, string(newStage), err)
	}

	o.applySideEffects(ctx, lead, prevStage, score, text)

	o.bus.Publish(ctx, events.NewTurnCompleted(lead.ID, newStage, delegated, time.Since(start).Milliseconds(), degraded))
	return nil
}

// resolveState loads or creates the lead, conversation, and agent session.
func (o *Orchestrator) resolveState(ctx context.Context, in *Inbound) (*domain.Lead, *domain.Conversation, *domain.AgentSession, error) {
	pool := o.repo.Pool()

	lead, err := o.repo.UpsertLeadByPhone(ctx, pool, in.Phone)
	if err != nil {
		return nil, nil, nil, err
	}
	conv, err := o.repo.GetOrCreateConversation(ctx, pool, lead.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	sess, err := o.repo.GetOrCreateSession(ctx, pool, conv.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	if conv.MessageCount == 0 {
		o.bus.Publish(ctx, events.NewLeadCreated(lead.ID, lead.Phone))
	}

	// A lead abandoned by the sweep comes back to life on contact.
	if lead.Stage == domain.StageAbandoned {
		stage := domain.StageIdentifying
		lead, err = o.repo.UpdateLead(ctx, pool, lead.ID.String(), domain.LeadPatch{Stage: &stage})
		if err != nil {
			return nil, nil, nil, err
		}
	}

	if lead.DisplayName == "" && in.PushName != "" {
		lead.DisplayName = in.PushName
	}

	return lead, conv, sess, nil
}

// ingestMedia runs the media pipeline. Failures degrade to a text-only turn
// instead of failing it.
func (o *Orchestrator) ingestMedia(ctx context.Context, lead *domain.Lead, in *Inbound) *media.Artifact {
	if in.Media == nil {
		return nil
	}
	artifact, err := o.pipeline.Ingest(ctx, *in.Media)
	if err != nil {
		o.log.WithLead(lead.Phone).Warn("media ingest failed", "error", err)
		o.bus.Publish(ctx, events.NewMediaIngestFailed(lead.ID, string(in.ContentType), err.Error()))
		return nil
	}
	if artifact.Err != "" {
		o.bus.Publish(ctx, events.NewMediaIngestFailed(lead.ID, string(in.ContentType), artifact.Err))
	}
	return artifact
}

func inboundMessage(conv *domain.Conversation, in *Inbound, text string) *domain.Message {
	msg := &domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionInbound,
		ContentType:    in.ContentType,
		Content:        text,
		Status:         domain.MessageStatusDelivered,
		Timestamp:      time.Now(),
	}
	if in.GatewayMessageID != "" {
		msg.GatewayMessageID = &in.GatewayMessageID
	}
	return msg
}

func outboundMessage(conv *domain.Conversation, reply string) *domain.Message {
	return &domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionOutbound,
		ContentType:    domain.ContentText,
		Content:        reply,
		Status:         domain.MessageStatusDelivered,
		Timestamp:      time.Now(),
	}
}

// route picks the subagent for the turn and produces the reply text. Any
// model-path failure degrades to the apology instead of dropping the turn.
func (o *Orchestrator) route(ctx context.Context, input *Input, intent Intent, slots domain.Slots, hint string) (reply, delegated string, outSlots domain.Slots, degraded bool) {
	outSlots = slots
	log := o.log.WithLead(input.Lead.Phone)

	switch intent {
	case IntentCalendar:
		if res, err := o.calendarAgent.Handle(ctx, input); err == nil {
			// A booking made by the tools must flow into the slots, or the
			// lead would sit in SCHEDULING with a confirmed meeting.
			if res.SlotUpdates != nil {
				outSlots = mergeSlots(outSlots, *res.SlotUpdates)
			}
			return res.Reply, o.calendarAgent.Name(), outSlots, false
		} else {
			log.Warn("calendar agent failed", "error", err)
		}

	case IntentBill:
		if res, err := o.billAgent.Handle(ctx, input); err == nil {
			if res.SlotUpdates != nil {
				outSlots = mergeSlots(outSlots, *res.SlotUpdates)
				input.Slots = outSlots
			}
			if res.NextAction != "" {
				hint = res.NextAction
			}
			delegated = o.billAgent.Name()
		} else {
			log.Warn("bill agent failed", "error", err)
		}

	case IntentFollowUp:
		// The lead asked for time. Plan the reengagement now and let the
		// coordinator phrase a graceful goodbye.
		if _, err := o.followupAgent.Handle(ctx, input); err != nil {
			log.Warn("follow-up planning failed", "error", err)
		} else {
			hint = "confirmar que tudo bem falar depois e que vamos retomar a conversa, sem pressionar"
			delegated = o.followupAgent.Name()
		}

	case IntentKnowledge:
		if res, err := o.knowAgent.Handle(ctx, input); err == nil && res.Reply != "" {
			if nudge := followupNudge(input.Lead.Stage); nudge != "" {
				res.Reply += "\n\n" + nudge
			}
			return res.Reply, o.knowAgent.Name(), outSlots, false
		} else if err != nil {
			log.Warn("knowledge agent failed", "error", err)
		}
	}

	reply, modelSlots, degraded := o.coordinate(ctx, input, hint)
	if modelSlots != nil {
		// Only a confirmed booking writes the meeting slot. The coordinator
		// model never moves a lead to SCHEDULED on its own.
		modelSlots.MeetingDatetime = ""
		outSlots = mergeSlots(outSlots, *modelSlots)
	}
	if delegated == "" {
		delegated = "coordinator"
	}
	return reply, delegated, outSlots, degraded
}

// coordinate is the default coordinator model call with grounded retrieval.
func (o *Orchestrator) coordinate(ctx context.Context, input *Input, hint string) (string, *domain.Slots, bool) {
	var chunks []knowledge.ScoredChunk
	if strings.Contains(input.Text, "?") || len(input.Text) > 120 {
		found, err := o.knowledge.Search(ctx, input.Text, o.topK)
		if err != nil {
			o.log.WithLead(input.Lead.Phone).Debug("knowledge retrieval failed", "error", err)
		} else {
			chunks = found
		}
	}

	system := BuildSystemPrompt(o.persona, input.Lead, input.Slots, hint, chunks, input.Artifact)

	messages := make([]gemini.Message, 0, len(input.History)+1)
	for _, msg := range input.History {
		role := "user"
		if msg.Direction == domain.DirectionOutbound {
			role = "model"
		}
		messages = append(messages, gemini.Message{Role: role, Text: msg.Content})
	}
	messages = append(messages, gemini.Message{Role: "user", Text: input.Text})

	req := gemini.CompletionRequest{
		System:      system,
		Messages:    messages,
		Temperature: 0.7,
		JSONOutput:  true,
	}
	if input.Artifact != nil && len(input.Artifact.Bytes) > 0 && input.Artifact.Kind == media.KindImage {
		req.Media = []gemini.Media{{MIMEType: input.Artifact.MIME, Data: input.Artifact.Bytes}}
	}

	raw, err := o.ai.Complete(ctx, req)
	if err != nil {
		o.log.WithLead(input.Lead.Phone).Error("coordinator model call failed", "error", err)
		return degradedReply, nil, true
	}

	parsed, err := ParseModelReply(raw)
	if err != nil {
		o.log.WithLead(input.Lead.Phone).Warn("unparseable model reply, sending raw text", "error", err)
		return strings.TrimSpace(raw), nil, false
	}
	return parsed.Reply, parsed.SlotUpdates, false
}

// persistTurn commits the whole turn in one transaction, so a crash mid-turn
// never leaves the inbound message stored without the lead and session that
// go with it. It returns the stored outbound message for delivery.
func (o *Orchestrator) persistTurn(ctx context.Context, lead *domain.Lead, conv *domain.Conversation, sess *domain.AgentSession, slots domain.Slots, stage domain.Stage, score int, temperature domain.Temperature, in *Inbound, text, reply string) (*domain.Message, error) {
	var out *domain.Message
	err := o.repo.InTx(ctx, func(q leadsrepo.Querier) error {
		var err error
		out, err = o.persistTurnTx(ctx, q, lead, conv, sess, slots, stage, score, temperature, in, text, reply)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) persistTurnTx(ctx context.Context, q leadsrepo.Querier, lead *domain.Lead, conv *domain.Conversation, sess *domain.AgentSession, slots domain.Slots, stage domain.Stage, score int, temperature domain.Temperature, in *Inbound, text, reply string) (*domain.Message, error) {
	if _, err := o.repo.AppendMessage(ctx, q, inboundMessage(conv, in, text)); err != nil {
		return nil, err
	}

	patch := buildLeadPatch(lead, slots, stage, score, temperature)
	updated, err := o.repo.UpdateLead(ctx, q, lead.ID.String(), patch)
	if err != nil {
		return nil, err
	}
	*lead = *updated

	sess.Slots = slots
	sess.Turns = append(sess.Turns,
		domain.SessionTurn{Role: "user", Text: text},
		domain.SessionTurn{Role: "model", Text: reply},
	)
	sess.TrimTurns(o.maxTurns)
	if err := o.repo.SaveSession(ctx, q, sess); err != nil {
		return nil, err
	}

	if err := o.repo.TouchActivity(ctx, q, conv.ID); err != nil {
		return nil, err
	}

	var out *domain.Message
	if strings.TrimSpace(reply) != "" {
		out = outboundMessage(conv, reply)
		if _, err := o.repo.AppendMessage(ctx, q, out); err != nil {
			return nil, err
		}
	}

	if stage.IsTerminal() {
		if err := o.followupSvc.CancelReengagements(ctx, q, lead.ID, "stage "+string(stage)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// persistExchange stores an inbound/outbound pair for the short-circuit
// paths that never reach the model.
func (o *Orchestrator) persistExchange(ctx context.Context, conv *domain.Conversation, in *Inbound, text, reply string) (*domain.Message, error) {
	var out *domain.Message
	err := o.repo.InTx(ctx, func(q leadsrepo.Querier) error {
		if _, err := o.repo.AppendMessage(ctx, q, inboundMessage(conv, in, text)); err != nil {
			return err
		}
		out = outboundMessage(conv, reply)
		if _, err := o.repo.AppendMessage(ctx, q, out); err != nil {
			return err
		}
		return o.repo.TouchActivity(ctx, q, conv.ID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// shortCircuit stores and sends a canned reply without a model turn.
func (o *Orchestrator) shortCircuit(ctx context.Context, lead *domain.Lead, conv *domain.Conversation, in *Inbound, text, reply, delegated string, degraded bool, start time.Time) error {
	msg, err := o.persistExchange(ctx, conv, in, text, reply)
	if err != nil {
		return err
	}
	if err := o.sendReply(ctx, lead, msg, reply); err != nil {
		return err
	}
	o.bus.Publish(ctx, events.NewTurnCompleted(lead.ID, lead.Stage, delegated, time.Since(start).Milliseconds(), degraded))
	return nil
}

// sendReply delivers an already-stored reply humanized. The caller holds
// the lead lock.
func (o *Orchestrator) sendReply(ctx context.Context, lead *domain.Lead, msg *domain.Message, reply string) error {
	if msg == nil || strings.TrimSpace(reply) == "" {
		return nil
	}
	if err := o.sender.SendLocked(ctx, lead, SplitChunks(reply)); err != nil {
		if markErr := o.repo.MarkMessageFailed(ctx, o.repo.Pool(), msg.ID); markErr != nil {
			o.log.WithLead(lead.Phone).Warn("failed to mark message failed", "error", markErr)
		}
		return err
	}
	return nil
}

// applySideEffects runs the post-turn work that must not fail the turn:
// stage events, CRM sync, and reengagement planning.
func (o *Orchestrator) applySideEffects(ctx context.Context, lead *domain.Lead, prevStage domain.Stage, score int, text string) {
	stage := lead.Stage

	if stage != prevStage {
		o.bus.Publish(ctx, events.NewStageAdvanced(lead.ID, prevStage, stage, score))
	}

	o.crmAgent.Handle(ctx, &Input{Lead: lead, Text: text})

	if needsReengagement(stage) {
		if err := o.followupAgent.PlanReengagement(ctx, o.repo.Pool(), lead.ID, domain.FollowUpReengage30M, time.Now().Add(reengageDelay)); err != nil {
			o.log.WithLead(lead.Phone).Warn("failed to plan reengagement", "error", err)
		}
	}
}

// needsReengagement reports whether a lead parked at this stage still has an
// open qualification question worth a nudge. That includes IDENTIFYING: a
// greeted lead who never answered the name question must be reengaged too.
func needsReengagement(stage domain.Stage) bool {
	switch stage {
	case domain.StageIdentifying, domain.StageDiscoveringSolution,
		domain.StageCapturingBill, domain.StageCheckingCompetitor:
		return true
	}
	return false
}

// buildLeadPatch diffs slots against the stored lead.
func buildLeadPatch(lead *domain.Lead, slots domain.Slots, stage domain.Stage, score int, temperature domain.Temperature) domain.LeadPatch {
	patch := domain.LeadPatch{}

	if slots.Name != "" && lead.DisplayName != slots.Name {
		patch.DisplayName = &slots.Name
	}
	if slots.Email != "" && (lead.Email == nil || *lead.Email != slots.Email) {
		patch.Email = &slots.Email
	}
	if slots.Solution != "" && slots.Solution != domain.SolutionUnknown && lead.Solution != slots.Solution {
		patch.Solution = &slots.Solution
	}
	if slots.MonthlyBillAmount > 0 {
		patch.MonthlyBillAmount = &slots.MonthlyBillAmount
	}
	if slots.CompetitorName != "" {
		patch.CompetitorName = &slots.CompetitorName
	}
	if slots.CompetitorDiscountPct > 0 {
		patch.CompetitorDiscountPct = &slots.CompetitorDiscountPct
	}
	if stage != lead.Stage {
		patch.Stage = &stage
	}
	if score != lead.Score {
		patch.Score = &score
	}
	if temperature != lead.Temperature {
		patch.Temperature = &temperature
	}
	return patch
}

// mergeSlots fills empty base fields from updates. Filled fields win; the
// deterministic extractor is the source of truth for corrections.
func mergeSlots(base, updates domain.Slots) domain.Slots {
	out := base
	if out.Name == "" {
		out.Name = updates.Name
	}
	if out.Email == "" {
		out.Email = updates.Email
	}
	if (out.Solution == "" || out.Solution == domain.SolutionUnknown) && updates.Solution != "" {
		out.Solution = updates.Solution
	}
	if out.MonthlyBillAmount == 0 {
		out.MonthlyBillAmount = updates.MonthlyBillAmount
	}
	if out.HasCompetitor == nil {
		out.HasCompetitor = updates.HasCompetitor
	}
	if out.CompetitorName == "" {
		out.CompetitorName = updates.CompetitorName
	}
	if out.CompetitorDiscountPct == 0 {
		out.CompetitorDiscountPct = updates.CompetitorDiscountPct
	}
	if out.MeetingDatetime == "" {
		out.MeetingDatetime = updates.MeetingDatetime
	}
	if len(out.AttendeeEmails) == 0 {
		out.AttendeeEmails = updates.AttendeeEmails
	}
	return out
}

// followupNudge is the short funnel question appended after a knowledge
// answer so informational detours still move the qualification forward.
func followupNudge(stage domain.Stage) string {
	switch stage {
	case domain.StageIdentifying:
		return "Aliás, como posso te chamar?"
	case domain.StageDiscoveringSolution:
		return "Me conta: você prefere usina própria, aluguel de lote ou desconto direto na conta?"
	case domain.StageCapturingBill:
		return "Aproveitando: quanto costuma vir sua conta de luz por mês?"
	case domain.StageCheckingCompetitor:
		return "Você já tem algum desconto de energia com outra empresa?"
	case domain.StageScheduling:
		return "Quer que eu já proponha uns horários para falar com o especialista?"
	default:
		return ""
	}
}
