package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"google.golang.org/genai"

	"solar_sdr_backend/internal/calendar"
	"solar_sdr_backend/internal/leads/domain"
	"solar_sdr_backend/platform/ai/gemini"
	"solar_sdr_backend/platform/apperr"
	"solar_sdr_backend/platform/logger"
)

const calendarAppName = "calendar-agent"

const calendarInstruction = `Você é a assistente de agendamento da equipe de energia solar. O cliente quer
marcar, remarcar ou cancelar uma reunião com um especialista. Use as
ferramentas disponíveis:
- FindSlots para propor horários livres
- ScheduleMeeting para confirmar um horário que o cliente aceitou
- CancelMeeting quando o cliente pedir para cancelar
Nunca confirme um horário sem chamar ScheduleMeeting. Só agende com pelo
menos um email de participante; se não tiver o email do cliente, peça.
Responda sempre em português, em tom leve de WhatsApp.`

// CalendarToolDeps carries the per-run lead context into the scheduling
// tools. The runMu on CalendarAgent keeps runs serialized, but the mutex
// protects against tool callbacks racing setup.
type CalendarToolDeps struct {
	Calendar *calendar.Service

	mu     sync.RWMutex
	lead   *domain.Lead
	slots  domain.Slots
	booked *domain.CalendarEvent
}

// SetLeadContext installs the lead for the next run and clears any booking
// left over from the previous one.
func (d *CalendarToolDeps) SetLeadContext(lead *domain.Lead, slots domain.Slots) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lead = lead
	d.slots = slots
	d.booked = nil
}

func (d *CalendarToolDeps) noteBooking(event *domain.CalendarEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.booked = event
}

// BookedEvent returns the event the current run created, if any.
func (d *CalendarToolDeps) BookedEvent() *domain.CalendarEvent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.booked
}

// LeadContext returns the current run's lead.
func (d *CalendarToolDeps) LeadContext() (*domain.Lead, domain.Slots, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.lead == nil {
		return nil, domain.Slots{}, false
	}
	return d.lead, d.slots, true
}

type findSlotsInput struct {
	From  string `json:"from,omitempty"`
	Count int    `json:"count,omitempty"`
}

type findSlotsOutput struct {
	Slots []string `json:"slots"`
}

type scheduleMeetingInput struct {
	Start     string   `json:"start"`
	Attendees []string `json:"attendees,omitempty"`
}

type scheduleMeetingOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}

type cancelMeetingInput struct {
	Reason string `json:"reason,omitempty"`
}

type cancelMeetingOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func createFindSlotsTool(deps *CalendarToolDeps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "FindSlots",
		Description: "Lists free meeting slots. Optional: from (RFC3339 datetime to search after, defaults to now), count (how many slots, defaults to 3). Returns slot start times in RFC3339.",
	}, func(ctx tool.Context, input findSlotsInput) (findSlotsOutput, error) {
		from := time.Now()
		if input.From != "" {
			parsed, err := time.Parse(time.RFC3339, input.From)
			if err != nil {
				return findSlotsOutput{}, fmt.Errorf("invalid from datetime: %w", err)
			}
			from = parsed
		}
		count := input.Count
		if count <= 0 || count > 5 {
			count = 3
		}

		slots, err := deps.Calendar.FindSlots(context.Background(), from, count)
		if err != nil {
			return findSlotsOutput{}, err
		}
		out := findSlotsOutput{Slots: make([]string, 0, len(slots))}
		for _, s := range slots {
			out.Slots = append(out.Slots, s.Start.Format(time.RFC3339))
		}
		return out, nil
	})
}

func createScheduleMeetingTool(deps *CalendarToolDeps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "ScheduleMeeting",
		Description: "Books the meeting at the given RFC3339 start time. Attendees defaults to the lead's known email. Rebooking moves an existing meeting.",
	}, func(ctx tool.Context, input scheduleMeetingInput) (scheduleMeetingOutput, error) {
		lead, slots, ok := deps.LeadContext()
		if !ok {
			return scheduleMeetingOutput{Success: false, Message: "missing lead context"}, fmt.Errorf("missing lead context")
		}

		start, err := time.Parse(time.RFC3339, input.Start)
		if err != nil {
			return scheduleMeetingOutput{Success: false, Message: "Horário inválido"}, fmt.Errorf("invalid start datetime: %w", err)
		}

		attendees := input.Attendees
		if len(attendees) == 0 {
			attendees = slots.AttendeeEmails
		}
		if len(attendees) == 0 && lead.Email != nil && *lead.Email != "" {
			attendees = []string{*lead.Email}
		}
		if len(attendees) == 0 {
			return scheduleMeetingOutput{Success: false, Message: "Preciso do email do cliente para enviar o convite"}, nil
		}

		event, err := deps.Calendar.Schedule(context.Background(), lead, start, attendees)
		if err != nil {
			return scheduleMeetingOutput{Success: false, Message: "Não consegui reservar esse horário"}, err
		}
		deps.noteBooking(event)
		return scheduleMeetingOutput{
			Success: true,
			Message: "Reunião confirmada para " + start.Format("02/01 às 15:04"),
			EventID: event.ID.String(),
		}, nil
	})
}

func createCancelMeetingTool(deps *CalendarToolDeps) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "CancelMeeting",
		Description: "Cancels the lead's scheduled meeting. Optional reason.",
	}, func(ctx tool.Context, input cancelMeetingInput) (cancelMeetingOutput, error) {
		lead, _, ok := deps.LeadContext()
		if !ok {
			return cancelMeetingOutput{Success: false, Message: "missing lead context"}, fmt.Errorf("missing lead context")
		}

		reason := input.Reason
		if reason == "" {
			reason = "cliente pediu cancelamento"
		}
		if err := deps.Calendar.Cancel(context.Background(), lead, reason); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return cancelMeetingOutput{Success: true, Message: "Não havia reunião marcada"}, nil
			}
			return cancelMeetingOutput{Success: false, Message: "Não consegui cancelar agora"}, err
		}
		return cancelMeetingOutput{Success: true, Message: "Reunião cancelada"}, nil
	})
}

// CalendarAgent handles scheduling turns with a tool-calling model over the
// calendar service.
type CalendarAgent struct {
	runner         *runner.Runner
	sessionService session.Service
	toolDeps       *CalendarToolDeps
	log            *logger.Logger
	runMu          sync.Mutex
}

// NewCalendarAgent builds the scheduling agent and its tools.
func NewCalendarAgent(ai *gemini.Client, calendarSvc *calendar.Service, log *logger.Logger) (*CalendarAgent, error) {
	deps := &CalendarToolDeps{Calendar: calendarSvc}

	findSlotsTool, err := createFindSlotsTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build FindSlots tool: %w", err)
	}
	scheduleTool, err := createScheduleMeetingTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build ScheduleMeeting tool: %w", err)
	}
	cancelTool, err := createCancelMeetingTool(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build CancelMeeting tool: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "CalendarAgent",
		Model:       ai.ADKModel(),
		Description: "Books, moves, and cancels specialist meetings for qualified leads.",
		Instruction: calendarInstruction,
		Tools:       []tool.Tool{findSlotsTool, scheduleTool, cancelTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        calendarAppName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar runner: %w", err)
	}

	return &CalendarAgent{
		runner:         r,
		sessionService: sessionService,
		toolDeps:       deps,
		log:            log,
	}, nil
}

// Name implements Subagent.
func (a *CalendarAgent) Name() string { return "calendar" }

// Handle runs one scheduling turn. Runs are serialized because the tools
// read lead context from shared dependencies. When the model booked a
// meeting, the result carries the event and the slots the booking filled.
func (a *CalendarAgent) Handle(ctx context.Context, input *Input) (*Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.toolDeps.SetLeadContext(input.Lead, input.Slots)

	output, err := a.runWithPrompt(ctx, a.buildPrompt(input), input.Lead.ID)
	if err != nil {
		return nil, err
	}

	reply := strings.TrimSpace(output)
	if reply == "" {
		reply = "Me conta qual dia e horário ficam melhores para você que eu verifico a agenda."
	}

	res := &Result{Source: a.Name(), Reply: reply}
	if event := a.toolDeps.BookedEvent(); event != nil {
		res.Event = event
		res.SlotUpdates = bookingSlotUpdates(event)
	}
	return res, nil
}

// bookingSlotUpdates projects a confirmed booking into the slots the state
// machine checks before a lead can leave SCHEDULING.
func bookingSlotUpdates(event *domain.CalendarEvent) *domain.Slots {
	return &domain.Slots{
		MeetingDatetime: event.StartAt.Format(time.RFC3339),
		AttendeeEmails:  event.AttendeeEmails,
	}
}

func (a *CalendarAgent) buildPrompt(input *Input) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Agora: %s\n", time.Now().Format(time.RFC3339))
	if input.Slots.Name != "" {
		fmt.Fprintf(&sb, "Cliente: %s\n", input.Slots.Name)
	}
	if input.Lead.Email != nil && *input.Lead.Email != "" {
		fmt.Fprintf(&sb, "Email do cliente: %s\n", *input.Lead.Email)
	}
	if len(input.History) > 0 {
		sb.WriteString("Últimas mensagens:\n")
		for _, msg := range input.History {
			fmt.Fprintf(&sb, "[%s] %s\n", msg.Direction, msg.Content)
		}
	}
	fmt.Fprintf(&sb, "Mensagem do cliente: %s\n", input.Text)
	return sb.String()
}

func (a *CalendarAgent) runWithPrompt(ctx context.Context, promptText string, leadID uuid.UUID) (string, error) {
	sessionID := uuid.New().String()
	userID := "lead-" + leadID.String()

	_, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   calendarAppName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create calendar session: %w", err)
	}
	defer func() {
		_ = a.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   calendarAppName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: promptText}},
	}

	var output string
	runConfig := adkagent.RunConfig{StreamingMode: adkagent.StreamingModeNone}
	for event, err := range a.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return "", err
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				output += part.Text
			}
		}
	}
	return output, nil
}
