package scheduler

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"solar_sdr_backend/internal/calendar"
	"solar_sdr_backend/internal/events"
	"solar_sdr_backend/internal/followups"
	"solar_sdr_backend/internal/leads/domain"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/platform/config"
	platformevents "solar_sdr_backend/platform/events"
	"solar_sdr_backend/platform/logger"
)

// abandonMinFailedReengagements is how many exhausted reengagements a lead
// needs before the sweep gives up on it.
const abandonMinFailedReengagements = 2

// Worker consumes the tick tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux

	executor    *followups.Executor
	calendarSvc *calendar.Service
	followupSvc *followups.Service
	leads       *leadsrepo.Repository
	bus         platformevents.Bus
	log         *logger.Logger

	abandonAfter time.Duration
}

// NewWorker creates the asynq server with the tick handlers mounted.
func NewWorker(
	cfg config.SchedulerConfig,
	qcfg config.QualificationConfig,
	executor *followups.Executor,
	calendarSvc *calendar.Service,
	followupSvc *followups.Service,
	leads *leadsrepo.Repository,
	bus platformevents.Bus,
	log *logger.Logger,
) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})

	w := &Worker{
		server:       server,
		mux:          asynq.NewServeMux(),
		executor:     executor,
		calendarSvc:  calendarSvc,
		followupSvc:  followupSvc,
		leads:        leads,
		bus:          bus,
		log:          log,
		abandonAfter: qcfg.GetAbandonAfter(),
	}

	w.mux.HandleFunc(TaskFollowupTick, w.handleFollowupTick)
	w.mux.HandleFunc(TaskReminderTick, w.handleReminderTick)
	w.mux.HandleFunc(TaskCalendarSync, w.handleCalendarSync)
	w.mux.HandleFunc(TaskAbandonSweep, w.handleAbandonSweep)

	return w, nil
}

// Run blocks serving tasks until shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown drains in-flight handlers.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleFollowupTick(ctx context.Context, _ *asynq.Task) error {
	w.executor.Tick(ctx)
	return nil
}

func (w *Worker) handleReminderTick(ctx context.Context, _ *asynq.Task) error {
	w.calendarSvc.ReminderTick(ctx)
	return nil
}

func (w *Worker) handleCalendarSync(ctx context.Context, _ *asynq.Task) error {
	w.calendarSvc.SyncTick(ctx)
	return nil
}

// handleAbandonSweep closes out leads that stopped answering after the
// reengagement plan ran dry.
func (w *Worker) handleAbandonSweep(ctx context.Context, _ *asynq.Task) error {
	cutoff := time.Now().Add(-w.abandonAfter)
	pool := w.leads.Pool()

	dormant, err := w.leads.ListDormantLeads(ctx, pool, cutoff, abandonMinFailedReengagements)
	if err != nil {
		w.log.DatabaseError("list_dormant_leads", err)
		return err
	}

	abandoned := 0
	for _, lead := range dormant {
		stage := domain.StageAbandoned
		if _, err := w.leads.UpdateLead(ctx, pool, lead.ID.String(), domain.LeadPatch{Stage: &stage}); err != nil {
			w.log.DatabaseError("abandon_lead", err)
			continue
		}
		if err := w.followupSvc.CancelReengagements(ctx, pool, lead.ID, "abandoned"); err != nil {
			w.log.WithLead(lead.Phone).Warn("failed to cancel reengagements on abandon", "error", err)
		}
		w.bus.Publish(ctx, events.NewStageAdvanced(lead.ID, lead.Stage, domain.StageAbandoned, lead.Score))
		abandoned++
	}

	w.log.SchedulerEvent("abandon_sweep", abandoned, len(dormant)-abandoned)
	return nil
}
