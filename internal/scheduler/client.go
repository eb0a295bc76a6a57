package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/logger"
)

// Dispatcher enqueues the periodic tick tasks on their configured cadence.
// Tick handlers are idempotent, so overlapping enqueues from multiple
// dispatcher replicas are harmless.
type Dispatcher struct {
	client *asynq.Client
	log    *logger.Logger

	followupTick time.Duration
	reminderTick time.Duration
	calendarTick time.Duration
	sweepTick    time.Duration
}

// NewDispatcher creates the tick dispatcher.
func NewDispatcher(cfg config.SchedulerConfig, log *logger.Logger) (*Dispatcher, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		client:       asynq.NewClient(opt),
		log:          log,
		followupTick: cfg.GetFollowupTick(),
		reminderTick: cfg.GetReminderTick(),
		calendarTick: cfg.GetCalendarSyncTick(),
		sweepTick:    time.Hour,
	}, nil
}

// Close releases the redis connection.
func (d *Dispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Run blocks until ctx is done, enqueueing each tick on its own interval.
func (d *Dispatcher) Run(ctx context.Context) {
	followups := time.NewTicker(d.followupTick)
	reminders := time.NewTicker(d.reminderTick)
	calendar := time.NewTicker(d.calendarTick)
	sweep := time.NewTicker(d.sweepTick)
	defer followups.Stop()
	defer reminders.Stop()
	defer calendar.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-followups.C:
			d.enqueue(ctx, TaskFollowupTick, d.followupTick)
		case <-reminders.C:
			d.enqueue(ctx, TaskReminderTick, d.reminderTick)
		case <-calendar.C:
			d.enqueue(ctx, TaskCalendarSync, d.calendarTick)
		case <-sweep.C:
			d.enqueue(ctx, TaskAbandonSweep, d.sweepTick)
		}
	}
}

// enqueue is deduplicated per interval so a slow worker does not pile up
// identical ticks.
func (d *Dispatcher) enqueue(ctx context.Context, name string, interval time.Duration) {
	_, err := d.client.EnqueueContext(ctx, newTickTask(name), asynq.Unique(interval))
	if err != nil && err != asynq.ErrDuplicateTask {
		d.log.Error("failed to enqueue tick", "task", name, "error", err)
	}
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
