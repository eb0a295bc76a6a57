package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"

	"solar_sdr_backend/platform/logger"
)

func TestEnqueueDeduplicatesWithinInterval(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	d := &Dispatcher{
		client: asynq.NewClient(opt),
		log:    logger.New("test"),
	}
	defer d.Close()

	ctx := context.Background()
	d.enqueue(ctx, TaskFollowupTick, time.Minute)
	// A second tick inside the uniqueness window must not pile up.
	d.enqueue(ctx, TaskFollowupTick, time.Minute)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("unexpected pending count: %d", len(pending))
	}
	if pending[0].Type != TaskFollowupTick {
		t.Fatalf("unexpected task type: %q", pending[0].Type)
	}
}

func TestEnqueueDistinctTasksCoexist(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	d := &Dispatcher{
		client: asynq.NewClient(opt),
		log:    logger.New("test"),
	}
	defer d.Close()

	ctx := context.Background()
	d.enqueue(ctx, TaskFollowupTick, time.Minute)
	d.enqueue(ctx, TaskReminderTick, time.Minute)
	d.enqueue(ctx, TaskAbandonSweep, time.Hour)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("unexpected pending count: %d", len(pending))
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@redis.internal:6380/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "redis.internal:6380" {
		t.Fatalf("unexpected addr: %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("unexpected password: %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Fatalf("unexpected db: %d", opt.DB)
	}

	if _, err := redisClientOpt(""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := redisClientOpt("::bad::"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
