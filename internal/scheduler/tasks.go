// Package scheduler runs the background loops over asynq: follow-up
// delivery, meeting reminders, calendar sync, and the abandonment sweep.
package scheduler

import (
	"github.com/hibiken/asynq"
)

const (
	TaskFollowupTick = "followups:tick"
	TaskReminderTick = "reminders:tick"
	TaskCalendarSync = "calendar:sync"
	TaskAbandonSweep = "leads:abandon_sweep"
)

// Tick tasks carry no payload; the handlers read everything from the store.
func newTickTask(name string) *asynq.Task {
	return asynq.NewTask(name, nil)
}
