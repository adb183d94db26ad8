package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// BotScheduleI defines the interface for scheduled tasks in the bot
type BotScheduleI interface {
	// GetName returns the name of the schedule
	GetName() string
	// GetCronExpression returns the cron expression (with seconds) for when this schedule should run
	GetCronExpression() string
	// Execute runs the scheduled task
	Execute(ctx context.Context) error
}

// GenericBotSchedule is a generic implementation of BotScheduleI
type GenericBotSchedule struct {
	Name           string
	CronExpression string
	Handler        func(ctx context.Context) error
}

func (bs *GenericBotSchedule) GetName() string {
	return bs.Name
}

func (bs *GenericBotSchedule) GetCronExpression() string {
	return bs.CronExpression
}

func (bs *GenericBotSchedule) Execute(ctx context.Context) error {
	return bs.Handler(ctx)
}

// NewBotSchedule creates a new scheduled task with the given name, cron expression, and handler
func NewBotSchedule(name string, cronExpr string, handler func(ctx context.Context) error) BotScheduleI {
	return &GenericBotSchedule{
		Name:           name,
		CronExpression: cronExpr,
		Handler:        handler,
	}
}

// scheduleManager runs schedules on a cron. A run that is still going when
// its next tick fires is skipped.
type scheduleManager struct {
	cron       *cron.Cron
	schedules  []BotScheduleI
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func newScheduleManager(schedules []BotScheduleI) *scheduleManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &scheduleManager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		schedules:  schedules,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// start registers all schedules and starts the cron
func (sm *scheduleManager) start() error {
	for _, sched := range sm.schedules {
		_, err := sm.cron.AddFunc(sched.GetCronExpression(), func() {
			sm.executeSchedule(sched)
		})
		if err != nil {
			return fmt.Errorf("failed to add schedule %s: %w", sched.GetName(), err)
		}
		slog.Info("registered schedule", "name", sched.GetName(), "cron", sched.GetCronExpression())
	}

	sm.cron.Start()
	slog.Info("schedule manager started", "schedules", len(sm.schedules))
	return nil
}

func (sm *scheduleManager) executeSchedule(schedule BotScheduleI) {
	start := time.Now()
	slog.Debug("executing schedule", "name", schedule.GetName())

	if err := schedule.Execute(sm.ctx); err != nil {
		slog.Error("failed to execute schedule",
			"name", schedule.GetName(),
			"error", err)
		return
	}
	slog.Debug("schedule finished", "name", schedule.GetName(), "took", time.Since(start))
}

// stop cancels running schedules and waits for them to return
func (sm *scheduleManager) stop() {
	sm.cancelFunc()
	<-sm.cron.Stop().Done()
	slog.Info("schedule manager stopped")
}
