package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/bot"
	"github.com/aqdev-tech/Crypto-trading-bot/internal/monitor"
)

// Scheduler runs the background tasks: the pending-watch monitor tick and
// the proactive signal scan.
type Scheduler struct {
	Cron    *cron.Cron
	Monitor *monitor.Monitor
	Bot     *bot.Bot
	Ctx     context.Context
}

// NewScheduler creates a Scheduler.
func NewScheduler(ctx context.Context, m *monitor.Monitor, b *bot.Bot) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(),
		Monitor: m,
		Bot:     b,
		Ctx:     ctx,
	}
}

// RegisterAll registers the monitor tick and the proactive scan.
func (s *Scheduler) RegisterAll(tickInterval, scanInterval time.Duration) error {
	if _, err := s.Cron.AddFunc(fmt.Sprintf("@every %s", tickInterval), func() {
		s.Monitor.Tick(s.Ctx)
	}); err != nil {
		return fmt.Errorf("register monitor tick: %w", err)
	}
	if _, err := s.Cron.AddFunc(fmt.Sprintf("@every %s", scanInterval), func() {
		s.Bot.ProactiveScan(s.Ctx)
	}); err != nil {
		return fmt.Errorf("register proactive scan: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.L().Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	zap.L().Info("scheduler stopped")
}
