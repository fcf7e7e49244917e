package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/recruitbot/recruit-bot/internal/biz/usecase"
)

// DeadlineScheduler drives the deadline usecase on a fixed interval
type DeadlineScheduler struct {
	deadlineUC *usecase.DeadlineUsecase
	log        *slog.Logger
	now        func() time.Time

	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewDeadlineScheduler creates a new deadline scheduler. The interval is the
// deadline usecase's firing period.
func NewDeadlineScheduler(deadlineUC *usecase.DeadlineUsecase, log *slog.Logger) *DeadlineScheduler {
	return &DeadlineScheduler{
		deadlineUC: deadlineUC,
		log:        log.With("component", "scheduler"),
		now:        time.Now,
		interval:   deadlineUC.Period(),
	}
}

// Start starts the scheduler
func (s *DeadlineScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.log.Info("scheduler started", "interval", s.interval)
}

// Stop stops the scheduler and waits for the running tick
func (s *DeadlineScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *DeadlineScheduler) loop() {
	defer s.wg.Done()

	// Initial run
	s.tick()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *DeadlineScheduler) tick() {
	result := s.deadlineUC.Tick(s.ctx, s.now())
	if len(result.Reminded)+len(result.Closed)+len(result.Retired) > 0 {
		s.log.Info("tick",
			"reminded", result.Reminded,
			"closed", result.Closed,
			"retired", result.Retired)
	}
}
