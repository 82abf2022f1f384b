package service

import (
	"context"
	"sync"
	"time"

	"staybook/pkg/logger"
)

// Sweeper is the unit of work a Scheduler repeats.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Scheduler runs the sweeper on a fixed interval until stopped. An interval
// of zero disables it; expiry then relies on an external trigger.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	log      *logger.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func NewScheduler(sweeper Sweeper, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("Reaper scheduler disabled")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.log.Info("Reaper scheduler started", "interval", s.interval)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.sweeper.Sweep(ctx); err != nil {
				s.log.Error("Scheduled sweep failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels a sweep in progress and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		<-s.done
	})
}
