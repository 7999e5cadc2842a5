package backend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"venue-admin-backend/internal/logger"
)

// Revalidator is the part of the cache manager the service drives.
type Revalidator interface {
	Warmup(ctx context.Context) error
	Revalidate(ctx context.Context) error
}

// Service keeps the resource cache warm by revalidating it on a timer.
type Service struct {
	cache    Revalidator
	interval time.Duration
	warmup   bool
	log      *zap.SugaredLogger
}

// NewService creates a revalidation service. A non-positive interval
// disables the periodic revalidation.
func NewService(c Revalidator, interval time.Duration, warmup bool, log *zap.SugaredLogger) *Service {
	return &Service{cache: c, interval: interval, warmup: warmup, log: logger.OrNop(log)}
}

// Run warms the cache up and then revalidates it every interval until ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) {
	if s.warmup {
		s.log.Info("warming up resource cache")
		if err := s.cache.Warmup(ctx); err != nil {
			s.log.Warnw("cache warmup failed; collections will be fetched on first read", "error", err)
		}
	}
	if s.interval <= 0 {
		s.log.Info("periodic revalidation disabled")
		return
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("revalidation service shutting down")
			return
		case <-timer.C:
			s.RevalidateOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// RevalidateOnce runs a single revalidation cycle.
func (s *Service) RevalidateOnce(ctx context.Context) {
	s.log.Debug("executing revalidation cycle")
	if err := s.cache.Revalidate(ctx); err != nil {
		s.log.Warnw("revalidation cycle failed", "error", err)
	}
}
