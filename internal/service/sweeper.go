package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweeperService periodically lapses memberships whose billing period ended.
type SweeperService struct {
	memberships MembershipStore
	logger      *slog.Logger
	now         func() time.Time
	cron        *cron.Cron
}

// NewSweeperService creates a new SweeperService.
func NewSweeperService(memberships MembershipStore, logger *slog.Logger) *SweeperService {
	return &SweeperService{
		memberships: memberships,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweep and runs it once immediately. The scheduler
// stops when ctx is cancelled.
func (s *SweeperService) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron = c

	go s.Sweep(ctx)
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// Sweep runs one pass and returns how many memberships lapsed.
func (s *SweeperService) Sweep(ctx context.Context) int64 {
	if ctx.Err() != nil {
		return 0
	}
	n, err := s.memberships.ExpireLapsed(ctx, s.now())
	if err != nil {
		s.logger.Error("membership sweep failed", "err", err)
		return 0
	}
	if n > 0 {
		s.logger.Info("memberships lapsed", "count", n)
	}
	return n
}
