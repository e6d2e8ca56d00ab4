package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
)

// Sweeper deletes expired refresh tokens
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// CredentialSweeper periodically purges expired refresh tokens. Expired
// tokens are already refused at rotation; sweeping only bounds table growth.
type CredentialSweeper struct {
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
	logger   *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewCredentialSweeper creates a sweeper worker. schedule accepts standard
// five-field cron expressions and descriptors such as "@every 1h".
func NewCredentialSweeper(sweeper Sweeper, schedule string, log *logger.Logger) (*CredentialSweeper, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return &CredentialSweeper{
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   log,
	}, nil
}

// Start runs an initial sweep, then sweeps on schedule until ctx is done
func (s *CredentialSweeper) Start(ctx context.Context) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule credential sweep: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"schedule": s.schedule,
	}).Info("Starting credential sweeper worker")

	s.RunOnce(ctx)
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	s.logger.Info("Credential sweeper worker stopped")
	return nil
}

// RunOnce performs a single sweep. Overlapping runs are skipped.
func (s *CredentialSweeper) RunOnce(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Previous credential sweep still running, skipping")
		return 0, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Credential sweep failed")
		return 0, err
	}

	s.logger.WithFields(map[string]interface{}{
		"deleted":  n,
		"duration": time.Since(started).String(),
	}).Debug("Credential sweep completed")
	return n, nil
}
