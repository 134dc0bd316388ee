// Package scheduler runs the periodic bank synchronization jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSchedulerNotRunning is returned by Stop on a poller that was never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	// ErrInvalidConfig wraps schedule parse failures
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// BankSyncService is the part of the application service the poller drives.
// Refreshes go through the same entry point as user requests, so they take
// the same per-application lock.
type BankSyncService interface {
	ListSyncCandidates(ctx context.Context, actor origination.ActorContext, limit int) ([]uuid.UUID, error)
	RefreshBankStatus(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*apporig.BankRefreshResponse, error)
	ReportStalled(ctx context.Context, actor origination.ActorContext) (int, error)
}

// PollResult summarizes one polling run
type PollResult struct {
	Candidates int
	Refreshed  int
	Changed    int
	Skipped    int // another refresh held the application lock
	Failed     int
}

// BankStatusPoller refreshes the bank status of submitted applications on a
// cron schedule and reports stalled applications on another.
type BankStatusPoller struct {
	cfg     config.SchedulerConfig
	service BankSyncService
	logger  *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewBankStatusPoller validates the schedules and creates a poller
func NewBankStatusPoller(cfg config.SchedulerConfig, service BankSyncService, logger *zap.Logger) (*BankStatusPoller, error) {
	if _, err := cron.ParseStandard(cfg.PollSchedule); err != nil {
		return nil, fmt.Errorf("%w: poll schedule %q: %v", ErrInvalidConfig, cfg.PollSchedule, err)
	}
	if cfg.StalledSchedule != "" {
		if _, err := cron.ParseStandard(cfg.StalledSchedule); err != nil {
			return nil, fmt.Errorf("%w: stalled schedule %q: %v", ErrInvalidConfig, cfg.StalledSchedule, err)
		}
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &BankStatusPoller{
		cfg:     cfg,
		service: service,
		logger:  logger.Named("bank_poller"),
	}, nil
}

// Start registers the jobs and starts the cron runner. Jobs run with a
// context derived from ctx; a run still in progress when the next tick
// arrives causes that tick to be skipped.
func (p *BankStatusPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	cl := newCronLogger(p.logger)
	runner := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	jobCtx, cancel := context.WithCancel(ctx)

	if _, err := runner.AddFunc(p.cfg.PollSchedule, func() { _, _ = p.PollOnce(jobCtx) }); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if p.cfg.StalledSchedule != "" {
		if _, err := runner.AddFunc(p.cfg.StalledSchedule, func() { _, _ = p.CheckStalled(jobCtx) }); err != nil {
			cancel()
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	runner.Start()
	p.cron = runner
	p.cancel = cancel
	p.running = true

	p.logger.Info("bank status poller started",
		zap.String("poll_schedule", p.cfg.PollSchedule),
		zap.String("stalled_schedule", p.cfg.StalledSchedule),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("max_concurrent", p.cfg.MaxConcurrent),
	)
	return nil
}

// Stop cancels running jobs and waits for them until ctx ends
func (p *BankStatusPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	p.running = false
	runner, cancel := p.cron, p.cancel
	p.mu.Unlock()

	cancel()
	select {
	case <-runner.Stop().Done():
		p.logger.Info("bank status poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollOnce refreshes one batch of sync candidates, oldest sync first
func (p *BankStatusPoller) PollOnce(ctx context.Context) (PollResult, error) {
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}
	start := time.Now()
	actor := origination.SystemActor()

	ids, err := p.service.ListSyncCandidates(ctx, actor, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("failed to list sync candidates", zap.Error(err))
		return PollResult{}, err
	}

	var refreshed, changed, skipped, failed atomic.Int32
	g := new(errgroup.Group)
	g.SetLimit(p.cfg.MaxConcurrent)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			resp, err := p.service.RefreshBankStatus(ctx, actor, id)
			switch {
			case err == nil:
				refreshed.Add(1)
				if resp != nil && resp.Changed {
					changed.Add(1)
				}
			case errors.Is(err, shared.ErrSyncInProgress):
				skipped.Add(1)
			default:
				failed.Add(1)
				p.logger.Warn("bank status refresh failed",
					zap.String("application_id", id.String()),
					zap.String("code", shared.ErrorCode(err)),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := PollResult{
		Candidates: len(ids),
		Refreshed:  int(refreshed.Load()),
		Changed:    int(changed.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	p.logger.Info("bank status poll finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("refreshed", result.Refreshed),
		zap.Int("changed", result.Changed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, ctx.Err()
}

// CheckStalled emits stalled events for applications without progress
func (p *BankStatusPoller) CheckStalled(ctx context.Context) (int, error) {
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}
	count, err := p.service.ReportStalled(ctx, origination.SystemActor())
	if err != nil {
		p.logger.Error("stalled application check failed", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		p.logger.Warn("stalled applications reported", zap.Int("count", count))
	}
	return count, nil
}

// Ensure ApplicationService satisfies BankSyncService
var _ BankSyncService = (*apporig.ApplicationService)(nil)
