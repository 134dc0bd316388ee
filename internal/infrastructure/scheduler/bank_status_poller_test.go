package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) ListSyncCandidates(ctx context.Context, actor origination.ActorContext, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, actor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockSyncService) RefreshBankStatus(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*apporig.BankRefreshResponse, error) {
	args := m.Called(ctx, actor, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.BankRefreshResponse), args.Error(1)
}

func (m *mockSyncService) ReportStalled(ctx context.Context, actor origination.ActorContext) (int, error) {
	args := m.Called(ctx, actor)
	return args.Int(0), args.Error(1)
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:         true,
		PollSchedule:    "*/5 * * * *",
		StalledSchedule: "0 * * * *",
		BatchSize:       50,
		MaxConcurrent:   3,
		JobTimeout:      time.Minute,
	}
}

var systemActor = mock.MatchedBy(func(a origination.ActorContext) bool {
	return a.Role == origination.RoleSystem
})

func TestNewBankStatusPoller_InvalidSchedule(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.PollSchedule = "every now and then"
	_, err := NewBankStatusPoller(cfg, &mockSyncService{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testSchedulerConfig()
	cfg.StalledSchedule = "61 * * * *"
	_, err = NewBankStatusPoller(cfg, &mockSyncService{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBankStatusPoller_PollOnce(t *testing.T) {
	svc := &mockSyncService{}
	ok, changed, busy, down := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	svc.On("ListSyncCandidates", mock.Anything, systemActor, 50).Return([]uuid.UUID{ok, changed, busy, down}, nil)
	svc.On("RefreshBankStatus", mock.Anything, systemActor, ok).Return(&apporig.BankRefreshResponse{}, nil)
	svc.On("RefreshBankStatus", mock.Anything, systemActor, changed).Return(&apporig.BankRefreshResponse{Changed: true}, nil)
	svc.On("RefreshBankStatus", mock.Anything, systemActor, busy).Return(nil, shared.ErrSyncInProgress)
	svc.On("RefreshBankStatus", mock.Anything, systemActor, down).Return(nil, shared.ErrExternalUnavailable)

	poller, err := NewBankStatusPoller(testSchedulerConfig(), svc, zap.NewNop())
	require.NoError(t, err)

	result, err := poller.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PollResult{Candidates: 4, Refreshed: 2, Changed: 1, Skipped: 1, Failed: 1}, result)
	svc.AssertExpectations(t)
}

func TestBankStatusPoller_PollOnce_ListError(t *testing.T) {
	svc := &mockSyncService{}
	svc.On("ListSyncCandidates", mock.Anything, systemActor, 50).Return(nil, errors.New("db down"))

	poller, err := NewBankStatusPoller(testSchedulerConfig(), svc, zap.NewNop())
	require.NoError(t, err)

	_, err = poller.PollOnce(context.Background())
	assert.EqualError(t, err, "db down")
	svc.AssertNotCalled(t, "RefreshBankStatus", mock.Anything, mock.Anything, mock.Anything)
}

// concurrencyProbe counts refreshes in flight
type concurrencyProbe struct {
	inFlight atomic.Int32
	mu       sync.Mutex
	max      int32
}

func (c *concurrencyProbe) refresh(context.Context, origination.ActorContext, uuid.UUID) (*apporig.BankRefreshResponse, error) {
	n := c.inFlight.Add(1)
	c.mu.Lock()
	if n > c.max {
		c.max = n
	}
	c.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	c.inFlight.Add(-1)
	return &apporig.BankRefreshResponse{}, nil
}

type probeService struct {
	ids   []uuid.UUID
	probe *concurrencyProbe
}

func (s *probeService) ListSyncCandidates(context.Context, origination.ActorContext, int) ([]uuid.UUID, error) {
	return s.ids, nil
}

func (s *probeService) RefreshBankStatus(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.BankRefreshResponse, error) {
	return s.probe.refresh(ctx, actor, id)
}

func (s *probeService) ReportStalled(context.Context, origination.ActorContext) (int, error) {
	return 0, nil
}

func TestBankStatusPoller_BoundedConcurrency(t *testing.T) {
	ids := make([]uuid.UUID, 12)
	for i := range ids {
		ids[i] = uuid.New()
	}
	svc := &probeService{ids: ids, probe: &concurrencyProbe{}}

	cfg := testSchedulerConfig()
	cfg.MaxConcurrent = 2
	poller, err := NewBankStatusPoller(cfg, svc, zap.NewNop())
	require.NoError(t, err)

	result, err := poller.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, result.Refreshed)
	assert.LessOrEqual(t, svc.probe.max, int32(2))
}

func TestBankStatusPoller_CheckStalled(t *testing.T) {
	svc := &mockSyncService{}
	svc.On("ReportStalled", mock.Anything, systemActor).Return(3, nil).Once()
	svc.On("ReportStalled", mock.Anything, systemActor).Return(0, errors.New("boom")).Once()

	poller, err := NewBankStatusPoller(testSchedulerConfig(), svc, zap.NewNop())
	require.NoError(t, err)

	count, err := poller.CheckStalled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = poller.CheckStalled(context.Background())
	assert.Error(t, err)
}

func TestBankStatusPoller_StartStop(t *testing.T) {
	svc := &mockSyncService{}
	polled := make(chan struct{}, 4)
	svc.On("ListSyncCandidates", mock.Anything, systemActor, 50).
		Run(func(mock.Arguments) {
			select {
			case polled <- struct{}{}:
			default:
			}
		}).
		Return([]uuid.UUID{}, nil)

	cfg := testSchedulerConfig()
	cfg.PollSchedule = "@every 1s"
	cfg.StalledSchedule = ""
	poller, err := NewBankStatusPoller(cfg, svc, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, poller.Stop(ctx), ErrSchedulerNotRunning)

	require.NoError(t, poller.Start(ctx))
	require.NoError(t, poller.Start(ctx), "second start is a no-op")

	select {
	case <-polled:
	case <-time.After(3 * time.Second):
		t.Fatal("poll job did not run")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, poller.Stop(stopCtx))
}
