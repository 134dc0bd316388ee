package bank

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SandboxInitialStatus is the bank status of a freshly accepted submission
const SandboxInitialStatus = "received"

// Ensure SandboxBankSystem implements BankSystem
var _ origination.BankSystem = (*SandboxBankSystem)(nil)

// SandboxBankSystem is an in-memory bank for development and tests.
// Statuses are scripted through SetStatus; failures through FailNext.
// Resubmitting the same application returns its existing ticket.
type SandboxBankSystem struct {
	mu          sync.Mutex
	tickets     map[string]*sandboxTicket
	byReference map[uuid.UUID]string
	failures    map[string][]error
	latency     time.Duration
	submitCalls int
	fetchCalls  int
}

type sandboxTicket struct {
	submission origination.BankSubmission
	report     origination.BankStatusReport
}

// Sandbox operation names for FailNext
const (
	OperationSubmit = "submit"
	OperationFetch  = "fetch_status"
)

// NewSandboxBankSystem creates an empty sandbox bank
func NewSandboxBankSystem() *SandboxBankSystem {
	return &SandboxBankSystem{
		tickets:     make(map[string]*sandboxTicket),
		byReference: make(map[uuid.UUID]string),
		failures:    make(map[string][]error),
	}
}

// Submit registers the submission and returns a ticket
func (s *SandboxBankSystem) Submit(ctx context.Context, submission origination.BankSubmission) (*origination.BankTicket, error) {
	s.mu.Lock()
	s.submitCalls++
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(OperationSubmit); err != nil {
		return nil, err
	}

	if ticketID, ok := s.byReference[submission.ClientReference]; ok {
		return &origination.BankTicket{TicketID: ticketID, BankStatus: s.tickets[ticketID].report.BankStatus}, nil
	}

	ticketID := "SBX-" + uuid.NewString()
	s.tickets[ticketID] = &sandboxTicket{
		submission: submission,
		report:     origination.BankStatusReport{BankStatus: SandboxInitialStatus},
	}
	s.byReference[submission.ClientReference] = ticketID
	return &origination.BankTicket{TicketID: ticketID, BankStatus: SandboxInitialStatus}, nil
}

// FetchStatus returns the scripted status of a ticket
func (s *SandboxBankSystem) FetchStatus(ctx context.Context, ticketID string) (*origination.BankStatusReport, error) {
	s.mu.Lock()
	s.fetchCalls++
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(OperationFetch); err != nil {
		return nil, err
	}

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ticket %s", shared.ErrExternalUnavailable, ticketID)
	}
	report := ticket.report
	return &report, nil
}

// SetStatus scripts the report returned for a ticket
func (s *SandboxBankSystem) SetStatus(ticketID string, report origination.BankStatusReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return fmt.Errorf("sandbox: unknown ticket %s", ticketID)
	}
	ticket.report = report
	return nil
}

// FailNext queues an error for the next call of the operation
func (s *SandboxBankSystem) FailNext(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[operation] = append(s.failures[operation], err)
}

// SetLatency delays every call; a call whose ctx ends first returns TIMEOUT
func (s *SandboxBankSystem) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Submission returns what was submitted under a ticket
func (s *SandboxBankSystem) Submission(ticketID string) (origination.BankSubmission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return origination.BankSubmission{}, false
	}
	return ticket.submission, true
}

// SubmitCalls returns the number of Submit calls, including failed ones
func (s *SandboxBankSystem) SubmitCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitCalls
}

// FetchCalls returns the number of FetchStatus calls, including failed ones
func (s *SandboxBankSystem) FetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func (s *SandboxBankSystem) wait(ctx context.Context) error {
	s.mu.Lock()
	latency := s.latency
	s.mu.Unlock()

	if latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// popFailure must be called with s.mu held
func (s *SandboxBankSystem) popFailure(operation string) error {
	queue := s.failures[operation]
	if len(queue) == 0 {
		return nil
	}
	s.failures[operation] = queue[1:]
	return queue[0]
}
