package origination

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Bank call operation names used in metrics and logs
const (
	BankOperationSubmit      = "submit"
	BankOperationFetchStatus = "fetch_status"
)

// BankRefresh is the bank's report together with its mapped event
type BankRefresh struct {
	Report origination.BankStatusReport
	Event  origination.StatusEvent
}

// BankSyncGateway performs the two calls to the partner bank. It never
// mutates the application; callers apply the results.
type BankSyncGateway struct {
	bank    origination.BankSystem
	timeout time.Duration
	metrics SyncMetrics
	logger  *zap.Logger
}

// NewBankSyncGateway creates a new BankSyncGateway
func NewBankSyncGateway(bank origination.BankSystem, cfg Config, metrics SyncMetrics, logger *zap.Logger) *BankSyncGateway {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankSyncGateway{
		bank:    bank,
		timeout: cfg.BankRequestTimeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Submit sends the application to the bank. It performs no external call
// when the application already has an external id.
func (g *BankSyncGateway) Submit(ctx context.Context, app *origination.Application, current map[origination.DocumentType]origination.Document) (*origination.BankTicket, error) {
	if app.IsSubmittedToBank() {
		return nil, shared.ErrAlreadySubmitted
	}
	if app.Status != origination.StatusPendingReview {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Only applications in %s can be sent to the bank", origination.StatusPendingReview))
	}

	submission := origination.BankSubmission{
		ClientReference: app.ID,
		TargetBankID:    app.TargetBankID,
		ProductType:     app.ProductType,
		Amount:          app.Amount,
		TermMonths:      app.TermMonths,
		Notes:           app.Notes,
	}
	for _, doc := range current {
		if doc.Status == origination.DocumentStatusRejected {
			continue
		}
		submission.Documents = append(submission.Documents, origination.BankDocumentLink{
			Type:        doc.Type,
			Version:     doc.Version,
			FileName:    doc.File.FileName,
			ContentType: doc.File.ContentType,
			StorageKey:  doc.File.StorageKey,
		})
	}

	slices.SortFunc(submission.Documents, func(a, b origination.BankDocumentLink) int {
		return strings.Compare(string(a.Type), string(b.Type))
	})

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	ticket, err := g.bank.Submit(callCtx, submission)
	elapsed := time.Since(start)
	if err == nil && (ticket == nil || ticket.TicketID == "") {
		err = errors.New("bank returned an empty ticket")
	}
	if err != nil {
		err = classifyBankError(callCtx, err)
	}
	g.metrics.RecordBankCall(ctx, BankOperationSubmit, err, elapsed)
	if err != nil {
		g.logger.Warn("bank submit failed",
			zap.String("application_id", app.ID.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	g.logger.Info("application accepted by bank",
		zap.String("application_id", app.ID.String()),
		zap.String("ticket_id", ticket.TicketID),
		zap.String("bank_status", ticket.BankStatus),
	)
	return ticket, nil
}

// Refresh fetches the bank's current status for a submitted application and
// maps it to a status event. Unknown statuses map to EventNone.
func (g *BankSyncGateway) Refresh(ctx context.Context, app *origination.Application) (*BankRefresh, error) {
	if !app.IsSubmittedToBank() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Application has not been submitted to the bank")
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	report, err := g.bank.FetchStatus(callCtx, *app.ExternalID)
	elapsed := time.Since(start)
	if err == nil && report == nil {
		err = errors.New("bank returned an empty status report")
	}
	if err != nil {
		err = classifyBankError(callCtx, err)
	}
	g.metrics.RecordBankCall(ctx, BankOperationFetchStatus, err, elapsed)
	if err != nil {
		g.logger.Warn("bank status fetch failed",
			zap.String("application_id", app.ID.String()),
			zap.String("ticket_id", *app.ExternalID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	event := origination.MapExternalStatus(report.BankStatus)
	if event == origination.EventNone {
		g.logger.Info("unrecognized bank status recorded verbatim",
			zap.String("application_id", app.ID.String()),
			zap.String("bank_status", report.BankStatus),
		)
	}
	return &BankRefresh{Report: *report, Event: event}, nil
}

// classifyBankError maps any bank failure to TIMEOUT or EXTERNAL_UNAVAILABLE
func classifyBankError(callCtx context.Context, err error) error {
	switch {
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, shared.ErrExternalUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", shared.ErrExternalUnavailable, err)
	}
}
