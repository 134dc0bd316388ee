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
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxListMessagesLimit caps a single chat poll
const MaxListMessagesLimit = 500

// ApplicationService is the public entry point of application origination.
// Every call authorizes the explicit actor first; mutations of one
// application are serialized through the ApplicationLocker and saved with an
// optimistic version check.
type ApplicationService struct {
	repos          TransactionalRepositories
	txScope        TransactionScope
	locker         ApplicationLocker
	documents      *DocumentStore
	bankSync       *BankSyncGateway
	chat           *ChatChannel
	eventPublisher shared.EventPublisher
	metrics        SyncMetrics
	config         Config
	logger         *zap.Logger
	now            func() time.Time
}

// NewApplicationService creates a new ApplicationService.
// repos is used for reads outside of a transaction.
func NewApplicationService(
	repos TransactionalRepositories,
	txScope TransactionScope,
	locker ApplicationLocker,
	documents *DocumentStore,
	bankSync *BankSyncGateway,
	chat *ChatChannel,
	cfg Config,
	logger *zap.Logger,
) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		repos:     repos,
		txScope:   txScope,
		locker:    locker,
		documents: documents,
		bankSync:  bankSync,
		chat:      chat,
		metrics:   noopSyncMetrics{},
		config:    cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher for notifications and integrations
func (s *ApplicationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *ApplicationService) SetMetrics(metrics SyncMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

func (s *ApplicationService) toResponse(app *origination.Application) ApplicationResponse {
	return ToApplicationResponse(app, s.config.StalledAfter, s.now())
}

// acquire takes the application lock. busy is returned when the wait expires.
func (s *ApplicationService) acquire(ctx context.Context, applicationID uuid.UUID, busy error) (func(), error) {
	release, err := s.locker.TryLock(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) || errors.Is(err, context.DeadlineExceeded) {
			return nil, busy
		}
		return nil, fmt.Errorf("acquire application lock: %w", err)
	}
	return release, nil
}

// mutate loads the application inside a transaction under the application
// lock, runs fn, saves with a version check and publishes events after commit.
func (s *ApplicationService) mutate(
	ctx context.Context,
	applicationID uuid.UUID,
	busy error,
	fn func(repos TransactionalRepositories, app *origination.Application) ([]shared.DomainEvent, error),
) (*origination.Application, error) {
	release, err := s.acquire(ctx, applicationID, busy)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		app    *origination.Application
		events []shared.DomainEvent
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		loaded, err := repos.ApplicationRepo().FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		extra, err := fn(repos, loaded)
		if err != nil {
			return err
		}
		if err := repos.ApplicationRepo().SaveWithLock(ctx, loaded); err != nil {
			return err
		}
		app = loaded
		events = append(loaded.GetDomainEvents(), extra...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	app.ClearDomainEvents()
	s.afterCommit(ctx, events)
	return app, nil
}

// afterCommit records transition metrics and publishes events.
// Publishing failures are logged: the state change is already durable.
func (s *ApplicationService) afterCommit(ctx context.Context, events []shared.DomainEvent) {
	for _, event := range events {
		if changed, ok := event.(*origination.ApplicationStatusChangedEvent); ok {
			s.metrics.RecordTransition(ctx, changed.From, changed.To)
		}
	}
	if err := publishEvents(ctx, s.eventPublisher, events); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func (s *ApplicationService) loadAuthorized(ctx context.Context, actor origination.ActorContext, action origination.Action, applicationID uuid.UUID) (*origination.Application, error) {
	app, err := s.repos.ApplicationRepo().FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := origination.Authorize(actor, action, app); err != nil {
		return nil, err
	}
	return app, nil
}

// ==================== Applications ====================

// CreateDraft creates a new application in draft
func (s *ApplicationService) CreateDraft(ctx context.Context, actor origination.ActorContext, req CreateDraftRequest) (*ApplicationResponse, error) {
	if err := origination.Authorize(actor, origination.ActionCreateDraft, nil); err != nil {
		return nil, err
	}

	app, err := origination.NewApplication(req.ProductType, req.Amount, req.TermMonths, req.TargetBankID, req.Notes, actor.Ref())
	if err != nil {
		return nil, err
	}

	if err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.ApplicationRepo().Create(ctx, app)
	}); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, app.PullDomainEvents())

	resp := s.toResponse(app)
	return &resp, nil
}

// GetApplication returns one application visible to the actor
func (s *ApplicationService) GetApplication(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*ApplicationResponse, error) {
	app, err := s.loadAuthorized(ctx, actor, origination.ActionView, applicationID)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(app)
	return &resp, nil
}

// ListApplications lists the applications in the actor's scope
func (s *ApplicationService) ListApplications(ctx context.Context, actor origination.ActorContext, filter ApplicationListFilter) ([]ApplicationResponse, int64, error) {
	domainFilter := origination.ApplicationFilter{
		Filter:       shared.DefaultFilter(),
		Status:       filter.Status,
		ProductType:  filter.ProductType,
		TargetBankID: filter.TargetBankID,
	}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = min(filter.PageSize, shared.MaxPageSize)
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}

	switch actor.Role {
	case origination.RoleAdmin, origination.RoleSystem:
	case origination.RoleClient, origination.RoleAgent:
		userID := actor.UserID
		domainFilter.CreatedBy = &userID
	case origination.RolePartner:
		if actor.BankID == nil {
			return nil, 0, shared.NewDomainError(shared.CodeForbidden, "Partner account is not affiliated with a bank")
		}
		bankID := *actor.BankID
		domainFilter.TargetBankID = &bankID
	default:
		return nil, 0, shared.NewDomainError(shared.CodeForbidden, fmt.Sprintf("Role %s may not list applications", actor.Role))
	}

	apps, total, err := s.repos.ApplicationRepo().FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]ApplicationResponse, len(apps))
	for i := range apps {
		responses[i] = s.toResponse(&apps[i])
	}
	return responses, total, nil
}

// SubmitApplication moves a draft to submitted once every required document is present
func (s *ApplicationService) SubmitApplication(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*ApplicationResponse, error) {
	return s.transition(ctx, actor, applicationID, origination.ActionSubmitApplication, origination.EventSubmit, TransitionRequest{})
}

// StartReview takes a submitted application into review
func (s *ApplicationService) StartReview(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*ApplicationResponse, error) {
	return s.transition(ctx, actor, applicationID, origination.ActionStartReview, origination.EventStartReview, TransitionRequest{})
}

// RequestInfo asks the applicant for more documents
func (s *ApplicationService) RequestInfo(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID, req TransitionRequest) (*ApplicationResponse, error) {
	return s.transition(ctx, actor, applicationID, origination.ActionRequestInfo, origination.EventRequestInfo, req)
}

// Approve force-approves an application
func (s *ApplicationService) Approve(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID, req TransitionRequest) (*ApplicationResponse, error) {
	return s.transition(ctx, actor, applicationID, origination.ActionApprove, origination.EventApprove, req)
}

// Reject force-rejects an application
func (s *ApplicationService) Reject(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID, req TransitionRequest) (*ApplicationResponse, error) {
	return s.transition(ctx, actor, applicationID, origination.ActionReject, origination.EventReject, req)
}

// ConfirmSigned records that the contract was signed
func (s *ApplicationService) ConfirmSigned(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*ApplicationResponse, error) {
	return s.transition(ctx, actor, applicationID, origination.ActionConfirmSigned, origination.EventSignedConfirmed, TransitionRequest{})
}

// Complete closes a signed application
func (s *ApplicationService) Complete(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*ApplicationResponse, error) {
	return s.transition(ctx, actor, applicationID, origination.ActionComplete, origination.EventComplete, TransitionRequest{})
}

// transition applies an actor-driven event. A non-empty comment is mirrored
// into the application's chat in the same transaction.
func (s *ApplicationService) transition(
	ctx context.Context,
	actor origination.ActorContext,
	applicationID uuid.UUID,
	action origination.Action,
	event origination.StatusEvent,
	req TransitionRequest,
) (*ApplicationResponse, error) {
	app, err := s.mutate(ctx, applicationID, shared.ErrConflict, func(repos TransactionalRepositories, app *origination.Application) ([]shared.DomainEvent, error) {
		if err := origination.Authorize(actor, action, app); err != nil {
			return nil, err
		}

		switch event {
		case origination.EventRequestInfo:
			if !app.CanRequestInfo(s.config.MaxInfoRequestCycles) {
				return nil, infoCycleLimitError(s.config.MaxInfoRequestCycles)
			}
		case origination.EventSubmit:
			if err := s.checkRequiredDocuments(ctx, repos, app); err != nil {
				return nil, err
			}
		}

		if err := app.Apply(event); err != nil {
			return nil, err
		}

		comment := strings.TrimSpace(req.Comment)
		if comment == "" {
			return nil, nil
		}
		msg, err := origination.NewChatMessage(app.ID, actor.Ref(), comment, nil)
		if err != nil {
			return nil, err
		}
		if err := repos.ChatMessageRepo().Append(ctx, msg); err != nil {
			return nil, err
		}
		return []shared.DomainEvent{origination.NewChatMessagePostedEvent(msg)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("application transitioned",
		zap.String("application_id", app.ID.String()),
		zap.String("event", event.String()),
		zap.String("status", app.Status.String()),
		zap.String("actor_role", actor.Role.String()),
	)
	resp := s.toResponse(app)
	return &resp, nil
}

func (s *ApplicationService) checkRequiredDocuments(ctx context.Context, repos TransactionalRepositories, app *origination.Application) error {
	current, err := s.documents.Current(ctx, repos, app.ID)
	if err != nil {
		return err
	}
	var missing []string
	for _, docType := range origination.RequiredDocuments(app.ProductType) {
		doc, ok := current[docType]
		if !ok || doc.Status == origination.DocumentStatusRejected {
			missing = append(missing, string(docType))
		}
	}
	if len(missing) > 0 {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Required documents are missing: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func infoCycleLimitError(limit int) error {
	return shared.NewDomainError(shared.CodeInvalidState,
		fmt.Sprintf("Information was already requested %d times; reject the application instead", limit))
}

// FindStalled lists applications waiting at the bank longer than the stalled threshold
func (s *ApplicationService) FindStalled(ctx context.Context, actor origination.ActorContext) ([]ApplicationResponse, error) {
	stalled, err := s.findStalled(ctx, actor)
	if err != nil {
		return nil, err
	}
	responses := make([]ApplicationResponse, len(stalled))
	for i := range stalled {
		responses[i] = s.toResponse(&stalled[i])
	}
	return responses, nil
}

// ReportStalled publishes an ApplicationStalled event for every stalled
// application and returns how many there were
func (s *ApplicationService) ReportStalled(ctx context.Context, actor origination.ActorContext) (int, error) {
	stalled, err := s.findStalled(ctx, actor)
	if err != nil {
		return 0, err
	}
	now := s.now()
	events := make([]shared.DomainEvent, 0, len(stalled))
	for i := range stalled {
		events = append(events, origination.NewApplicationStalledEvent(&stalled[i], now))
	}
	s.metrics.RecordStalled(ctx, len(stalled))
	s.afterCommit(ctx, events)
	return len(stalled), nil
}

func (s *ApplicationService) findStalled(ctx context.Context, actor origination.ActorContext) ([]origination.Application, error) {
	if !origination.CanSeeAll(actor) {
		return nil, shared.NewDomainError(shared.CodeForbidden, fmt.Sprintf("Role %s may not list stalled applications", actor.Role))
	}
	if s.config.StalledAfter <= 0 {
		return nil, nil
	}
	apps, err := s.repos.ApplicationRepo().FindSubmittedInStatuses(ctx, []origination.ApplicationStatus{origination.StatusSentToBank}, 0)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return slices.DeleteFunc(apps, func(app origination.Application) bool {
		return !app.IsStalled(s.config.StalledAfter, now)
	}), nil
}

// ListSyncCandidates returns submitted, non-terminal applications, least
// recently synced first
func (s *ApplicationService) ListSyncCandidates(ctx context.Context, actor origination.ActorContext, limit int) ([]uuid.UUID, error) {
	if !origination.CanSeeAll(actor) {
		return nil, shared.NewDomainError(shared.CodeForbidden, fmt.Sprintf("Role %s may not list sync candidates", actor.Role))
	}
	apps, err := s.repos.ApplicationRepo().FindSubmittedInStatuses(ctx, origination.SyncableStatuses(), limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(apps))
	for i := range apps {
		ids[i] = apps[i].ID
	}
	return ids, nil
}

// ==================== Documents ====================

// ListDocuments returns every document version of an application
func (s *ApplicationService) ListDocuments(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) ([]DocumentResponse, error) {
	if _, err := s.loadAuthorized(ctx, actor, origination.ActionView, applicationID); err != nil {
		return nil, err
	}
	docs, err := s.repos.DocumentRepo().FindByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return ToDocumentResponses(docs), nil
}

// InitiateDocumentUpload returns a presigned URL for a document upload
func (s *ApplicationService) InitiateDocumentUpload(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID, req InitiateUploadRequest) (*InitiateUploadResponse, error) {
	app, err := s.loadAuthorized(ctx, actor, origination.ActionUploadDocument, applicationID)
	if err != nil {
		return nil, err
	}
	return s.documents.InitiateUpload(ctx, app, req)
}

// UploadDocument appends a new document version
func (s *ApplicationService) UploadDocument(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID, req UploadDocumentRequest) (*DocumentResponse, error) {
	var doc *origination.Document
	_, err := s.mutate(ctx, applicationID, shared.ErrConflict, func(repos TransactionalRepositories, app *origination.Application) ([]shared.DomainEvent, error) {
		if err := origination.Authorize(actor, origination.ActionUploadDocument, app); err != nil {
			return nil, err
		}
		uploaded, err := s.documents.Upload(ctx, repos, app, req, actor.Ref())
		if err != nil {
			return nil, err
		}
		doc = uploaded
		return []shared.DomainEvent{origination.NewDocumentUploadedEvent(uploaded)}, nil
	})
	if err != nil {
		if doc != nil && req.Data != nil {
			s.documents.Discard(ctx, doc.File.StorageKey)
		}
		return nil, err
	}

	resp := ToDocumentResponse(doc, true)
	return &resp, nil
}

// ReviewDocument records a verdict on the current version of a document.
// A rejection during review or at the bank requests information from the
// applicant; in info_requested, clearing the last rejection returns the
// application to pending_review.
func (s *ApplicationService) ReviewDocument(ctx context.Context, actor origination.ActorContext, applicationID, documentID uuid.UUID, req ReviewDocumentRequest) (*ReviewDocumentResponse, error) {
	var result *ReviewResult
	app, err := s.mutate(ctx, applicationID, shared.ErrConflict, func(repos TransactionalRepositories, app *origination.Application) ([]shared.DomainEvent, error) {
		if err := origination.Authorize(actor, origination.ActionReviewDocument, app); err != nil {
			return nil, err
		}
		res, err := s.documents.Review(ctx, repos, app, documentID, req, actor.Ref())
		if err != nil {
			return nil, err
		}

		switch {
		case res.Rejected && (app.Status == origination.StatusPendingReview || app.Status == origination.StatusSentToBank):
			if !app.CanRequestInfo(s.config.MaxInfoRequestCycles) {
				return nil, infoCycleLimitError(s.config.MaxInfoRequestCycles)
			}
			if err := app.Apply(origination.EventRequestInfo); err != nil {
				return nil, err
			}
		case res.Resolved && app.Status == origination.StatusInfoRequested:
			if err := app.Apply(origination.EventDocumentResolved); err != nil {
				return nil, err
			}
		}

		result = res
		return []shared.DomainEvent{origination.NewDocumentReviewedEvent(res.Document)}, nil
	})
	if err != nil {
		return nil, err
	}

	return &ReviewDocumentResponse{
		Document:    ToDocumentResponse(result.Document, true),
		Application: s.toResponse(app),
		Resolved:    result.Resolved,
	}, nil
}

// ==================== Bank synchronization ====================

// SubmitToBank sends the application to the partner bank. A second call
// fails with ALREADY_SUBMITTED without contacting the bank; a concurrent
// call fails with SYNC_IN_PROGRESS.
func (s *ApplicationService) SubmitToBank(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*BankSubmitResponse, error) {
	release, err := s.acquire(ctx, applicationID, shared.ErrSyncInProgress)
	if err != nil {
		return nil, err
	}
	defer release()

	app, err := s.loadAuthorized(ctx, actor, origination.ActionSubmitToBank, applicationID)
	if err != nil {
		return nil, err
	}
	current, err := s.documents.Current(ctx, s.repos, applicationID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.bankSync.Submit(ctx, app, current)
	if err != nil {
		return nil, err
	}

	var events []shared.DomainEvent
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := app.MarkSubmittedToBank(*ticket); err != nil {
			return err
		}
		if err := repos.ApplicationRepo().SaveWithLock(ctx, app); err != nil {
			return err
		}
		events = app.GetDomainEvents()
		return nil
	})
	if err != nil {
		// the bank deduplicates on the client reference, so a retry is safe
		s.logger.Error("bank accepted application but the ticket could not be recorded",
			zap.String("application_id", applicationID.String()),
			zap.String("ticket_id", ticket.TicketID),
			zap.Error(err),
		)
		return nil, err
	}
	app.ClearDomainEvents()
	s.afterCommit(ctx, events)

	return &BankSubmitResponse{Application: s.toResponse(app), TicketID: ticket.TicketID}, nil
}

// RefreshBankStatus pulls the bank's status. The raw status is always
// stored; the canonical status changes only when the mapped event is
// defined for the current status.
func (s *ApplicationService) RefreshBankStatus(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID) (*BankRefreshResponse, error) {
	release, err := s.acquire(ctx, applicationID, shared.ErrSyncInProgress)
	if err != nil {
		return nil, err
	}
	defer release()

	app, err := s.loadAuthorized(ctx, actor, origination.ActionRefreshBankStatus, applicationID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.bankSync.Refresh(ctx, app)
	if err != nil {
		return nil, err
	}

	var (
		outcome origination.BankSyncOutcome
		events  []shared.DomainEvent
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		outcome, err = app.RecordBankStatus(refresh.Report, refresh.Event)
		if err != nil {
			return err
		}
		if err := repos.ApplicationRepo().SaveWithLock(ctx, app); err != nil {
			return err
		}
		events = app.GetDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}
	app.ClearDomainEvents()

	log := s.logger.With(
		zap.String("application_id", app.ID.String()),
		zap.String("bank_status", refresh.Report.BankStatus),
		zap.String("mapped_event", refresh.Event.String()),
	)
	switch {
	case refresh.Event != origination.EventNone && outcome.Changed && !outcome.Applied:
		log.Info("bank status not applicable to current status", zap.String("status", app.Status.String()))
	case outcome.Applied && refresh.Event == origination.EventRequestInfo &&
		s.config.MaxInfoRequestCycles > 0 && app.InfoRequestCycles > s.config.MaxInfoRequestCycles:
		log.Warn("bank requested information beyond the cycle limit",
			zap.Int("cycles", app.InfoRequestCycles),
			zap.Int("limit", s.config.MaxInfoRequestCycles),
		)
	}
	s.afterCommit(ctx, events)

	return &BankRefreshResponse{
		Application: s.toResponse(app),
		Changed:     outcome.Changed,
		Applied:     outcome.Applied,
		MappedEvent: refresh.Event.String(),
	}, nil
}

// ==================== Chat ====================

// PostMessage appends a chat message, optionally with an attachment
func (s *ApplicationService) PostMessage(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID, req PostMessageRequest) (*ChatMessageResponse, error) {
	if _, err := s.loadAuthorized(ctx, actor, origination.ActionPostMessage, applicationID); err != nil {
		return nil, err
	}

	msg, err := s.chat.Post(ctx, applicationID, actor.Ref(), req.Content, req.Attachment)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, []shared.DomainEvent{origination.NewChatMessagePostedEvent(msg)})

	resp := ToChatMessageResponse(msg)
	return &resp, nil
}

// ListMessages returns up to limit messages posted after sequence since
func (s *ApplicationService) ListMessages(ctx context.Context, actor origination.ActorContext, applicationID uuid.UUID, since int64, limit int) (*ListMessagesResponse, error) {
	if _, err := s.loadAuthorized(ctx, actor, origination.ActionListMessages, applicationID); err != nil {
		return nil, err
	}
	if since < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "since cannot be negative")
	}
	if limit <= 0 || limit > MaxListMessagesLimit {
		limit = MaxListMessagesLimit
	}

	resp := &ListMessagesResponse{Messages: make([]ChatMessageResponse, 0), NextSince: since}
	for msg, err := range s.chat.List(ctx, applicationID, since) {
		if err != nil {
			return nil, err
		}
		if len(resp.Messages) == limit {
			resp.HasMore = true
			break
		}
		resp.Messages = append(resp.Messages, ToChatMessageResponse(&msg))
		resp.NextSince = msg.Sequence
	}
	return resp, nil
}
