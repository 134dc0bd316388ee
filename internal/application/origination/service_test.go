package origination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type serviceFixture struct {
	repos     *testRepos
	locker    *testLocker
	bank      *MockBankSystem
	storage   *MockObjectStorage
	publisher *MockEventPublisher
	published []shared.DomainEvent
	svc       *ApplicationService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	return newServiceFixtureWithConfig(t, DefaultConfig())
}

func newServiceFixtureWithConfig(t *testing.T, cfg Config) *serviceFixture {
	f := &serviceFixture{
		repos:     newTestRepos(),
		locker:    &testLocker{},
		bank:      new(MockBankSystem),
		storage:   new(MockObjectStorage),
		publisher: new(MockEventPublisher),
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			f.published = append(f.published, args.Get(1).([]shared.DomainEvent)...)
		}).
		Return(nil).Maybe()

	logger := zaptest.NewLogger(t)
	f.svc = NewApplicationService(
		f.repos,
		f.repos,
		f.locker,
		NewDocumentStore(f.storage, cfg, logger),
		NewBankSyncGateway(f.bank, cfg, nil, logger),
		NewChatChannel(f.repos, f.repos.messages, f.storage, cfg, logger),
		cfg,
		logger,
	)
	f.svc.SetEventPublisher(f.publisher)
	return f
}

// stored registers app as the row FindByID returns and accepts every save
func (f *serviceFixture) stored(app *origination.Application) {
	f.repos.apps.On("FindByID", mock.Anything, app.ID).Return(app, nil)
	f.repos.apps.On("SaveWithLock", mock.Anything, app).Return(nil).Maybe()
}

func (f *serviceFixture) eventTypes() []string {
	types := make([]string, len(f.published))
	for i, e := range f.published {
		types[i] = e.EventType()
	}
	return types
}

func TestApplicationService_CreateDraft(t *testing.T) {
	t.Run("agent creates draft", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repos.apps.On("Create", mock.Anything, mock.AnythingOfType("*origination.Application")).Return(nil)

		resp, err := f.svc.CreateDraft(context.Background(), testAgent, CreateDraftRequest{
			ProductType:  origination.ProductBankGuarantee,
			Amount:       decimal.NewFromInt(1_000_000),
			TermMonths:   6,
			TargetBankID: testBankID,
		})
		require.NoError(t, err)
		assert.Equal(t, "draft", resp.Status)
		assert.Equal(t, 0, resp.Step)
		assert.Equal(t, testAgent.UserID, resp.CreatedBy.UserID)
		assert.Equal(t, []string{origination.EventTypeApplicationCreated}, f.eventTypes())
	})

	t.Run("partner may not create", func(t *testing.T) {
		f := newServiceFixture(t)
		partner := origination.ActorContext{UserID: uuid.New(), Role: origination.RolePartner, BankID: &testBankID}

		_, err := f.svc.CreateDraft(context.Background(), partner, CreateDraftRequest{
			ProductType: origination.ProductBankGuarantee, Amount: decimal.NewFromInt(1), TermMonths: 1, TargetBankID: testBankID,
		})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		f.repos.apps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid amount", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateDraft(context.Background(), testAgent, CreateDraftRequest{
			ProductType: origination.ProductBankGuarantee, Amount: decimal.Zero, TermMonths: 6, TargetBankID: testBankID,
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestApplicationService_ListApplications(t *testing.T) {
	t.Run("agent sees only own applications", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repos.apps.On("FindAll", mock.Anything, mock.MatchedBy(func(filter origination.ApplicationFilter) bool {
			return filter.CreatedBy != nil && *filter.CreatedBy == testAgent.UserID && filter.PageSize == 100
		})).Return([]origination.Application{*newApp(t, origination.StatusDraft)}, int64(1), nil)

		apps, total, err := f.svc.ListApplications(context.Background(), testAgent, ApplicationListFilter{PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, apps, 1)
	})

	t.Run("partner is scoped to its bank", func(t *testing.T) {
		f := newServiceFixture(t)
		partner := origination.ActorContext{UserID: uuid.New(), Role: origination.RolePartner, BankID: &testBankID}
		other := uuid.New()
		f.repos.apps.On("FindAll", mock.Anything, mock.MatchedBy(func(filter origination.ApplicationFilter) bool {
			return filter.TargetBankID != nil && *filter.TargetBankID == testBankID && filter.CreatedBy == nil
		})).Return([]origination.Application{}, int64(0), nil)

		_, _, err := f.svc.ListApplications(context.Background(), partner, ApplicationListFilter{TargetBankID: &other})
		require.NoError(t, err)
	})

	t.Run("partner without bank", func(t *testing.T) {
		f := newServiceFixture(t)
		partner := origination.ActorContext{UserID: uuid.New(), Role: origination.RolePartner}

		_, _, err := f.svc.ListApplications(context.Background(), partner, ApplicationListFilter{})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestApplicationService_SubmitApplication(t *testing.T) {
	t.Run("missing documents", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusDraft)
		f.stored(app)
		docs := completeDocs(t, app.ID, origination.DocumentStatusPending)[:2]
		f.repos.docs.On("FindByApplication", mock.Anything, app.ID).Return(docs, nil)

		_, err := f.svc.SubmitApplication(context.Background(), testAgent, app.ID)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, origination.StatusDraft, app.Status)
		f.repos.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		assert.Empty(t, f.published)
	})

	t.Run("complete documents", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusDraft)
		f.stored(app)
		f.repos.docs.On("FindByApplication", mock.Anything, app.ID).
			Return(completeDocs(t, app.ID, origination.DocumentStatusPending), nil)

		resp, err := f.svc.SubmitApplication(context.Background(), testAgent, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "submitted", resp.Status)
		assert.Equal(t, []string{origination.EventTypeApplicationStatusChanged}, f.eventTypes())
		assert.Equal(t, 1, f.locker.acquired)
		assert.Equal(t, 1, f.locker.released)
	})
}

func TestApplicationService_Transitions(t *testing.T) {
	t.Run("foreign agent is forbidden without side effects", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusDraft)
		f.stored(app)
		stranger := origination.ActorContext{UserID: uuid.New(), Role: origination.RoleAgent}

		_, err := f.svc.SubmitApplication(context.Background(), stranger, app.ID)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		f.repos.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		f.repos.docs.AssertNotCalled(t, "FindByApplication", mock.Anything, mock.Anything)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("admin approval in wrong state", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusDraft)
		f.stored(app)

		_, err := f.svc.Approve(context.Background(), testAdmin, app.ID, TransitionRequest{})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("comment is mirrored into chat", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusPendingReview)
		f.stored(app)
		f.repos.messages.On("Append", mock.Anything, mock.MatchedBy(func(msg *origination.ChatMessage) bool {
			return msg.Content == "Please add the audited balance sheet" && msg.Sender.Role == origination.RoleAdmin
		})).Return(nil)

		resp, err := f.svc.RequestInfo(context.Background(), testAdmin, app.ID, TransitionRequest{Comment: " Please add the audited balance sheet "})
		require.NoError(t, err)
		assert.Equal(t, "info_requested", resp.Status)
		assert.Equal(t, 1, resp.InfoRequestCycles)
		assert.ElementsMatch(t, []string{
			origination.EventTypeApplicationStatusChanged,
			origination.EventTypeChatMessagePosted,
		}, f.eventTypes())
	})

	t.Run("info request cycle limit", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxInfoRequestCycles = 2
		f := newServiceFixtureWithConfig(t, cfg)
		app := newApp(t, origination.StatusPendingReview)
		app.InfoRequestCycles = 2
		f.stored(app)

		_, err := f.svc.RequestInfo(context.Background(), testAdmin, app.ID, TransitionRequest{})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, origination.StatusPendingReview, app.Status)

		resp, err := f.svc.Reject(context.Background(), testAdmin, app.ID, TransitionRequest{})
		require.NoError(t, err)
		assert.Equal(t, "rejected", resp.Status)
		assert.True(t, resp.Rejected)
		assert.True(t, resp.Terminal)
	})

	t.Run("busy application", func(t *testing.T) {
		f := newServiceFixture(t)
		f.locker.busy = true

		_, err := f.svc.StartReview(context.Background(), testAdmin, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrConflict))
		f.repos.apps.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("version conflict", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusSubmitted)
		f.repos.apps.On("FindByID", mock.Anything, app.ID).Return(app, nil)
		f.repos.apps.On("SaveWithLock", mock.Anything, app).Return(shared.ErrConflict)

		_, err := f.svc.StartReview(context.Background(), testAdmin, app.ID)
		assert.True(t, errors.Is(err, shared.ErrConflict))
		assert.Empty(t, f.published)
	})
}

func TestApplicationService_SubmitToBank(t *testing.T) {
	t.Run("second submission never reaches the bank", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusPendingReview)
		f.stored(app)
		f.repos.docs.On("FindByApplication", mock.Anything, app.ID).
			Return(completeDocs(t, app.ID, origination.DocumentStatusVerified), nil)
		f.bank.On("Submit", mock.Anything, mock.Anything).
			Return(&origination.BankTicket{TicketID: "BG-42", BankStatus: "Новая"}, nil).Once()

		resp, err := f.svc.SubmitToBank(context.Background(), testAgent, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "BG-42", resp.TicketID)
		assert.Equal(t, "sent_to_bank", resp.Application.Status)
		require.NotNil(t, resp.Application.BankStatus)
		assert.Equal(t, "Новая", *resp.Application.BankStatus)
		assert.Contains(t, f.eventTypes(), origination.EventTypeApplicationSubmittedToBank)

		_, err = f.svc.SubmitToBank(context.Background(), testAgent, app.ID)
		assert.True(t, errors.Is(err, shared.ErrAlreadySubmitted))
		f.bank.AssertNumberOfCalls(t, "Submit", 1)
	})

	t.Run("bank failure keeps application untouched", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusPendingReview)
		f.stored(app)
		f.repos.docs.On("FindByApplication", mock.Anything, app.ID).
			Return(completeDocs(t, app.ID, origination.DocumentStatusVerified), nil)
		f.bank.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("503"))

		_, err := f.svc.SubmitToBank(context.Background(), testAgent, app.ID)
		assert.True(t, errors.Is(err, shared.ErrExternalUnavailable))
		assert.Equal(t, origination.StatusPendingReview, app.Status)
		assert.Nil(t, app.ExternalID)
		f.repos.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("concurrent sync", func(t *testing.T) {
		f := newServiceFixture(t)
		f.locker.busy = true

		_, err := f.svc.SubmitToBank(context.Background(), testAgent, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrSyncInProgress))
		f.bank.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("client may not submit", func(t *testing.T) {
		f := newServiceFixture(t)
		client := origination.ActorContext{UserID: testAgent.UserID, Role: origination.RoleClient}
		app := newApp(t, origination.StatusPendingReview)
		f.stored(app)

		_, err := f.svc.SubmitToBank(context.Background(), client, app.ID)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestApplicationService_RefreshBankStatus(t *testing.T) {
	t.Run("unrecognized status is stored verbatim", func(t *testing.T) {
		f := newServiceFixture(t)
		app := withTicket(newApp(t, origination.StatusSentToBank), "BG-1", "new")
		f.stored(app)
		f.bank.On("FetchStatus", mock.Anything, "BG-1").
			Return(&origination.BankStatusReport{BankStatus: "Передана андеррайтеру"}, nil)

		resp, err := f.svc.RefreshBankStatus(context.Background(), origination.SystemActor(), app.ID)
		require.NoError(t, err)
		assert.Equal(t, "sent_to_bank", resp.Application.Status)
		assert.Equal(t, "Передана андеррайтеру", *resp.Application.BankStatus)
		assert.True(t, resp.Changed)
		assert.False(t, resp.Applied)
		assert.Equal(t, "none", resp.MappedEvent)
	})

	t.Run("approval moves the application", func(t *testing.T) {
		f := newServiceFixture(t)
		app := withTicket(newApp(t, origination.StatusSentToBank), "BG-2", "new")
		f.stored(app)
		f.bank.On("FetchStatus", mock.Anything, "BG-2").
			Return(&origination.BankStatusReport{BankStatus: "ОДОБРЕНА", SigningURL: "https://bank.example/sign/2"}, nil)

		resp, err := f.svc.RefreshBankStatus(context.Background(), testAgent, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "approved", resp.Application.Status)
		assert.True(t, resp.Applied)
		require.NotNil(t, resp.Application.SigningURL)
		assert.Equal(t, "https://bank.example/sign/2", *resp.Application.SigningURL)
		assert.Contains(t, f.eventTypes(), origination.EventTypeApplicationStatusChanged)
	})

	t.Run("event not defined for current status", func(t *testing.T) {
		f := newServiceFixture(t)
		app := withTicket(newApp(t, origination.StatusSigned), "BG-3", "signed")
		f.stored(app)
		f.bank.On("FetchStatus", mock.Anything, "BG-3").
			Return(&origination.BankStatusReport{BankStatus: "rejected"}, nil)

		resp, err := f.svc.RefreshBankStatus(context.Background(), testAgent, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "signed", resp.Application.Status)
		assert.False(t, resp.Applied)
		assert.Equal(t, "rejected", *resp.Application.BankStatus)
	})

	t.Run("unchanged bank status after resolved request", func(t *testing.T) {
		f := newServiceFixture(t)
		app := withTicket(newApp(t, origination.StatusPendingReview), "BG-6", "documents requested")
		app.InfoRequestCycles = 1
		f.stored(app)
		f.bank.On("FetchStatus", mock.Anything, "BG-6").
			Return(&origination.BankStatusReport{BankStatus: "documents requested"}, nil)

		resp, err := f.svc.RefreshBankStatus(context.Background(), testAgent, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "pending_review", resp.Application.Status)
		assert.False(t, resp.Applied)
		assert.False(t, resp.Changed)
		assert.Equal(t, 1, app.InfoRequestCycles)
	})

	t.Run("never submitted", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusPendingReview)
		f.stored(app)

		_, err := f.svc.RefreshBankStatus(context.Background(), testAgent, app.ID)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		f.bank.AssertNotCalled(t, "FetchStatus", mock.Anything, mock.Anything)
	})

	t.Run("bank unavailable leaves row untouched", func(t *testing.T) {
		f := newServiceFixture(t)
		app := withTicket(newApp(t, origination.StatusSentToBank), "BG-4", "new")
		f.stored(app)
		f.bank.On("FetchStatus", mock.Anything, "BG-4").Return(nil, errors.New("reset by peer"))

		_, err := f.svc.RefreshBankStatus(context.Background(), testAgent, app.ID)
		assert.True(t, errors.Is(err, shared.ErrExternalUnavailable))
		assert.Equal(t, "new", *app.BankStatus)
		assert.Nil(t, app.LastSyncedAt)
		f.repos.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestApplicationService_ReviewDocument(t *testing.T) {
	t.Run("rejection requests information", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusPendingReview)
		f.stored(app)
		docs := completeDocs(t, app.ID, origination.DocumentStatusPending)
		f.repos.docs.On("FindByApplication", mock.Anything, app.ID).Return(docs, nil)
		f.repos.docs.On("UpdateReview", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.ReviewDocument(context.Background(), testAdmin, app.ID, docs[1].ID, ReviewDocumentRequest{
			Outcome: origination.DocumentStatusRejected, Comment: "unsigned",
		})
		require.NoError(t, err)
		assert.Equal(t, "info_requested", resp.Application.Status)
		assert.Equal(t, 1, resp.Application.InfoRequestCycles)
		assert.False(t, resp.Resolved)
		assert.ElementsMatch(t, []string{
			origination.EventTypeApplicationStatusChanged,
			origination.EventTypeDocumentReviewed,
		}, f.eventTypes())
	})

	t.Run("verifying the replacement returns to review", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusInfoRequested)
		app.InfoRequestCycles = 1
		f.stored(app)
		docs := completeDocs(t, app.ID, origination.DocumentStatusVerified)
		docs[1].Status = origination.DocumentStatusRejected
		replacement := newDoc(t, app.ID, docs[1].Type, 2, origination.DocumentStatusPending)
		docs = append(docs, replacement)
		f.repos.docs.On("FindByApplication", mock.Anything, app.ID).Return(docs, nil)
		f.repos.docs.On("UpdateReview", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.ReviewDocument(context.Background(), testAdmin, app.ID, replacement.ID, ReviewDocumentRequest{
			Outcome: origination.DocumentStatusVerified,
		})
		require.NoError(t, err)
		assert.True(t, resp.Resolved)
		assert.Equal(t, "pending_review", resp.Application.Status)
		assert.Equal(t, 1, resp.Application.InfoRequestCycles)
	})

	t.Run("rejection beyond the cycle limit is refused", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxInfoRequestCycles = 1
		f := newServiceFixtureWithConfig(t, cfg)
		app := newApp(t, origination.StatusPendingReview)
		app.InfoRequestCycles = 1
		f.stored(app)
		docs := completeDocs(t, app.ID, origination.DocumentStatusPending)
		f.repos.docs.On("FindByApplication", mock.Anything, app.ID).Return(docs, nil)
		f.repos.docs.On("UpdateReview", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.ReviewDocument(context.Background(), testAdmin, app.ID, docs[0].ID, ReviewDocumentRequest{
			Outcome: origination.DocumentStatusRejected,
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		f.repos.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("agent may not review", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusPendingReview)
		f.stored(app)

		_, err := f.svc.ReviewDocument(context.Background(), testAgent, app.ID, uuid.New(), ReviewDocumentRequest{
			Outcome: origination.DocumentStatusVerified,
		})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		f.repos.docs.AssertNotCalled(t, "UpdateReview", mock.Anything, mock.Anything)
	})
}

func TestApplicationService_UploadDocument(t *testing.T) {
	f := newServiceFixture(t)
	app := newApp(t, origination.StatusDraft)
	f.stored(app)
	f.repos.docs.On("FindByApplication", mock.Anything, app.ID).Return([]origination.Document{}, nil)
	f.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, "application/pdf").Return(nil)
	f.repos.docs.On("Create", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.UploadDocument(context.Background(), testAgent, app.ID, UploadDocumentRequest{
		Type: origination.DocumentCharter, FileName: "charter.pdf", ContentType: "application/pdf", Data: []byte("pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Version)
	assert.Equal(t, []string{origination.EventTypeDocumentUploaded}, f.eventTypes())
}

func TestApplicationService_Chat(t *testing.T) {
	t.Run("post message", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusSentToBank)
		f.stored(app)
		f.repos.messages.On("Append", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { args.Get(1).(*origination.ChatMessage).Sequence = 7 }).
			Return(nil)

		resp, err := f.svc.PostMessage(context.Background(), testAgent, app.ID, PostMessageRequest{Content: "any news?"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), resp.Sequence)
		assert.Equal(t, []string{origination.EventTypeChatMessagePosted}, f.eventTypes())
	})

	t.Run("list respects limit", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ChatPageSize = 2
		f := newServiceFixtureWithConfig(t, cfg)
		app := newApp(t, origination.StatusSentToBank)
		f.stored(app)
		f.repos.messages.On("ListAfter", mock.Anything, app.ID, int64(0), 2).Return(chatPage(app.ID, 1, 2), nil)
		f.repos.messages.On("ListAfter", mock.Anything, app.ID, int64(2), 2).Return(chatPage(app.ID, 3, 4), nil)

		resp, err := f.svc.ListMessages(context.Background(), testAgent, app.ID, 0, 3)
		require.NoError(t, err)
		assert.Len(t, resp.Messages, 3)
		assert.Equal(t, int64(3), resp.NextSince)
		assert.True(t, resp.HasMore)
	})

	t.Run("nothing new", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusSentToBank)
		f.stored(app)
		f.repos.messages.On("ListAfter", mock.Anything, app.ID, int64(9), 100).Return([]origination.ChatMessage{}, nil)

		resp, err := f.svc.ListMessages(context.Background(), testAgent, app.ID, 9, 0)
		require.NoError(t, err)
		assert.Empty(t, resp.Messages)
		assert.Equal(t, int64(9), resp.NextSince)
		assert.False(t, resp.HasMore)
	})

	t.Run("negative since", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusSentToBank)
		f.stored(app)

		_, err := f.svc.ListMessages(context.Background(), testAgent, app.ID, -1, 10)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("seo editor is forbidden", func(t *testing.T) {
		f := newServiceFixture(t)
		app := newApp(t, origination.StatusSentToBank)
		f.stored(app)
		editor := origination.ActorContext{UserID: uuid.New(), Role: origination.RoleSEOEditor}

		_, err := f.svc.PostMessage(context.Background(), editor, app.ID, PostMessageRequest{Content: "hi"})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		f.repos.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestApplicationService_Stalled(t *testing.T) {
	f := newServiceFixture(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	stale := withTicket(newApp(t, origination.StatusSentToBank), "BG-7", "in review")
	stale.StatusChangedAt = now.Add(-100 * time.Hour)
	fresh := withTicket(newApp(t, origination.StatusSentToBank), "BG-8", "in review")
	fresh.StatusChangedAt = now.Add(-time.Hour)
	f.repos.apps.On("FindSubmittedInStatuses", mock.Anything, []origination.ApplicationStatus{origination.StatusSentToBank}, 0).
		Return([]origination.Application{*stale, *fresh}, nil)

	count, err := f.svc.ReportStalled(context.Background(), origination.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.published, 1)
	assert.Equal(t, stale.ID, f.published[0].AggregateID())

	_, err = f.svc.FindStalled(context.Background(), testAgent)
	assert.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestApplicationService_ListSyncCandidates(t *testing.T) {
	f := newServiceFixture(t)
	app := withTicket(newApp(t, origination.StatusSentToBank), "BG-9", "new")
	f.repos.apps.On("FindSubmittedInStatuses", mock.Anything, origination.SyncableStatuses(), 50).
		Return([]origination.Application{*app}, nil)

	ids, err := f.svc.ListSyncCandidates(context.Background(), origination.SystemActor(), 50)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{app.ID}, ids)
}
