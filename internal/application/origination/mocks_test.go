package origination

import (
	"context"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockApplicationRepository is a mock implementation of ApplicationRepository
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*origination.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*origination.Application), args.Error(1)
}

func (m *MockApplicationRepository) FindAll(ctx context.Context, filter origination.ApplicationFilter) ([]origination.Application, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]origination.Application), args.Get(1).(int64), args.Error(2)
}

func (m *MockApplicationRepository) FindSubmittedInStatuses(ctx context.Context, statuses []origination.ApplicationStatus, limit int) ([]origination.Application, error) {
	args := m.Called(ctx, statuses, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]origination.Application), args.Error(1)
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *origination.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockApplicationRepository) SaveWithLock(ctx context.Context, app *origination.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*origination.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*origination.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByApplication(ctx context.Context, applicationID uuid.UUID) ([]origination.Document, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]origination.Document), args.Error(1)
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *origination.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpdateReview(ctx context.Context, doc *origination.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// MockChatMessageRepository is a mock implementation of ChatMessageRepository
type MockChatMessageRepository struct {
	mock.Mock
}

func (m *MockChatMessageRepository) Append(ctx context.Context, msg *origination.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatMessageRepository) ListAfter(ctx context.Context, applicationID uuid.UUID, since int64, limit int) ([]origination.ChatMessage, error) {
	args := m.Called(ctx, applicationID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]origination.ChatMessage), args.Error(1)
}

// MockBankSystem is a mock implementation of BankSystem
type MockBankSystem struct {
	mock.Mock
}

func (m *MockBankSystem) Submit(ctx context.Context, submission origination.BankSubmission) (*origination.BankTicket, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*origination.BankTicket), args.Error(1)
}

func (m *MockBankSystem) FetchStatus(ctx context.Context, ticketID string) (*origination.BankStatusReport, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*origination.BankStatusReport), args.Error(1)
}

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	args := m.Called(ctx, storageKey, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notification Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// testRepos runs transactions without a database; the mocks see every call
type testRepos struct {
	apps     *MockApplicationRepository
	docs     *MockDocumentRepository
	messages *MockChatMessageRepository
}

func newTestRepos() *testRepos {
	return &testRepos{
		apps:     new(MockApplicationRepository),
		docs:     new(MockDocumentRepository),
		messages: new(MockChatMessageRepository),
	}
}

func (r *testRepos) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(r)
}

func (r *testRepos) ApplicationRepo() origination.ApplicationRepository {
	return r.apps
}

func (r *testRepos) DocumentRepo() origination.DocumentRepository {
	return r.docs
}

func (r *testRepos) ChatMessageRepo() origination.ChatMessageRepository {
	return r.messages
}

// testLocker grants every lock unless busy is set
type testLocker struct {
	busy     bool
	acquired int
	released int
}

func (l *testLocker) TryLock(_ context.Context, _ uuid.UUID) (func(), error) {
	if l.busy {
		return nil, ErrLockNotAcquired
	}
	l.acquired++
	return func() { l.released++ }, nil
}

var (
	_ TransactionScope          = (*testRepos)(nil)
	_ TransactionalRepositories = (*testRepos)(nil)
	_ ApplicationLocker         = (*testLocker)(nil)
)
