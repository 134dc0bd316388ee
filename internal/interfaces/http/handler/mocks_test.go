package handler

import (
	"context"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockApplicationService is a mock implementation of ApplicationService
type MockApplicationService struct {
	mock.Mock
}

var _ ApplicationService = (*MockApplicationService)(nil)

func appResult(args mock.Arguments) (*apporig.ApplicationResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.ApplicationResponse), args.Error(1)
}

func (m *MockApplicationService) CreateDraft(ctx context.Context, actor origination.ActorContext, req apporig.CreateDraftRequest) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, req))
}

func (m *MockApplicationService) GetApplication(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id))
}

func (m *MockApplicationService) ListApplications(ctx context.Context, actor origination.ActorContext, filter apporig.ApplicationListFilter) ([]apporig.ApplicationResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]apporig.ApplicationResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockApplicationService) FindStalled(ctx context.Context, actor origination.ActorContext) ([]apporig.ApplicationResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apporig.ApplicationResponse), args.Error(1)
}

func (m *MockApplicationService) SubmitApplication(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id))
}

func (m *MockApplicationService) StartReview(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id))
}

func (m *MockApplicationService) RequestInfo(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.TransitionRequest) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id, req))
}

func (m *MockApplicationService) Approve(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.TransitionRequest) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id, req))
}

func (m *MockApplicationService) Reject(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.TransitionRequest) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id, req))
}

func (m *MockApplicationService) ConfirmSigned(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id))
}

func (m *MockApplicationService) Complete(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error) {
	return appResult(m.Called(ctx, actor, id))
}

func (m *MockApplicationService) ListDocuments(ctx context.Context, actor origination.ActorContext, id uuid.UUID) ([]apporig.DocumentResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apporig.DocumentResponse), args.Error(1)
}

func (m *MockApplicationService) InitiateDocumentUpload(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.InitiateUploadRequest) (*apporig.InitiateUploadResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.InitiateUploadResponse), args.Error(1)
}

func (m *MockApplicationService) UploadDocument(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.UploadDocumentRequest) (*apporig.DocumentResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.DocumentResponse), args.Error(1)
}

func (m *MockApplicationService) ReviewDocument(ctx context.Context, actor origination.ActorContext, id, documentID uuid.UUID, req apporig.ReviewDocumentRequest) (*apporig.ReviewDocumentResponse, error) {
	args := m.Called(ctx, actor, id, documentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.ReviewDocumentResponse), args.Error(1)
}

func (m *MockApplicationService) SubmitToBank(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.BankSubmitResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.BankSubmitResponse), args.Error(1)
}

func (m *MockApplicationService) RefreshBankStatus(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.BankRefreshResponse, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.BankRefreshResponse), args.Error(1)
}

func (m *MockApplicationService) PostMessage(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.PostMessageRequest) (*apporig.ChatMessageResponse, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.ChatMessageResponse), args.Error(1)
}

func (m *MockApplicationService) ListMessages(ctx context.Context, actor origination.ActorContext, id uuid.UUID, since int64, limit int) (*apporig.ListMessagesResponse, error) {
	args := m.Called(ctx, actor, id, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporig.ListMessagesResponse), args.Error(1)
}
