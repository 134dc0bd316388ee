package persistence

import (
	"context"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apporig.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

// GormRepositories provides the origination repositories bound to one
// *gorm.DB, either the pool or an open transaction.
type GormRepositories struct {
	db *gorm.DB
}

// NewGormRepositories binds the origination repositories to db.
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{db: db}
}

// ApplicationRepo returns the application repository
func (r *GormRepositories) ApplicationRepo() origination.ApplicationRepository {
	return NewGormApplicationRepository(r.db)
}

// DocumentRepo returns the document repository
func (r *GormRepositories) DocumentRepo() origination.DocumentRepository {
	return NewGormDocumentRepository(r.db)
}

// ChatMessageRepo returns the chat message repository
func (r *GormRepositories) ChatMessageRepo() origination.ChatMessageRepository {
	return NewGormChatMessageRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apporig.TransactionScope = (*GormTransactionScope)(nil)

// Ensure GormRepositories implements TransactionalRepositories
var _ apporig.TransactionalRepositories = (*GormRepositories)(nil)
