package origination

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatKey builds the storage key of a chat attachment
func ChatKey(applicationID uuid.UUID, fileName string) string {
	return fmt.Sprintf("applications/%s/chat/%s-%s", applicationID, uuid.NewString(), sanitizeFileName(fileName))
}

// ChatChannel is the append-only message log of an application
type ChatChannel struct {
	txScope            TransactionScope
	messages           origination.ChatMessageRepository
	storage            ObjectStorage
	pageSize           int
	maxAttachmentBytes int64
	logger             *zap.Logger
}

// NewChatChannel creates a new ChatChannel. messages is used for reads
// outside of a transaction.
func NewChatChannel(txScope TransactionScope, messages origination.ChatMessageRepository, storage ObjectStorage, cfg Config, logger *zap.Logger) *ChatChannel {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatChannel{
		txScope:            txScope,
		messages:           messages,
		storage:            storage,
		pageSize:           cfg.ChatPageSize,
		maxAttachmentBytes: cfg.MaxAttachmentBytes,
		logger:             logger,
	}
}

// Post appends a message. With an attachment, storing the bytes and
// inserting the row succeed or fail together: a storage failure leaves no
// message and a failed insert removes the stored object.
func (c *ChatChannel) Post(ctx context.Context, applicationID uuid.UUID, sender origination.ActorRef, content string, attachment *AttachmentUpload) (*origination.ChatMessage, error) {
	var fileRef *origination.FileRef
	if attachment != nil {
		if err := c.validateAttachment(attachment); err != nil {
			return nil, err
		}
		fileRef = &origination.FileRef{
			StorageKey:  ChatKey(applicationID, attachment.FileName),
			FileName:    strings.TrimSpace(attachment.FileName),
			ContentType: attachment.ContentType,
			Size:        int64(len(attachment.Data)),
		}
	}

	msg, err := origination.NewChatMessage(applicationID, sender, content, fileRef)
	if err != nil {
		return nil, err
	}

	stored := false
	err = c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if fileRef != nil {
			if err := c.storage.Upload(ctx, fileRef.StorageKey, attachment.Data, attachment.ContentType); err != nil {
				return fmt.Errorf("%w: store attachment: %v", shared.ErrExternalUnavailable, err)
			}
			stored = true
		}
		return repos.ChatMessageRepo().Append(ctx, msg)
	})
	if err != nil {
		if stored {
			if delErr := c.storage.DeleteObject(context.WithoutCancel(ctx), fileRef.StorageKey); delErr != nil {
				c.logger.Error("failed to delete attachment of unsaved message",
					zap.String("application_id", applicationID.String()),
					zap.String("storage_key", fileRef.StorageKey),
					zap.Error(delErr),
				)
			}
		}
		return nil, err
	}

	c.logger.Debug("chat message posted",
		zap.String("application_id", applicationID.String()),
		zap.Int64("sequence", msg.Sequence),
		zap.Bool("attachment", msg.HasAttachment()),
	)
	return msg, nil
}

func (c *ChatChannel) validateAttachment(a *AttachmentUpload) error {
	if strings.TrimSpace(a.FileName) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Attachment file name cannot be empty")
	}
	if len(a.Data) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Attachment is empty")
	}
	if int64(len(a.Data)) > c.maxAttachmentBytes {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Attachment is %d bytes, limit is %d", len(a.Data), c.maxAttachmentBytes))
	}
	if !origination.IsAllowedContentType(a.ContentType) {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Content type %q is not accepted", a.ContentType))
	}
	return nil
}

// List returns the messages posted after sequence since, in order.
// The sequence is lazy and fetched page by page; ranging over it again
// re-queries from since.
func (c *ChatChannel) List(ctx context.Context, applicationID uuid.UUID, since int64) iter.Seq2[origination.ChatMessage, error] {
	return func(yield func(origination.ChatMessage, error) bool) {
		cursor := since
		for {
			page, err := c.messages.ListAfter(ctx, applicationID, cursor, c.pageSize)
			if err != nil {
				yield(origination.ChatMessage{}, err)
				return
			}
			for _, msg := range page {
				if !yield(msg, nil) {
					return
				}
				cursor = msg.Sequence
			}
			if len(page) < c.pageSize {
				return
			}
		}
	}
}
