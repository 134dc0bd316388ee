package origination

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxMessageRunes caps the text content of a chat message
const MaxMessageRunes = 4000

// ChatMessage is an immutable entry in an application's chat.
// Sequence is assigned by the repository on append.
type ChatMessage struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	Sender        ActorRef
	Content       string
	Attachment    *FileRef
	Sequence      int64
	CreatedAt     time.Time
}

// NewChatMessage validates and builds a message. Content is trimmed.
func NewChatMessage(applicationID uuid.UUID, sender ActorRef, content string, attachment *FileRef) (*ChatMessage, error) {
	if applicationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Application ID cannot be empty")
	}
	content = strings.TrimSpace(content)
	if content == "" && attachment == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Message must have content or an attachment")
	}
	if n := utf8.RuneCountInString(content); n > MaxMessageRunes {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Message content is %d characters, limit is %d", n, MaxMessageRunes))
	}
	if attachment != nil {
		if err := attachment.Validate(); err != nil {
			return nil, err
		}
	}

	return &ChatMessage{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		Sender:        sender,
		Content:       content,
		Attachment:    attachment,
		CreatedAt:     time.Now(),
	}, nil
}

// HasAttachment reports whether the message carries a file
func (m *ChatMessage) HasAttachment() bool {
	return m.Attachment != nil
}
