package event

import (
	"github.com/finhub/backend/internal/domain/origination"
)

// RegisterOriginationEvents registers every application lifecycle event with the serializer
func RegisterOriginationEvents(s *EventSerializer) {
	s.Register(
		origination.EventTypeApplicationCreated,
		origination.EventTypeApplicationStatusChanged,
		origination.EventTypeApplicationSubmittedToBank,
		origination.EventTypeBankStatusRefreshed,
		origination.EventTypeDocumentUploaded,
		origination.EventTypeDocumentReviewed,
		origination.EventTypeChatMessagePosted,
		origination.EventTypeApplicationStalled,
	)
}
