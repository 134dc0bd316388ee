package origination

import (
	"fmt"

	"github.com/finhub/backend/internal/domain/shared"
)

// ApplicationStatus is the canonical, locally owned lifecycle state of an application
type ApplicationStatus string

const (
	StatusDraft         ApplicationStatus = "draft"
	StatusSubmitted     ApplicationStatus = "submitted"
	StatusPendingReview ApplicationStatus = "pending_review"
	StatusSentToBank    ApplicationStatus = "sent_to_bank"
	StatusInfoRequested ApplicationStatus = "info_requested"
	StatusApproved      ApplicationStatus = "approved"
	StatusRejected      ApplicationStatus = "rejected"
	StatusSigned        ApplicationStatus = "signed"
	StatusCompleted     ApplicationStatus = "completed"
)

// AllStatuses returns every application status in stepper order
func AllStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		StatusDraft,
		StatusSubmitted,
		StatusPendingReview,
		StatusSentToBank,
		StatusInfoRequested,
		StatusApproved,
		StatusRejected,
		StatusSigned,
		StatusCompleted,
	}
}

// IsValid checks if the status is a known ApplicationStatus
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusPendingReview, StatusSentToBank, StatusInfoRequested,
		StatusApproved, StatusRejected, StatusSigned, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of ApplicationStatus
func (s ApplicationStatus) String() string {
	return string(s)
}

// StatusEvent is an input to the status state machine
type StatusEvent string

const (
	// EventNone is produced for unrecognized bank statuses. It never changes state.
	EventNone StatusEvent = ""

	EventSubmit           StatusEvent = "submit"
	EventStartReview      StatusEvent = "start_review"
	EventSendToBankAck    StatusEvent = "send_to_bank_ack"
	EventBankStatusUpdate StatusEvent = "bank_status_update"
	EventRequestInfo      StatusEvent = "request_info"
	EventDocumentResolved StatusEvent = "document_resolved"
	EventApprove          StatusEvent = "approve"
	EventReject           StatusEvent = "reject"
	EventSignedConfirmed  StatusEvent = "signed_confirmed"
	EventComplete         StatusEvent = "complete"
)

// AllEvents returns every event accepted by Transition
func AllEvents() []StatusEvent {
	return []StatusEvent{
		EventSubmit,
		EventStartReview,
		EventSendToBankAck,
		EventBankStatusUpdate,
		EventRequestInfo,
		EventDocumentResolved,
		EventApprove,
		EventReject,
		EventSignedConfirmed,
		EventComplete,
	}
}

// String returns the string representation of StatusEvent
func (e StatusEvent) String() string {
	if e == EventNone {
		return "none"
	}
	return string(e)
}

// transitions is the complete state machine. Pairs not listed are invalid.
var transitions = map[ApplicationStatus]map[StatusEvent]ApplicationStatus{
	StatusDraft: {
		EventSubmit: StatusSubmitted,
	},
	StatusSubmitted: {
		EventStartReview: StatusPendingReview,
	},
	StatusPendingReview: {
		EventSendToBankAck:    StatusSentToBank,
		EventRequestInfo:      StatusInfoRequested,
		EventApprove:          StatusApproved,
		EventReject:           StatusRejected,
		EventBankStatusUpdate: StatusPendingReview,
	},
	StatusSentToBank: {
		EventBankStatusUpdate: StatusSentToBank,
		EventRequestInfo:      StatusInfoRequested,
		EventApprove:          StatusApproved,
		EventReject:           StatusRejected,
	},
	StatusInfoRequested: {
		EventDocumentResolved: StatusPendingReview,
		EventRequestInfo:      StatusInfoRequested,
		EventBankStatusUpdate: StatusInfoRequested,
		EventReject:           StatusRejected,
	},
	StatusApproved: {
		EventSignedConfirmed:  StatusSigned,
		EventBankStatusUpdate: StatusApproved,
	},
	StatusSigned: {
		EventComplete:         StatusCompleted,
		EventBankStatusUpdate: StatusSigned,
	},
}

// Transition computes the next status for an event.
// It returns an INVALID_TRANSITION error when the event is not defined for the status.
func Transition(from ApplicationStatus, event StatusEvent) (ApplicationStatus, error) {
	if next, ok := transitions[from][event]; ok {
		return next, nil
	}
	return from, shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("event %s is not defined for status %s", event, from))
}

// CanApply reports whether event is defined for status
func CanApply(from ApplicationStatus, event StatusEvent) bool {
	_, ok := transitions[from][event]
	return ok
}

// StepCount is the number of positions in the UI stepper
const StepCount = 7

// DeriveStep maps a status to its stepper position (0..StepCount-1).
// info_requested shares the review step; rejected shares the decision step.
func DeriveStep(s ApplicationStatus) int {
	switch s {
	case StatusDraft:
		return 0
	case StatusSubmitted:
		return 1
	case StatusPendingReview, StatusInfoRequested:
		return 2
	case StatusSentToBank:
		return 3
	case StatusApproved, StatusRejected:
		return 4
	case StatusSigned:
		return 5
	case StatusCompleted:
		return 6
	}
	return 0
}

// IsRejected reports whether the status is the rejection outcome
func IsRejected(s ApplicationStatus) bool {
	return s == StatusRejected
}

// IsTerminal reports whether no further transitions exist from s
func IsTerminal(s ApplicationStatus) bool {
	return s == StatusRejected || s == StatusCompleted
}

// SyncableStatuses are the non-terminal statuses in which an application
// with an external id keeps polling the bank
func SyncableStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		StatusPendingReview,
		StatusSentToBank,
		StatusInfoRequested,
		StatusApproved,
		StatusSigned,
	}
}
