package origination

import (
	"fmt"
	"slices"

	"github.com/finhub/backend/internal/domain/shared"
)

// Action is an operation a caller can attempt on an application
type Action string

const (
	ActionCreateDraft       Action = "create_draft"
	ActionView              Action = "view"
	ActionUploadDocument    Action = "upload_document"
	ActionSubmitApplication Action = "submit_application"
	ActionStartReview       Action = "start_review"
	ActionReviewDocument    Action = "review_document"
	ActionSubmitToBank      Action = "submit_to_bank"
	ActionRefreshBankStatus Action = "refresh_bank_status"
	ActionRequestInfo       Action = "request_info"
	ActionApprove           Action = "approve"
	ActionReject            Action = "reject"
	ActionConfirmSigned     Action = "confirm_signed"
	ActionComplete          Action = "complete"
	ActionPostMessage       Action = "post_message"
	ActionListMessages      Action = "list_messages"
)

// accessRule lists the roles allowed to perform an action and the states in
// which it is legal. A nil states slice means any state.
type accessRule struct {
	roles    []Role
	states   []ApplicationStatus
	external externalRequirement
}

type externalRequirement int

const (
	externalAny externalRequirement = iota
	externalRequired
	externalForbidden
)

var accessRules = map[Action]accessRule{
	ActionCreateDraft: {roles: []Role{RoleClient, RoleAgent, RoleAdmin}},
	ActionView:        {roles: []Role{RoleClient, RoleAgent, RoleAdmin, RolePartner, RoleSystem}},
	ActionUploadDocument: {
		roles:  []Role{RoleClient, RoleAgent, RoleAdmin},
		states: []ApplicationStatus{StatusDraft, StatusInfoRequested},
	},
	ActionSubmitApplication: {
		roles:  []Role{RoleClient, RoleAgent, RoleAdmin},
		states: []ApplicationStatus{StatusDraft},
	},
	ActionStartReview: {
		roles:  []Role{RoleAdmin},
		states: []ApplicationStatus{StatusSubmitted},
	},
	ActionReviewDocument: {
		roles:  []Role{RoleAdmin, RolePartner},
		states: []ApplicationStatus{StatusPendingReview, StatusSentToBank, StatusInfoRequested},
	},
	ActionSubmitToBank: {
		roles:    []Role{RoleAgent, RoleAdmin},
		states:   []ApplicationStatus{StatusPendingReview},
		external: externalForbidden,
	},
	ActionRefreshBankStatus: {
		roles:    []Role{RoleClient, RoleAgent, RoleAdmin, RoleSystem},
		external: externalRequired,
	},
	ActionRequestInfo: {
		roles:  []Role{RoleAdmin},
		states: []ApplicationStatus{StatusPendingReview, StatusSentToBank},
	},
	ActionApprove: {
		roles:  []Role{RoleAdmin},
		states: []ApplicationStatus{StatusPendingReview, StatusSentToBank},
	},
	ActionReject: {
		roles:  []Role{RoleAdmin},
		states: []ApplicationStatus{StatusPendingReview, StatusSentToBank, StatusInfoRequested},
	},
	ActionConfirmSigned: {
		roles:  []Role{RoleAdmin},
		states: []ApplicationStatus{StatusApproved},
	},
	ActionComplete: {
		roles:  []Role{RoleAdmin},
		states: []ApplicationStatus{StatusSigned},
	},
	ActionPostMessage:  {roles: []Role{RoleClient, RoleAgent, RoleAdmin, RolePartner}},
	ActionListMessages: {roles: []Role{RoleClient, RoleAgent, RoleAdmin, RolePartner}},
}

// Authorize decides whether actor may perform action on app.
//
// Role and scope failures return FORBIDDEN. A legal caller acting in the
// wrong state gets INVALID_STATE, except submit_to_bank on an application
// that already has a ticket, which returns ALREADY_SUBMITTED.
// app is nil only for create_draft.
func Authorize(actor ActorContext, action Action, app *Application) error {
	rule, ok := accessRules[action]
	if !ok {
		return shared.NewDomainError(shared.CodeForbidden, fmt.Sprintf("Unknown action %s", action))
	}
	if !slices.Contains(rule.roles, actor.Role) {
		return shared.NewDomainError(shared.CodeForbidden,
			fmt.Sprintf("Role %s may not %s", actor.Role, action))
	}

	if app == nil {
		if action == ActionCreateDraft {
			return nil
		}
		return shared.NewDomainError(shared.CodeInvalidInput, "Application is required")
	}

	if !inScope(actor, app) {
		return shared.NewDomainError(shared.CodeForbidden, "Application is outside of your scope")
	}

	switch {
	case rule.external == externalRequired && !app.IsSubmittedToBank():
		return shared.NewDomainError(shared.CodeInvalidState, "Application has not been submitted to the bank")
	case rule.external == externalForbidden && app.IsSubmittedToBank():
		return shared.ErrAlreadySubmitted
	}

	if rule.states != nil && !slices.Contains(rule.states, app.Status) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot %s while application is %s", action, app.Status))
	}
	return nil
}

// inScope applies ownership and bank-affiliation restrictions
func inScope(actor ActorContext, app *Application) bool {
	switch actor.Role {
	case RoleAdmin, RoleSystem:
		return true
	case RoleClient, RoleAgent:
		return app.OwnedBy(actor.UserID)
	case RolePartner:
		return actor.BankID != nil && *actor.BankID == app.TargetBankID
	}
	return false
}

// CanSeeAll reports whether the actor's listings are unrestricted
func CanSeeAll(actor ActorContext) bool {
	return actor.Role == RoleAdmin || actor.Role == RoleSystem
}
