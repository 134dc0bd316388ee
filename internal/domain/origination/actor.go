package origination

import "github.com/google/uuid"

// Role is the caller's role as asserted by the auth collaborator
type Role string

const (
	RoleClient    Role = "client"
	RoleAgent     Role = "agent"
	RolePartner   Role = "partner"
	RoleAdmin     Role = "admin"
	RoleSEOEditor Role = "seo_editor"
	// RoleSystem is used by background jobs such as the bank status poller
	RoleSystem Role = "system"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleAgent, RolePartner, RoleAdmin, RoleSEOEditor, RoleSystem:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// ActorRef identifies who created or touched a record
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// ActorContext is the identity passed explicitly into every service call.
// BankID is set for partner users and names the bank they are affiliated with.
type ActorContext struct {
	UserID uuid.UUID
	Role   Role
	BankID *uuid.UUID
}

// Ref returns the persistent reference for the actor
func (a ActorContext) Ref() ActorRef {
	return ActorRef{UserID: a.UserID, Role: a.Role}
}

// SystemActor returns the actor used by background jobs
func SystemActor() ActorContext {
	return ActorContext{UserID: uuid.Nil, Role: RoleSystem}
}
