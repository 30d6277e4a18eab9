// Package events carries domain events to asynchronous collaborators.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	FriendRequestSent     Type = "friend.request_sent"
	FriendRequestAccepted Type = "friend.request_accepted"
	FriendRequestDeclined Type = "friend.request_declined"
	FriendRemoved         Type = "friend.removed"
	UserBlocked           Type = "user.blocked"
	InvitationCreated     Type = "invitation.created"
	InvitationAccepted    Type = "invitation.accepted"
	InvitationDeclined    Type = "invitation.declined"
	GroupCreated          Type = "group.created"
	GroupDeleted          Type = "group.deleted"
	MemberAdded           Type = "group.member_added"
	MemberRemoved         Type = "group.member_removed"
	MemberRoleChanged     Type = "group.member_role_changed"
)

// Event is the payload handed to sinks. ActorID is who triggered it,
// SubjectID who it is about; either may be nil for system events.
type Event struct {
	Type       Type              `json:"type"`
	ActorID    uuid.UUID         `json:"actor_id"`
	SubjectID  uuid.UUID         `json:"subject_id,omitempty"`
	GroupID    *uuid.UUID        `json:"group_id,omitempty"`
	EntityID   *uuid.UUID        `json:"entity_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher delivers events best-effort: it must never block the caller
// and never surface delivery failures to it.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher drops every event. Useful in tests and as a default.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
