// Package services holds the orchestration layer between HTTP handlers
// and persistence. Services own the domain rules; repositories only
// move aggregates in and out of storage.
package services

import (
	"context"

	"taskhub-backend/models"

	"github.com/google/uuid"
)

// UserExistence answers whether a user account exists.
type UserExistence interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// UserInfoProvider batch-resolves user display info for enrichment.
type UserInfoProvider interface {
	GetUsersInfoBatch(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.UserInfo, error)
}

// GroupRepository persists group aggregates and their memberships.
// Writes that carry expectedVersion are compare-and-swap on the group's
// version column and must return a conflict when the row has moved on.
// AddMember/RemoveMember persist the membership row and the group's
// member_count/version in one transaction.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group, owner *models.GroupMember) error
	GetGroupByID(ctx context.Context, groupID uuid.UUID) (*models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group, expectedVersion int64) error
	DeleteGroup(ctx context.Context, groupID uuid.UUID) error
	ListGroupsByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]models.Group, int64, error)
	ListGroupsByMember(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Group, int64, error)
	SearchGroups(ctx context.Context, query string, page, pageSize int) ([]models.Group, int64, error)

	AddMember(ctx context.Context, member *models.GroupMember, group *models.Group, expectedVersion int64) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID, group *models.Group, expectedVersion int64) error
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error)
	UpdateMemberRole(ctx context.Context, member *models.GroupMember) error
	ListMembers(ctx context.Context, groupID uuid.UUID, page, pageSize int) ([]models.GroupMember, int64, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (models.MemberRole, error)
	GetMemberCount(ctx context.Context, groupID uuid.UUID) (int, error)
	GetGroupStats(ctx context.Context, groupID uuid.UUID) (*models.GroupStats, error)
}

// FriendshipRepository persists pairwise relationship records. At most
// one record exists per unordered pair; Create must surface a conflict
// when a concurrent insert wins the unique index.
type FriendshipRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	Update(ctx context.Context, friendship *models.Friendship) error
	Delete(ctx context.Context, friendshipID uuid.UUID) error
	GetByID(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error)
	GetByPair(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error)
	ListFriends(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error)
	ListPending(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error)
	ListSent(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error)
	ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// InvitationRepository persists invitations. UpdateFrom is a
// compare-and-swap on the stored status so concurrent accepts of the
// same code resolve to exactly one winner.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.Invitation) error
	UpdateFrom(ctx context.Context, invitation *models.Invitation, fromStatus models.InvitationStatus) error
	GetByID(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error)
	GetByCode(ctx context.Context, code string) (*models.Invitation, error)
	ListByInviter(ctx context.Context, inviterID uuid.UUID, page, pageSize int) ([]models.Invitation, int64, error)
	ListForInvitee(ctx context.Context, inviteeID uuid.UUID, page, pageSize int) ([]models.Invitation, int64, error)
	ListPendingByInviteeInfo(ctx context.Context, inviteeInfo string) ([]models.Invitation, error)
}

// URLGateway materializes an invitation code into a shareable URL.
type URLGateway interface {
	GenerateInviteURL(invitationID uuid.UUID, code string) string
}

// AppURLGateway builds invite URLs on the app's own public base URL.
type AppURLGateway struct {
	BaseURL string
}

func (g AppURLGateway) GenerateInviteURL(invitationID uuid.UUID, code string) string {
	return g.BaseURL + "/invite/" + code
}

// Warning reports a best-effort side effect that failed after the
// primary operation already succeeded.
type Warning struct {
	Op  string
	Err error
}

func (w *Warning) String() string {
	if w == nil {
		return ""
	}
	return w.Op + ": " + w.Err.Error()
}
