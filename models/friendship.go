package models

import (
	"strings"
	"time"

	"taskhub-backend/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendshipStatus is the state of a pairwise relationship.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "PENDING"
	FriendshipAccepted FriendshipStatus = "ACCEPTED"
	FriendshipBlocked  FriendshipStatus = "BLOCKED"
)

func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipBlocked:
		return true
	}
	return false
}

// Friendship is the single record kept per unordered user pair. The
// requester/addressee direction is provenance only; PairKey normalizes
// the pair so the database can enforce at-most-one record per pair.
type Friendship struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID uuid.UUID        `gorm:"type:uuid;index;not null" json:"requester_id"`
	AddresseeID uuid.UUID        `gorm:"type:uuid;index;not null" json:"addressee_id"`
	PairKey     string           `gorm:"uniqueIndex;not null;size:80" json:"-"`
	Status      FriendshipStatus `gorm:"not null;size:20" json:"status"`
	Message     string           `gorm:"size:500" json:"message,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
	BlockedAt   *time.Time       `json:"blocked_at,omitempty"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.PairKey == "" {
		f.PairKey = PairKey(f.RequesterID, f.AddresseeID)
	}
	return nil
}

// PairKey returns the order-independent key for two user IDs.
func PairKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if strings.Compare(as, bs) > 0 {
		as, bs = bs, as
	}
	return as + ":" + bs
}

// NewFriendRequest starts a PENDING relationship from requester to addressee.
func NewFriendRequest(requesterID, addresseeID uuid.UUID, message string) *Friendship {
	return &Friendship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		PairKey:     PairKey(requesterID, addresseeID),
		Status:      FriendshipPending,
		Message:     message,
	}
}

// Accept transitions PENDING → ACCEPTED; only the addressee may accept.
func (f *Friendship) Accept(accepterID uuid.UUID) error {
	if f.Status != FriendshipPending {
		return apperrors.Conflict(apperrors.CodeFriendNotPending, "friend request is not pending")
	}
	if accepterID != f.AddresseeID {
		return apperrors.Permission(apperrors.CodeNotAuthorized, "only the addressee can accept a friend request")
	}
	now := time.Now()
	f.Status = FriendshipAccepted
	f.AcceptedAt = &now
	f.UpdatedAt = now
	return nil
}

// Block overwrites whatever state the relationship was in.
func (f *Friendship) Block() {
	now := time.Now()
	f.Status = FriendshipBlocked
	f.BlockedAt = &now
	f.AcceptedAt = nil
	f.UpdatedAt = now
}

// Involves reports whether the given user is one side of the pair.
func (f *Friendship) Involves(userID uuid.UUID) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// OtherSide returns the counterpart of the given user in the pair.
func (f *Friendship) OtherSide(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// Request structs
type SendFriendRequestRequest struct {
	AddresseeID uuid.UUID `json:"addressee_id" binding:"required"`
	Message     string    `json:"message"`
}

// Response structs
type FriendshipResponse struct {
	ID          uuid.UUID        `json:"id"`
	RequesterID uuid.UUID        `json:"requester_id"`
	AddresseeID uuid.UUID        `json:"addressee_id"`
	Status      FriendshipStatus `json:"status"`
	Message     string           `json:"message,omitempty"`
	Friend      *UserInfo        `json:"friend,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
}

func (f *Friendship) ToResponse() FriendshipResponse {
	return FriendshipResponse{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		AddresseeID: f.AddresseeID,
		Status:      f.Status,
		Message:     f.Message,
		CreatedAt:   f.CreatedAt,
		AcceptedAt:  f.AcceptedAt,
	}
}
