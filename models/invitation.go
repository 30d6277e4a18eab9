package models

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"taskhub-backend/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvitationType distinguishes what accepting the invite produces.
type InvitationType string

const (
	InvitationTypeFriend InvitationType = "FRIEND"
	InvitationTypeGroup  InvitationType = "GROUP"
)

func (t InvitationType) Valid() bool {
	switch t {
	case InvitationTypeFriend, InvitationTypeGroup:
		return true
	}
	return false
}

// InvitationMethod is how the invite reaches its recipient.
type InvitationMethod string

const (
	InvitationMethodInApp InvitationMethod = "IN_APP"
	InvitationMethodCode  InvitationMethod = "CODE"
	InvitationMethodURL   InvitationMethod = "URL"
)

func (m InvitationMethod) Valid() bool {
	switch m {
	case InvitationMethodInApp, InvitationMethodCode, InvitationMethodURL:
		return true
	}
	return false
}

// InvitationStatus is the stored lifecycle state. Expiry is evaluated
// lazily against ExpiresAt, so a stored PENDING can still be dead.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationDeclined  InvitationStatus = "DECLINED"
	InvitationCancelled InvitationStatus = "CANCELLED"
	InvitationExpired   InvitationStatus = "EXPIRED"
)

const (
	DefaultInvitationTTL = 168 * time.Hour
	MinInvitationTTL     = time.Hour
	MaxInvitationTTL     = 168 * time.Hour
	MaxInvitationMessage = 500
)

// Metadata is a free-form jsonb bag attached to an invitation.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = nil
		return nil
	}
	return fmt.Errorf("unsupported metadata column type %T", value)
}

type Invitation struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Type        InvitationType   `gorm:"not null;size:20;index" json:"type"`
	Method      InvitationMethod `gorm:"not null;size:20" json:"method"`
	Status      InvitationStatus `gorm:"not null;size:20;index" json:"status"`
	InviterID   uuid.UUID        `gorm:"type:uuid;index;not null" json:"inviter_id"`
	InviteeID   *uuid.UUID       `gorm:"type:uuid;index" json:"invitee_id,omitempty"`
	InviteeInfo string           `gorm:"size:255" json:"invitee_info,omitempty"`
	GroupID     *uuid.UUID       `gorm:"type:uuid;index" json:"group_id,omitempty"`
	Code        string           `gorm:"uniqueIndex;size:64" json:"code,omitempty"`
	Message     string           `gorm:"size:500" json:"message,omitempty"`
	Metadata    Metadata         `gorm:"type:jsonb" json:"metadata,omitempty"`
	ExpiresAt   time.Time        `gorm:"not null;index" json:"expires_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// NewInvitationCode returns a 32-hex-char unguessable single-use code.
func NewInvitationCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ClampTTL bounds a requested expiry window to [1h, 168h], using the
// one-week default when no window was requested.
func ClampTTL(requested time.Duration) time.Duration {
	if requested <= 0 {
		return DefaultInvitationTTL
	}
	if requested < MinInvitationTTL {
		return MinInvitationTTL
	}
	if requested > MaxInvitationTTL {
		return MaxInvitationTTL
	}
	return requested
}

// IsAcceptable reports whether the invitation can still be redeemed.
func (i *Invitation) IsAcceptable(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}

// EffectiveStatus folds lazy expiry into the stored status.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && !now.Before(i.ExpiresAt) {
		return InvitationExpired
	}
	return i.Status
}

// Accept marks the invitation redeemed by the given user.
func (i *Invitation) Accept(userID uuid.UUID, now time.Time) error {
	if i.Status != InvitationPending {
		return apperrors.Conflict(apperrors.CodeInvitationInvalid, "invitation is no longer pending")
	}
	if !now.Before(i.ExpiresAt) {
		return apperrors.Expired(apperrors.CodeInvitationExpired, "invitation has expired")
	}
	i.Status = InvitationAccepted
	i.InviteeID = &userID
	i.AcceptedAt = &now
	i.UpdatedAt = now
	return nil
}

// Decline marks the invitation declined; only the recorded invitee may.
func (i *Invitation) Decline(userID uuid.UUID, now time.Time) error {
	if !i.IsAcceptable(now) {
		return apperrors.Conflict(apperrors.CodeInvitationInvalid, "invitation is no longer pending")
	}
	if i.InviteeID == nil || *i.InviteeID != userID {
		return apperrors.Permission(apperrors.CodeNotAuthorized, "only the invitee can decline this invitation")
	}
	i.Status = InvitationDeclined
	i.UpdatedAt = now
	return nil
}

// Cancel withdraws the invitation; only the inviter may.
func (i *Invitation) Cancel(userID uuid.UUID, now time.Time) error {
	if !i.IsAcceptable(now) {
		return apperrors.Conflict(apperrors.CodeInvitationInvalid, "invitation is no longer pending")
	}
	if userID != i.InviterID {
		return apperrors.Permission(apperrors.CodeNotAuthorized, "only the inviter can cancel this invitation")
	}
	i.Status = InvitationCancelled
	i.UpdatedAt = now
	return nil
}

// Request structs
type CreateInvitationRequest struct {
	Type         InvitationType   `json:"type" binding:"required"`
	Method       InvitationMethod `json:"method" binding:"required"`
	Message      string           `json:"message"`
	ExpiresHours int              `json:"expires_hours"`
	GroupID      *uuid.UUID       `json:"group_id"`
	InviteeEmail string           `json:"invitee_email"`
	Metadata     Metadata         `json:"metadata"`
}

// Response structs
type InvitationResponse struct {
	ID          uuid.UUID        `json:"id"`
	Type        InvitationType   `json:"type"`
	Method      InvitationMethod `json:"method"`
	Status      InvitationStatus `json:"status"`
	InviterID   uuid.UUID        `json:"inviter_id"`
	InviteeID   *uuid.UUID       `json:"invitee_id,omitempty"`
	InviteeInfo string           `json:"invitee_info,omitempty"`
	GroupID     *uuid.UUID       `json:"group_id,omitempty"`
	Code        string           `json:"code,omitempty"`
	Message     string           `json:"message,omitempty"`
	ExpiresAt   time.Time        `json:"expires_at"`
	CreatedAt   time.Time        `json:"created_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
}

func (i *Invitation) ToResponse(now time.Time) InvitationResponse {
	return InvitationResponse{
		ID:          i.ID,
		Type:        i.Type,
		Method:      i.Method,
		Status:      i.EffectiveStatus(now),
		InviterID:   i.InviterID,
		InviteeID:   i.InviteeID,
		InviteeInfo: i.InviteeInfo,
		GroupID:     i.GroupID,
		Code:        i.Code,
		Message:     i.Message,
		ExpiresAt:   i.ExpiresAt,
		CreatedAt:   i.CreatedAt,
		AcceptedAt:  i.AcceptedAt,
	}
}
