package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"taskhub-backend/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupType classifies what a group organizes.
type GroupType string

const (
	GroupTypeProject  GroupType = "PROJECT"
	GroupTypeSchedule GroupType = "SCHEDULE"
)

func (t GroupType) Valid() bool {
	switch t {
	case GroupTypeProject, GroupTypeSchedule:
		return true
	}
	return false
}

// MemberRole is a member's role within a group.
type MemberRole string

const (
	RoleOwner  MemberRole = "OWNER"
	RoleAdmin  MemberRole = "ADMIN"
	RoleMember MemberRole = "MEMBER"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// SchedulePrivacy controls how much of a schedule non-members can see.
type SchedulePrivacy string

const (
	PrivacyBusy    SchedulePrivacy = "BUSY"
	PrivacyFull    SchedulePrivacy = "FULL"
	PrivacyPrivate SchedulePrivacy = "PRIVATE"
)

// GroupSettings is stored as a single jsonb column.
type GroupSettings struct {
	IsPublic             bool            `json:"is_public"`
	AllowMemberInvite    bool            `json:"allow_member_invite"`
	EnableGanttChart     bool            `json:"enable_gantt_chart"`
	EnableTaskDependency bool            `json:"enable_task_dependency"`
	SchedulePrivacy      SchedulePrivacy `json:"schedule_privacy,omitempty"`
}

func (s GroupSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *GroupSettings) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = GroupSettings{}
		return nil
	}
	return fmt.Errorf("unsupported settings column type %T", value)
}

// DefaultSettings returns the type-specific defaults applied on creation.
func DefaultSettings(groupType GroupType) GroupSettings {
	switch groupType {
	case GroupTypeProject:
		return GroupSettings{EnableGanttChart: true}
	case GroupTypeSchedule:
		return GroupSettings{SchedulePrivacy: PrivacyBusy}
	}
	return GroupSettings{}
}

type Group struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string        `gorm:"not null;size:100" json:"name"`
	Description string        `gorm:"size:500" json:"description,omitempty"`
	Type        GroupType     `gorm:"not null;size:20" json:"type"`
	OwnerID     uuid.UUID     `gorm:"type:uuid;index" json:"owner_id"`
	Settings    GroupSettings `gorm:"type:jsonb" json:"settings"`
	MemberCount int           `gorm:"not null;default:1" json:"member_count"`
	Version     int64         `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// NewGroup builds a group aggregate with its creation invariants:
// the owner is the first member and the version counter starts at 1.
func NewGroup(name, description string, groupType GroupType, ownerID uuid.UUID, settings *GroupSettings) *Group {
	s := DefaultSettings(groupType)
	if settings != nil {
		s = *settings
	}
	return &Group{
		Name:        name,
		Description: description,
		Type:        groupType,
		OwnerID:     ownerID,
		Settings:    s,
		MemberCount: 1,
		Version:     1,
	}
}

// GroupPatch carries the optional fields of an update; nil means unchanged.
type GroupPatch struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Settings    *GroupSettings `json:"settings,omitempty"`
}

// Apply copies changed fields onto the group. The version is bumped only
// when something actually changed; callers skip persistence otherwise.
func (g *Group) Apply(patch GroupPatch) bool {
	changed := false
	if patch.Name != nil && *patch.Name != g.Name {
		g.Name = *patch.Name
		changed = true
	}
	if patch.Description != nil && *patch.Description != g.Description {
		g.Description = *patch.Description
		changed = true
	}
	if patch.Settings != nil && *patch.Settings != g.Settings {
		g.Settings = *patch.Settings
		changed = true
	}
	if changed {
		g.Version++
	}
	return changed
}

// MemberJoined records a membership addition on the aggregate.
func (g *Group) MemberJoined() {
	g.MemberCount++
	g.Version++
}

// MemberLeft records a membership removal, refusing to orphan the group.
func (g *Group) MemberLeft() error {
	if g.MemberCount <= 1 {
		return apperrors.Conflict(apperrors.CodeGroupLastMember, "cannot remove the last member of a group")
	}
	g.MemberCount--
	g.Version++
	return nil
}

type GroupMember struct {
	GroupID   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"group_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      MemberRole `gorm:"not null;size:20" json:"role"`
	JoinedAt  time.Time  `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ChangeRole moves a member between ADMIN and MEMBER. The OWNER role is
// immutable through this path: it can neither be granted nor revoked.
func (m *GroupMember) ChangeRole(newRole MemberRole) error {
	if newRole == RoleOwner {
		return apperrors.Conflict(apperrors.CodeOwnerRoleImmutable, "ownership changes only via explicit transfer")
	}
	if !newRole.Valid() {
		return apperrors.Validation(apperrors.CodeMemberInvalidRole, "role must be ADMIN or MEMBER")
	}
	if m.Role == RoleOwner {
		return apperrors.Conflict(apperrors.CodeOwnerRoleImmutable, "the owner role cannot be reassigned here")
	}
	m.Role = newRole
	m.UpdatedAt = time.Now()
	return nil
}

// Request structs
type CreateGroupRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Type        GroupType      `json:"type" binding:"required"`
	Settings    *GroupSettings `json:"settings"`
}

type AddMemberRequest struct {
	UserID uuid.UUID  `json:"user_id" binding:"required"`
	Role   MemberRole `json:"role"`
}

type UpdateMemberRoleRequest struct {
	Role MemberRole `json:"role" binding:"required"`
}

// Response structs
type GroupResponse struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Type          GroupType             `json:"type"`
	OwnerID       uuid.UUID             `json:"owner_id"`
	Settings      GroupSettings         `json:"settings"`
	MemberCount   int                   `json:"member_count"`
	Version       int64                 `json:"version"`
	RequesterRole MemberRole            `json:"requester_role,omitempty"`
	Members       []GroupMemberResponse `json:"members,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type GroupMemberResponse struct {
	UserID   uuid.UUID  `json:"user_id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// GroupStats summarizes a group for dashboards.
type GroupStats struct {
	GroupID     uuid.UUID `json:"group_id"`
	MemberCount int       `json:"member_count"`
	AdminCount  int       `json:"admin_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func (g *Group) ToResponse() GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Type:        g.Type,
		OwnerID:     g.OwnerID,
		Settings:    g.Settings,
		MemberCount: g.MemberCount,
		Version:     g.Version,
		CreatedAt:   g.CreatedAt,
	}
}
