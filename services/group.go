package services

import (
	"context"
	"strings"

	"taskhub-backend/apperrors"
	"taskhub-backend/events"
	"taskhub-backend/models"
	"taskhub-backend/permissions"

	"github.com/google/uuid"
)

const (
	maxGroupNameLen = 100
	maxGroupDescLen = 500
	memberListCap   = 100
)

// GroupService orchestrates the group aggregate, its memberships and
// the role matrix.
type GroupService struct {
	groups    GroupRepository
	users     UserExistence
	userInfo  UserInfoProvider
	publisher events.Publisher
}

func NewGroupService(groups GroupRepository, users UserExistence, userInfo UserInfoProvider, publisher events.Publisher) *GroupService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &GroupService{groups: groups, users: users, userInfo: userInfo, publisher: publisher}
}

// CreateGroup validates input, verifies the owner exists and persists a
// fresh aggregate with the owner as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, ownerID uuid.UUID, req models.CreateGroupRequest) (*models.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation(apperrors.CodeGroupNameEmpty, "group name is required")
	}
	if len(name) > maxGroupNameLen {
		return nil, apperrors.Validation(apperrors.CodeGroupNameTooLong, "group name must be at most 100 characters")
	}
	if len(req.Description) > maxGroupDescLen {
		return nil, apperrors.Validation(apperrors.CodeGroupDescTooLong, "group description must be at most 500 characters")
	}
	if !req.Type.Valid() {
		return nil, apperrors.Validation(apperrors.CodeGroupInvalidType, "group type must be PROJECT or SCHEDULE")
	}

	exists, err := s.users.UserExists(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "owner user not found")
	}

	group := models.NewGroup(name, req.Description, req.Type, ownerID, req.Settings)
	owner := &models.GroupMember{GroupID: group.ID, UserID: ownerID, Role: models.RoleOwner}
	if err := s.groups.CreateGroup(ctx, group, owner); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:    events.GroupCreated,
		ActorID: ownerID,
		GroupID: &group.ID,
	})
	return group, nil
}

// GetGroup returns the group with its enriched member list and the
// requester's role. Non-members are rejected unless the group is public.
func (s *GroupService) GetGroup(ctx context.Context, groupID, requesterID uuid.UUID) (*models.GroupResponse, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	role, err := s.groups.GetMemberRole(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if role == "" && !group.Settings.IsPublic {
		return nil, apperrors.Permission(apperrors.CodeNotAuthorized, "you are not a member of this group")
	}

	members, _, err := s.groups.ListMembers(ctx, groupID, 1, memberListCap)
	if err != nil {
		return nil, err
	}

	resp := group.ToResponse()
	resp.RequesterRole = role
	resp.Members, err = s.enrichMembers(ctx, members)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateGroup applies a partial update under the optimistic lock. A
// patch that changes nothing is a no-op and never touches the store.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID, requesterID uuid.UUID, patch models.GroupPatch) (*models.Group, error) {
	if _, err := s.requireAction(ctx, groupID, requesterID, permissions.ActionEditGroup); err != nil {
		return nil, err
	}

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return nil, apperrors.Validation(apperrors.CodeGroupNameEmpty, "group name is required")
		}
		if len(trimmed) > maxGroupNameLen {
			return nil, apperrors.Validation(apperrors.CodeGroupNameTooLong, "group name must be at most 100 characters")
		}
		patch.Name = &trimmed
	}
	if patch.Description != nil && len(*patch.Description) > maxGroupDescLen {
		return nil, apperrors.Validation(apperrors.CodeGroupDescTooLong, "group description must be at most 500 characters")
	}

	loadedVersion := group.Version
	if !group.Apply(patch) {
		return group, nil
	}
	if err := s.groups.UpdateGroup(ctx, group, loadedVersion); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes the group and cascades to memberships. Only the
// owner may delete.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID, requesterID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != requesterID {
		return apperrors.Permission(apperrors.CodeNotAuthorized, "only the owner can delete a group")
	}
	if err := s.groups.DeleteGroup(ctx, groupID); err != nil {
		return err
	}

	s.publisher.Publish(events.Event{
		Type:    events.GroupDeleted,
		ActorID: requesterID,
		GroupID: &groupID,
	})
	return nil
}

// AddMember inserts a membership and bumps the aggregate's member count
// and version in the same repository transaction.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID, inviterID uuid.UUID, role models.MemberRole) (*models.GroupMember, error) {
	if _, err := s.requireAction(ctx, groupID, inviterID, permissions.ActionInviteMembers); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() || role == models.RoleOwner {
		return nil, apperrors.Validation(apperrors.CodeMemberInvalidRole, "new members can only be ADMIN or MEMBER")
	}

	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "user not found")
	}

	already, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, apperrors.Conflict(apperrors.CodeMemberAlreadyExists, "user is already a member of this group")
	}

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	loadedVersion := group.Version
	group.MemberJoined()

	member := &models.GroupMember{GroupID: groupID, UserID: userID, Role: role}
	if err := s.groups.AddMember(ctx, member, group, loadedVersion); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:      events.MemberAdded,
		ActorID:   inviterID,
		SubjectID: userID,
		GroupID:   &groupID,
	})
	return member, nil
}

// RemoveMember deletes a membership. Admins and owners can remove
// anyone but the owner; any member can remove themselves.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID, requesterID uuid.UUID) error {
	if requesterID != userID {
		if _, err := s.requireAction(ctx, groupID, requesterID, permissions.ActionRemoveMembers); err != nil {
			return err
		}
	}

	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	loadedVersion := group.Version
	if err := group.MemberLeft(); err != nil {
		return err
	}

	member, err := s.groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperrors.NotFound(apperrors.CodeMemberNotFound, "user is not a member of this group")
	}
	if member.Role == models.RoleOwner {
		return apperrors.Conflict(apperrors.CodeOwnerRoleImmutable, "the owner cannot be removed from the group")
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID, group, loadedVersion); err != nil {
		return err
	}

	s.publisher.Publish(events.Event{
		Type:      events.MemberRemoved,
		ActorID:   requesterID,
		SubjectID: userID,
		GroupID:   &groupID,
	})
	return nil
}

// UpdateMemberRole moves a member between ADMIN and MEMBER. The owner
// role is never granted or revoked through this path.
func (s *GroupService) UpdateMemberRole(ctx context.Context, groupID, userID, requesterID uuid.UUID, newRole models.MemberRole) (*models.GroupMember, error) {
	if _, err := s.requireAction(ctx, groupID, requesterID, permissions.ActionManageRoles); err != nil {
		return nil, err
	}

	member, err := s.groups.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.NotFound(apperrors.CodeMemberNotFound, "user is not a member of this group")
	}
	if err := member.ChangeRole(newRole); err != nil {
		return nil, err
	}
	if err := s.groups.UpdateMemberRole(ctx, member); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:      events.MemberRoleChanged,
		ActorID:   requesterID,
		SubjectID: userID,
		GroupID:   &groupID,
		Attributes: map[string]string{
			"role": string(newRole),
		},
	})
	return member, nil
}

// GetMembers lists memberships with user info, for members or anyone
// when the group is public.
func (s *GroupService) GetMembers(ctx context.Context, groupID, requesterID uuid.UUID, page, pageSize int) ([]models.GroupMemberResponse, int64, error) {
	if err := s.requireView(ctx, groupID, requesterID); err != nil {
		return nil, 0, err
	}
	members, total, err := s.groups.ListMembers(ctx, groupID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	enriched, err := s.enrichMembers(ctx, members)
	if err != nil {
		return nil, 0, err
	}
	return enriched, total, nil
}

// GetGroupStats returns the aggregate counters, under the same access
// rule as GetMembers.
func (s *GroupService) GetGroupStats(ctx context.Context, groupID, requesterID uuid.UUID) (*models.GroupStats, error) {
	if err := s.requireView(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	return s.groups.GetGroupStats(ctx, groupID)
}

// ListGroups returns the groups the user belongs to.
func (s *GroupService) ListGroups(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Group, int64, error) {
	return s.groups.ListGroupsByMember(ctx, userID, page, pageSize)
}

// SearchGroups finds public groups by name.
func (s *GroupService) SearchGroups(ctx context.Context, query string, page, pageSize int) ([]models.Group, int64, error) {
	return s.groups.SearchGroups(ctx, strings.TrimSpace(query), page, pageSize)
}

func (s *GroupService) loadGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.groups.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperrors.NotFound(apperrors.CodeGroupNotFound, "group not found")
	}
	return group, nil
}

func (s *GroupService) requireAction(ctx context.Context, groupID, userID uuid.UUID, action permissions.Action) (models.MemberRole, error) {
	role, err := s.groups.GetMemberRole(ctx, groupID, userID)
	if err != nil {
		return "", err
	}
	if role == "" {
		return "", apperrors.Permission(apperrors.CodeNotAuthorized, "you are not a member of this group")
	}
	if !permissions.Allows(role, action) {
		return "", apperrors.Permission(apperrors.CodeActionDenied, "your role does not allow this action")
	}
	return role, nil
}

func (s *GroupService) requireView(ctx context.Context, groupID, userID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.Settings.IsPublic {
		return nil
	}
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.Permission(apperrors.CodeNotAuthorized, "you are not a member of this group")
	}
	return nil
}

func (s *GroupService) enrichMembers(ctx context.Context, members []models.GroupMember) ([]models.GroupMemberResponse, error) {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	infos, err := s.userInfo.GetUsersInfoBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.GroupMemberResponse, 0, len(members))
	for _, m := range members {
		info := infos[m.UserID]
		out = append(out, models.GroupMemberResponse{
			UserID:   m.UserID,
			Username: info.Username,
			Email:    info.Email,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return out, nil
}
