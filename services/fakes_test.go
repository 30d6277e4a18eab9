package services

import (
	"context"
	"time"

	"taskhub-backend/apperrors"
	"taskhub-backend/events"
	"taskhub-backend/models"

	"github.com/google/uuid"
)

// In-memory repository fakes mirroring the real stores' contracts,
// including version CAS and uniqueness conflicts.

type memberKey struct {
	groupID uuid.UUID
	userID  uuid.UUID
}

type fakeGroupRepo struct {
	groups  map[uuid.UUID]models.Group
	members map[memberKey]models.GroupMember
	order   []memberKey
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  make(map[uuid.UUID]models.Group),
		members: make(map[memberKey]models.GroupMember),
	}
}

func (f *fakeGroupRepo) CreateGroup(ctx context.Context, group *models.Group, owner *models.GroupMember) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	group.CreatedAt = time.Now()
	f.groups[group.ID] = *group
	owner.GroupID = group.ID
	owner.JoinedAt = time.Now()
	key := memberKey{group.ID, owner.UserID}
	f.members[key] = *owner
	f.order = append(f.order, key)
	return nil
}

func (f *fakeGroupRepo) GetGroupByID(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	group, ok := f.groups[groupID]
	if !ok {
		return nil, nil
	}
	return &group, nil
}

func (f *fakeGroupRepo) UpdateGroup(ctx context.Context, group *models.Group, expectedVersion int64) error {
	return f.cas(group, expectedVersion)
}

func (f *fakeGroupRepo) cas(group *models.Group, expectedVersion int64) error {
	stored, ok := f.groups[group.ID]
	if !ok || stored.Version != expectedVersion {
		return apperrors.Conflict(apperrors.CodeGroupVersionStale, "group was modified concurrently, retry with fresh state")
	}
	f.groups[group.ID] = *group
	return nil
}

func (f *fakeGroupRepo) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	delete(f.groups, groupID)
	for key := range f.members {
		if key.groupID == groupID {
			delete(f.members, key)
		}
	}
	return nil
}

func (f *fakeGroupRepo) ListGroupsByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]models.Group, int64, error) {
	var out []models.Group
	for _, g := range f.groups {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeGroupRepo) ListGroupsByMember(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Group, int64, error) {
	var out []models.Group
	for key := range f.members {
		if key.userID == userID {
			if g, ok := f.groups[key.groupID]; ok {
				out = append(out, g)
			}
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeGroupRepo) SearchGroups(ctx context.Context, query string, page, pageSize int) ([]models.Group, int64, error) {
	var out []models.Group
	for _, g := range f.groups {
		if g.Settings.IsPublic {
			out = append(out, g)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeGroupRepo) AddMember(ctx context.Context, member *models.GroupMember, group *models.Group, expectedVersion int64) error {
	key := memberKey{member.GroupID, member.UserID}
	if _, exists := f.members[key]; exists {
		return apperrors.Conflict(apperrors.CodeMemberAlreadyExists, "user is already a member of this group")
	}
	if err := f.cas(group, expectedVersion); err != nil {
		return err
	}
	member.JoinedAt = time.Now()
	f.members[key] = *member
	f.order = append(f.order, key)
	return nil
}

func (f *fakeGroupRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID, group *models.Group, expectedVersion int64) error {
	key := memberKey{groupID, userID}
	if _, exists := f.members[key]; !exists {
		return apperrors.NotFound(apperrors.CodeMemberNotFound, "user is not a member of this group")
	}
	if err := f.cas(group, expectedVersion); err != nil {
		return err
	}
	delete(f.members, key)
	return nil
}

func (f *fakeGroupRepo) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	member, ok := f.members[memberKey{groupID, userID}]
	if !ok {
		return nil, nil
	}
	return &member, nil
}

func (f *fakeGroupRepo) UpdateMemberRole(ctx context.Context, member *models.GroupMember) error {
	key := memberKey{member.GroupID, member.UserID}
	if _, ok := f.members[key]; !ok {
		return apperrors.NotFound(apperrors.CodeMemberNotFound, "user is not a member of this group")
	}
	f.members[key] = *member
	return nil
}

func (f *fakeGroupRepo) ListMembers(ctx context.Context, groupID uuid.UUID, page, pageSize int) ([]models.GroupMember, int64, error) {
	var out []models.GroupMember
	for _, key := range f.order {
		if key.groupID != groupID {
			continue
		}
		if member, ok := f.members[key]; ok {
			out = append(out, member)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeGroupRepo) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	_, ok := f.members[memberKey{groupID, userID}]
	return ok, nil
}

func (f *fakeGroupRepo) GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (models.MemberRole, error) {
	member, ok := f.members[memberKey{groupID, userID}]
	if !ok {
		return "", nil
	}
	return member.Role, nil
}

func (f *fakeGroupRepo) GetMemberCount(ctx context.Context, groupID uuid.UUID) (int, error) {
	count := 0
	for key := range f.members {
		if key.groupID == groupID {
			count++
		}
	}
	return count, nil
}

func (f *fakeGroupRepo) GetGroupStats(ctx context.Context, groupID uuid.UUID) (*models.GroupStats, error) {
	group, ok := f.groups[groupID]
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeGroupNotFound, "group not found")
	}
	admins := 0
	for key, member := range f.members {
		if key.groupID == groupID && member.Role == models.RoleAdmin {
			admins++
		}
	}
	return &models.GroupStats{
		GroupID:     groupID,
		MemberCount: group.MemberCount,
		AdminCount:  admins,
		CreatedAt:   group.CreatedAt,
	}, nil
}

type fakeUsers struct {
	infos map[uuid.UUID]models.UserInfo
}

func newFakeUsers(ids ...uuid.UUID) *fakeUsers {
	f := &fakeUsers{infos: make(map[uuid.UUID]models.UserInfo)}
	for i, id := range ids {
		f.infos[id] = models.UserInfo{ID: id, Username: "user" + string(rune('a'+i)), Email: "user@example.com"}
	}
	return f
}

func (f *fakeUsers) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, ok := f.infos[userID]
	return ok, nil
}

func (f *fakeUsers) GetUsersInfoBatch(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]models.UserInfo, error) {
	out := make(map[uuid.UUID]models.UserInfo, len(userIDs))
	for _, id := range userIDs {
		if info, ok := f.infos[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

type fakeFriendshipRepo struct {
	byID   map[uuid.UUID]models.Friendship
	byPair map[string]uuid.UUID
}

func newFakeFriendshipRepo() *fakeFriendshipRepo {
	return &fakeFriendshipRepo{
		byID:   make(map[uuid.UUID]models.Friendship),
		byPair: make(map[string]uuid.UUID),
	}
}

func (f *fakeFriendshipRepo) Create(ctx context.Context, friendship *models.Friendship) error {
	if _, exists := f.byPair[friendship.PairKey]; exists {
		return apperrors.Conflict(apperrors.CodeFriendRequestPending, "a relationship already exists between these users")
	}
	if friendship.ID == uuid.Nil {
		friendship.ID = uuid.New()
	}
	friendship.CreatedAt = time.Now()
	f.byID[friendship.ID] = *friendship
	f.byPair[friendship.PairKey] = friendship.ID
	return nil
}

func (f *fakeFriendshipRepo) Update(ctx context.Context, friendship *models.Friendship) error {
	f.byID[friendship.ID] = *friendship
	return nil
}

func (f *fakeFriendshipRepo) Delete(ctx context.Context, friendshipID uuid.UUID) error {
	if friendship, ok := f.byID[friendshipID]; ok {
		delete(f.byPair, friendship.PairKey)
		delete(f.byID, friendshipID)
	}
	return nil
}

func (f *fakeFriendshipRepo) GetByID(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	friendship, ok := f.byID[friendshipID]
	if !ok {
		return nil, nil
	}
	return &friendship, nil
}

func (f *fakeFriendshipRepo) GetByPair(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error) {
	id, ok := f.byPair[models.PairKey(userA, userB)]
	if !ok {
		return nil, nil
	}
	friendship := f.byID[id]
	return &friendship, nil
}

func (f *fakeFriendshipRepo) ListFriends(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error) {
	return f.filter(func(fr models.Friendship) bool {
		return fr.Status == models.FriendshipAccepted && fr.Involves(userID)
	})
}

func (f *fakeFriendshipRepo) ListPending(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error) {
	return f.filter(func(fr models.Friendship) bool {
		return fr.Status == models.FriendshipPending && fr.AddresseeID == userID
	})
}

func (f *fakeFriendshipRepo) ListSent(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error) {
	return f.filter(func(fr models.Friendship) bool {
		return fr.Status == models.FriendshipPending && fr.RequesterID == userID
	})
}

func (f *fakeFriendshipRepo) ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, fr := range f.byID {
		if fr.Status == models.FriendshipAccepted && fr.Involves(userID) {
			ids = append(ids, fr.OtherSide(userID))
		}
	}
	return ids, nil
}

func (f *fakeFriendshipRepo) filter(keep func(models.Friendship) bool) ([]models.Friendship, int64, error) {
	var out []models.Friendship
	for _, fr := range f.byID {
		if keep(fr) {
			out = append(out, fr)
		}
	}
	return out, int64(len(out)), nil
}

type fakeInvitationRepo struct {
	byID map[uuid.UUID]models.Invitation
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{byID: make(map[uuid.UUID]models.Invitation)}
}

func (f *fakeInvitationRepo) Create(ctx context.Context, invitation *models.Invitation) error {
	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	invitation.CreatedAt = time.Now()
	f.byID[invitation.ID] = *invitation
	return nil
}

func (f *fakeInvitationRepo) UpdateFrom(ctx context.Context, invitation *models.Invitation, fromStatus models.InvitationStatus) error {
	stored, ok := f.byID[invitation.ID]
	if !ok || stored.Status != fromStatus {
		return apperrors.Conflict(apperrors.CodeInvitationInvalid, "invitation is no longer pending")
	}
	f.byID[invitation.ID] = *invitation
	return nil
}

func (f *fakeInvitationRepo) GetByID(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	invitation, ok := f.byID[invitationID]
	if !ok {
		return nil, nil
	}
	return &invitation, nil
}

func (f *fakeInvitationRepo) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	if code == "" {
		return nil, nil
	}
	for _, invitation := range f.byID {
		if invitation.Code == code {
			inv := invitation
			return &inv, nil
		}
	}
	return nil, nil
}

func (f *fakeInvitationRepo) ListByInviter(ctx context.Context, inviterID uuid.UUID, page, pageSize int) ([]models.Invitation, int64, error) {
	var out []models.Invitation
	for _, invitation := range f.byID {
		if invitation.InviterID == inviterID {
			out = append(out, invitation)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeInvitationRepo) ListForInvitee(ctx context.Context, inviteeID uuid.UUID, page, pageSize int) ([]models.Invitation, int64, error) {
	var out []models.Invitation
	for _, invitation := range f.byID {
		if invitation.InviteeID != nil && *invitation.InviteeID == inviteeID {
			out = append(out, invitation)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeInvitationRepo) ListPendingByInviteeInfo(ctx context.Context, inviteeInfo string) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, invitation := range f.byID {
		if invitation.InviteeInfo == inviteeInfo && invitation.Status == models.InvitationPending {
			out = append(out, invitation)
		}
	}
	return out, nil
}

type capturePublisher struct {
	published []events.Event
}

func (p *capturePublisher) Publish(event events.Event) {
	p.published = append(p.published, event)
}

func (p *capturePublisher) typesSeen() []events.Type {
	out := make([]events.Type, 0, len(p.published))
	for _, e := range p.published {
		out = append(out, e.Type)
	}
	return out
}
