package services

import (
	"context"
	"log"
	"time"

	"taskhub-backend/apperrors"
	"taskhub-backend/events"
	"taskhub-backend/models"

	"github.com/google/uuid"
)

// GroupJoiner is the slice of GroupService the invitation flow needs.
type GroupJoiner interface {
	AddMember(ctx context.Context, groupID, userID, inviterID uuid.UUID, role models.MemberRole) (*models.GroupMember, error)
}

// SocialService orchestrates the friendship and invitation state
// machines.
type SocialService struct {
	friendships FriendshipRepository
	invitations InvitationRepository
	users       UserExistence
	userInfo    UserInfoProvider
	joiner      GroupJoiner
	urls        URLGateway
	publisher   events.Publisher
	now         func() time.Time
}

func NewSocialService(
	friendships FriendshipRepository,
	invitations InvitationRepository,
	users UserExistence,
	userInfo UserInfoProvider,
	joiner GroupJoiner,
	urls URLGateway,
	publisher events.Publisher,
) *SocialService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &SocialService{
		friendships: friendships,
		invitations: invitations,
		users:       users,
		userInfo:    userInfo,
		joiner:      joiner,
		urls:        urls,
		publisher:   publisher,
		now:         time.Now,
	}
}

// SendFriendRequest creates a fresh PENDING relationship unless the
// pair already has one that forbids it.
func (s *SocialService) SendFriendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID, message string) (*models.Friendship, error) {
	if requesterID == addresseeID {
		return nil, apperrors.Validation(apperrors.CodeFriendSelfRequest, "you cannot send a friend request to yourself")
	}
	if len(message) > models.MaxInvitationMessage {
		return nil, apperrors.Validation(apperrors.CodeInvitationMsgTooLong, "message must be at most 500 characters")
	}

	exists, err := s.users.UserExists(ctx, addresseeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "addressee user not found")
	}

	existing, err := s.friendships.GetByPair(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case models.FriendshipAccepted:
			return nil, apperrors.Conflict(apperrors.CodeFriendAlreadyFriends, "you are already friends with this user")
		case models.FriendshipPending:
			return nil, apperrors.Conflict(apperrors.CodeFriendRequestPending, "a friend request is already pending between you")
		case models.FriendshipBlocked:
			return nil, apperrors.Permission(apperrors.CodeFriendUserBlocked, "this relationship is blocked")
		}
	}

	friendship := models.NewFriendRequest(requesterID, addresseeID, message)
	if err := s.friendships.Create(ctx, friendship); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:      events.FriendRequestSent,
		ActorID:   requesterID,
		SubjectID: addresseeID,
		EntityID:  &friendship.ID,
	})
	return friendship, nil
}

// AcceptFriendRequest transitions PENDING → ACCEPTED for the addressee.
func (s *SocialService) AcceptFriendRequest(ctx context.Context, friendshipID, accepterID uuid.UUID) (*models.Friendship, error) {
	friendship, err := s.loadFriendship(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if err := friendship.Accept(accepterID); err != nil {
		return nil, err
	}
	if err := s.friendships.Update(ctx, friendship); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:      events.FriendRequestAccepted,
		ActorID:   accepterID,
		SubjectID: friendship.RequesterID,
		EntityID:  &friendship.ID,
	})
	return friendship, nil
}

// DeclineFriendRequest deletes the PENDING record. A decline is not
// remembered; the requester may try again later.
func (s *SocialService) DeclineFriendRequest(ctx context.Context, friendshipID, declinerID uuid.UUID) error {
	friendship, err := s.loadFriendship(ctx, friendshipID)
	if err != nil {
		return err
	}
	if friendship.Status != models.FriendshipPending {
		return apperrors.Conflict(apperrors.CodeFriendNotPending, "friend request is not pending")
	}
	if declinerID != friendship.AddresseeID {
		return apperrors.Permission(apperrors.CodeNotAuthorized, "only the addressee can decline a friend request")
	}
	if err := s.friendships.Delete(ctx, friendship.ID); err != nil {
		return err
	}

	s.publisher.Publish(events.Event{
		Type:      events.FriendRequestDeclined,
		ActorID:   declinerID,
		SubjectID: friendship.RequesterID,
		EntityID:  &friendship.ID,
	})
	return nil
}

// RemoveFriend deletes an ACCEPTED relationship from either side.
func (s *SocialService) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	friendship, err := s.friendships.GetByPair(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if friendship == nil || friendship.Status != models.FriendshipAccepted {
		return apperrors.Conflict(apperrors.CodeFriendNotFriends, "you are not friends with this user")
	}
	if err := s.friendships.Delete(ctx, friendship.ID); err != nil {
		return err
	}

	s.publisher.Publish(events.Event{
		Type:      events.FriendRemoved,
		ActorID:   userID,
		SubjectID: friendID,
		EntityID:  &friendship.ID,
	})
	return nil
}

// BlockUser is an idempotent upsert: whatever state the pair was in is
// overwritten with BLOCKED.
func (s *SocialService) BlockUser(ctx context.Context, userID, targetID uuid.UUID) (*models.Friendship, error) {
	if userID == targetID {
		return nil, apperrors.Validation(apperrors.CodeFriendSelfRequest, "you cannot block yourself")
	}
	exists, err := s.users.UserExists(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "target user not found")
	}

	friendship, err := s.friendships.GetByPair(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}
	if friendship != nil {
		friendship.Block()
		if err := s.friendships.Update(ctx, friendship); err != nil {
			return nil, err
		}
	} else {
		friendship = models.NewFriendRequest(userID, targetID, "")
		friendship.Block()
		if err := s.friendships.Create(ctx, friendship); err != nil {
			return nil, err
		}
	}

	s.publisher.Publish(events.Event{
		Type:      events.UserBlocked,
		ActorID:   userID,
		SubjectID: targetID,
		EntityID:  &friendship.ID,
	})
	return friendship, nil
}

// UnblockUser deletes the pair record unconditionally, even if it was
// never blocked. The pair returns to a clean slate either way.
func (s *SocialService) UnblockUser(ctx context.Context, userID, targetID uuid.UUID) error {
	friendship, err := s.friendships.GetByPair(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if friendship == nil {
		return nil
	}
	return s.friendships.Delete(ctx, friendship.ID)
}

// ListFriends returns accepted relationships with the counterpart's
// user info attached.
func (s *SocialService) ListFriends(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.FriendshipResponse, int64, error) {
	friendships, total, err := s.friendships.ListFriends(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	enriched, err := s.enrich(ctx, userID, friendships)
	if err != nil {
		return nil, 0, err
	}
	return enriched, total, nil
}

// ListPendingRequests returns requests awaiting the user's answer.
func (s *SocialService) ListPendingRequests(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.FriendshipResponse, int64, error) {
	friendships, total, err := s.friendships.ListPending(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	enriched, err := s.enrich(ctx, userID, friendships)
	if err != nil {
		return nil, 0, err
	}
	return enriched, total, nil
}

// ListSentRequests returns the user's own outstanding requests.
func (s *SocialService) ListSentRequests(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.FriendshipResponse, int64, error) {
	friendships, total, err := s.friendships.ListSent(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	enriched, err := s.enrich(ctx, userID, friendships)
	if err != nil {
		return nil, 0, err
	}
	return enriched, total, nil
}

// MutualFriends intersects the accepted friend sets of two users.
func (s *SocialService) MutualFriends(ctx context.Context, userID, otherID uuid.UUID) ([]models.UserInfo, error) {
	mine, err := s.friendships.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	theirs, err := s.friendships.ListFriendIDs(ctx, otherID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(mine))
	for _, id := range mine {
		seen[id] = true
	}
	var shared []uuid.UUID
	for _, id := range theirs {
		if seen[id] {
			shared = append(shared, id)
		}
	}
	if len(shared) == 0 {
		return []models.UserInfo{}, nil
	}

	infos, err := s.userInfo.GetUsersInfoBatch(ctx, shared)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserInfo, 0, len(shared))
	for _, id := range shared {
		out = append(out, infos[id])
	}
	return out, nil
}

func (s *SocialService) loadFriendship(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	friendship, err := s.friendships.GetByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, apperrors.NotFound(apperrors.CodeFriendshipNotFound, "friend request not found")
	}
	return friendship, nil
}

func (s *SocialService) enrich(ctx context.Context, userID uuid.UUID, friendships []models.Friendship) ([]models.FriendshipResponse, error) {
	ids := make([]uuid.UUID, 0, len(friendships))
	for i := range friendships {
		ids = append(ids, friendships[i].OtherSide(userID))
	}
	infos, err := s.userInfo.GetUsersInfoBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.FriendshipResponse, 0, len(friendships))
	for i := range friendships {
		resp := friendships[i].ToResponse()
		if info, ok := infos[friendships[i].OtherSide(userID)]; ok {
			resp.Friend = &info
		}
		out = append(out, resp)
	}
	return out, nil
}

// CreateInvitation builds a typed, expiring, single-use invite.
func (s *SocialService) CreateInvitation(ctx context.Context, inviterID uuid.UUID, req models.CreateInvitationRequest) (*models.Invitation, error) {
	if !req.Type.Valid() {
		return nil, apperrors.Validation(apperrors.CodeInvitationInvalid, "invitation type must be FRIEND or GROUP")
	}
	if !req.Method.Valid() {
		return nil, apperrors.Validation(apperrors.CodeInvitationInvalid, "invitation method must be IN_APP, CODE or URL")
	}
	if len(req.Message) > models.MaxInvitationMessage {
		return nil, apperrors.Validation(apperrors.CodeInvitationMsgTooLong, "message must be at most 500 characters")
	}
	if req.Type == models.InvitationTypeGroup && req.GroupID == nil {
		return nil, apperrors.Validation(apperrors.CodeInvitationTargetMissing, "group invitations require a group_id")
	}

	now := s.now()
	ttl := models.ClampTTL(time.Duration(req.ExpiresHours) * time.Hour)
	invitation := &models.Invitation{
		Type:        req.Type,
		Method:      req.Method,
		Status:      models.InvitationPending,
		InviterID:   inviterID,
		InviteeInfo: req.InviteeEmail,
		GroupID:     req.GroupID,
		Message:     req.Message,
		Metadata:    req.Metadata,
		ExpiresAt:   now.Add(ttl),
	}

	if req.Method != models.InvitationMethodInApp {
		code, err := models.NewInvitationCode()
		if err != nil {
			return nil, err
		}
		invitation.Code = code
	}

	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:     events.InvitationCreated,
		ActorID:  inviterID,
		GroupID:  invitation.GroupID,
		EntityID: &invitation.ID,
	})
	return invitation, nil
}

// AcceptInvitation redeems a code. The invitation transition is the
// primary operation; turning it into a friendship or membership is
// best-effort and reported as a warning, never as a failure.
func (s *SocialService) AcceptInvitation(ctx context.Context, code string, userID uuid.UUID) (*models.Invitation, *Warning, error) {
	invitation, err := s.invitations.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if invitation == nil {
		return nil, nil, apperrors.NotFound(apperrors.CodeInvitationNotFound, "invitation not found")
	}

	if err := invitation.Accept(userID, s.now()); err != nil {
		return nil, nil, err
	}
	if err := s.invitations.UpdateFrom(ctx, invitation, models.InvitationPending); err != nil {
		return nil, nil, err
	}

	warning := s.reconcile(ctx, invitation, userID)
	if warning != nil {
		log.Printf("⚠️  Invitation %s accepted with warning — %s", invitation.ID, warning)
	}

	s.publisher.Publish(events.Event{
		Type:      events.InvitationAccepted,
		ActorID:   userID,
		SubjectID: invitation.InviterID,
		GroupID:   invitation.GroupID,
		EntityID:  &invitation.ID,
	})
	return invitation, warning, nil
}

// reconcile turns an accepted invitation into its follow-up relationship.
func (s *SocialService) reconcile(ctx context.Context, invitation *models.Invitation, userID uuid.UUID) *Warning {
	switch invitation.Type {
	case models.InvitationTypeFriend:
		if _, err := s.SendFriendRequest(ctx, invitation.InviterID, userID, invitation.Message); err != nil {
			return &Warning{Op: "send friend request", Err: err}
		}
	case models.InvitationTypeGroup:
		if _, err := s.joiner.AddMember(ctx, *invitation.GroupID, userID, invitation.InviterID, models.RoleMember); err != nil {
			return &Warning{Op: "add group member", Err: err}
		}
	}
	return nil
}

// DeclineInvitation marks an invitation declined by its invitee.
func (s *SocialService) DeclineInvitation(ctx context.Context, invitationID, userID uuid.UUID) (*models.Invitation, error) {
	invitation, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if err := invitation.Decline(userID, s.now()); err != nil {
		return nil, err
	}
	if err := s.invitations.UpdateFrom(ctx, invitation, models.InvitationPending); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:      events.InvitationDeclined,
		ActorID:   userID,
		SubjectID: invitation.InviterID,
		EntityID:  &invitation.ID,
	})
	return invitation, nil
}

// CancelInvitation withdraws an invitation by its inviter.
func (s *SocialService) CancelInvitation(ctx context.Context, invitationID, inviterID uuid.UUID) (*models.Invitation, error) {
	invitation, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if err := invitation.Cancel(inviterID, s.now()); err != nil {
		return nil, err
	}
	if err := s.invitations.UpdateFrom(ctx, invitation, models.InvitationPending); err != nil {
		return nil, err
	}
	return invitation, nil
}

// GenerateInviteURL materializes an invitation's code as a share URL.
func (s *SocialService) GenerateInviteURL(ctx context.Context, invitationID uuid.UUID) (string, error) {
	invitation, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return "", err
	}
	if invitation.Code == "" {
		return "", apperrors.Validation(apperrors.CodeInvitationCodeMissing, "invitation has no shareable code")
	}
	return s.urls.GenerateInviteURL(invitation.ID, invitation.Code), nil
}

// ListSentInvitations returns invitations the user created.
func (s *SocialService) ListSentInvitations(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.InvitationResponse, int64, error) {
	invitations, total, err := s.invitations.ListByInviter(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return s.invitationResponses(invitations), total, nil
}

// ListReceivedInvitations returns invitations addressed to the user.
func (s *SocialService) ListReceivedInvitations(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.InvitationResponse, int64, error) {
	invitations, total, err := s.invitations.ListForInvitee(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return s.invitationResponses(invitations), total, nil
}

func (s *SocialService) invitationResponses(invitations []models.Invitation) []models.InvitationResponse {
	now := s.now()
	out := make([]models.InvitationResponse, 0, len(invitations))
	for i := range invitations {
		out = append(out, invitations[i].ToResponse(now))
	}
	return out
}

func (s *SocialService) loadInvitation(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	invitation, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, apperrors.NotFound(apperrors.CodeInvitationNotFound, "invitation not found")
	}
	return invitation, nil
}

// AutoAcceptInvitations redeems pending email invitations for a newly
// registered user. Each failure is logged and skipped; registration
// already succeeded.
func (s *SocialService) AutoAcceptInvitations(ctx context.Context, user *models.User) {
	invitations, err := s.invitations.ListPendingByInviteeInfo(ctx, user.Email)
	if err != nil {
		log.Printf("⚠️  Failed to list pending invitations for %s: %v", user.Email, err)
		return
	}

	now := s.now()
	for i := range invitations {
		invitation := &invitations[i]
		if !invitation.IsAcceptable(now) {
			continue
		}
		if err := invitation.Accept(user.ID, now); err != nil {
			continue
		}
		if err := s.invitations.UpdateFrom(ctx, invitation, models.InvitationPending); err != nil {
			log.Printf("⚠️  Failed to auto-accept invitation %s: %v", invitation.ID, err)
			continue
		}
		if warning := s.reconcile(ctx, invitation, user.ID); warning != nil {
			log.Printf("⚠️  Invitation %s auto-accepted with warning — %s", invitation.ID, warning)
		}
	}
}
