package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskhub-backend/apperrors"
	"taskhub-backend/events"
	"taskhub-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJoiner struct {
	joined []memberKey
	err    error
}

func (j *fakeJoiner) AddMember(ctx context.Context, groupID, userID, inviterID uuid.UUID, role models.MemberRole) (*models.GroupMember, error) {
	if j.err != nil {
		return nil, j.err
	}
	j.joined = append(j.joined, memberKey{groupID, userID})
	return &models.GroupMember{GroupID: groupID, UserID: userID, Role: role}, nil
}

type socialFixture struct {
	friendships *fakeFriendshipRepo
	invitations *fakeInvitationRepo
	users       *fakeUsers
	joiner      *fakeJoiner
	pub         *capturePublisher
	service     *SocialService
	clock       time.Time
}

func newSocialFixture(userIDs ...uuid.UUID) *socialFixture {
	f := &socialFixture{
		friendships: newFakeFriendshipRepo(),
		invitations: newFakeInvitationRepo(),
		users:       newFakeUsers(userIDs...),
		joiner:      &fakeJoiner{},
		pub:         &capturePublisher{},
		clock:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewSocialService(f.friendships, f.invitations, f.users, f.users, f.joiner, AppURLGateway{BaseURL: "https://taskhub.app"}, f.pub)
	f.service.now = func() time.Time { return f.clock }
	return f
}

func (f *socialFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func TestSendFriendRequestValidation(t *testing.T) {
	alice := uuid.New()
	f := newSocialFixture(alice)
	ctx := context.Background()

	_, err := f.service.SendFriendRequest(ctx, alice, alice, "")
	requireAppError(t, err, apperrors.KindValidation, apperrors.CodeFriendSelfRequest)

	_, err = f.service.SendFriendRequest(ctx, alice, uuid.New(), "")
	requireAppError(t, err, apperrors.KindNotFound, apperrors.CodeUserNotFound)
}

func TestFriendRequestLifecycle(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	request, err := f.service.SendFriendRequest(ctx, alice, bob, "hey")
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipPending, request.Status)

	// A second request between the pair fails from either direction.
	_, err = f.service.SendFriendRequest(ctx, alice, bob, "")
	requireAppError(t, err, apperrors.KindConflict, apperrors.CodeFriendRequestPending)
	_, err = f.service.SendFriendRequest(ctx, bob, alice, "")
	requireAppError(t, err, apperrors.KindConflict, apperrors.CodeFriendRequestPending)

	// Only the addressee can accept.
	_, err = f.service.AcceptFriendRequest(ctx, request.ID, alice)
	requireAppError(t, err, apperrors.KindPermission, apperrors.CodeNotAuthorized)

	accepted, err := f.service.AcceptFriendRequest(ctx, request.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	_, err = f.service.SendFriendRequest(ctx, alice, bob, "")
	requireAppError(t, err, apperrors.KindConflict, apperrors.CodeFriendAlreadyFriends)

	friends, total, err := f.service.ListFriends(ctx, bob, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, friends, 1)
	require.NotNil(t, friends[0].Friend)
	assert.Equal(t, alice, friends[0].Friend.ID)

	// Removing the friendship clears the pair for a fresh request.
	require.NoError(t, f.service.RemoveFriend(ctx, bob, alice))
	_, err = f.service.SendFriendRequest(ctx, bob, alice, "")
	require.NoError(t, err)
}

func TestDeclineFriendRequest(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	request, err := f.service.SendFriendRequest(ctx, alice, bob, "")
	require.NoError(t, err)

	err = f.service.DeclineFriendRequest(ctx, request.ID, alice)
	requireAppError(t, err, apperrors.KindPermission, apperrors.CodeNotAuthorized)

	require.NoError(t, f.service.DeclineFriendRequest(ctx, request.ID, bob))

	// A decline is not remembered.
	_, err = f.service.SendFriendRequest(ctx, alice, bob, "")
	require.NoError(t, err)
}

func TestBlockUnblockResend(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	blocked, err := f.service.BlockUser(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipBlocked, blocked.Status)
	require.NotNil(t, blocked.BlockedAt)

	_, err = f.service.SendFriendRequest(ctx, bob, alice, "")
	requireAppError(t, err, apperrors.KindPermission, apperrors.CodeFriendUserBlocked)
	_, err = f.service.SendFriendRequest(ctx, alice, bob, "")
	requireAppError(t, err, apperrors.KindPermission, apperrors.CodeFriendUserBlocked)

	require.NoError(t, f.service.UnblockUser(ctx, alice, bob))

	fresh, err := f.service.SendFriendRequest(ctx, bob, alice, "")
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipPending, fresh.Status)
}

func TestBlockOverwritesAcceptedFriendship(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	request, err := f.service.SendFriendRequest(ctx, alice, bob, "")
	require.NoError(t, err)
	_, err = f.service.AcceptFriendRequest(ctx, request.ID, bob)
	require.NoError(t, err)

	blocked, err := f.service.BlockUser(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipBlocked, blocked.Status)
	assert.Nil(t, blocked.AcceptedAt)
}

func TestUnblockUnknownPairIsNoop(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)

	require.NoError(t, f.service.UnblockUser(context.Background(), alice, bob))
}

func TestMutualFriends(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	f := newSocialFixture(alice, bob, carol)
	ctx := context.Background()

	befriend := func(a, b uuid.UUID) {
		request, err := f.service.SendFriendRequest(ctx, a, b, "")
		require.NoError(t, err)
		_, err = f.service.AcceptFriendRequest(ctx, request.ID, b)
		require.NoError(t, err)
	}
	befriend(alice, carol)
	befriend(bob, carol)

	mutual, err := f.service.MutualFriends(ctx, alice, bob)
	require.NoError(t, err)
	require.Len(t, mutual, 1)
	assert.Equal(t, carol, mutual[0].ID)

	none, err := f.service.MutualFriends(ctx, alice, carol)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateInvitationValidation(t *testing.T) {
	alice := uuid.New()
	f := newSocialFixture(alice)
	ctx := context.Background()

	_, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{Type: "PARTY", Method: models.InvitationMethodCode})
	requireAppError(t, err, apperrors.KindValidation, apperrors.CodeInvitationInvalid)

	_, err = f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{Type: models.InvitationTypeFriend, Method: "CARRIER_PIGEON"})
	requireAppError(t, err, apperrors.KindValidation, apperrors.CodeInvitationInvalid)

	_, err = f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{Type: models.InvitationTypeGroup, Method: models.InvitationMethodCode})
	requireAppError(t, err, apperrors.KindValidation, apperrors.CodeInvitationTargetMissing)
}

func TestCreateInvitationCodeAndExpiry(t *testing.T) {
	alice := uuid.New()
	f := newSocialFixture(alice)
	ctx := context.Background()

	invitation, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:         models.InvitationTypeFriend,
		Method:       models.InvitationMethodCode,
		ExpiresHours: 10_000,
	})
	require.NoError(t, err)
	assert.Len(t, invitation.Code, 32)
	assert.Equal(t, f.clock.Add(models.MaxInvitationTTL), invitation.ExpiresAt)

	inApp, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:   models.InvitationTypeFriend,
		Method: models.InvitationMethodInApp,
	})
	require.NoError(t, err)
	assert.Empty(t, inApp.Code)
	assert.Equal(t, f.clock.Add(models.DefaultInvitationTTL), inApp.ExpiresAt)
}

func TestAcceptInvitationCreatesFriendRequest(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	invitation, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:   models.InvitationTypeFriend,
		Method: models.InvitationMethodURL,
	})
	require.NoError(t, err)

	accepted, warning, err := f.service.AcceptInvitation(ctx, invitation.Code, bob)
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, models.InvitationAccepted, accepted.Status)
	require.NotNil(t, accepted.InviteeID)
	assert.Equal(t, bob, *accepted.InviteeID)
	require.NotNil(t, accepted.AcceptedAt)

	pair, err := f.friendships.GetByPair(ctx, alice, bob)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, models.FriendshipPending, pair.Status)
	assert.Equal(t, alice, pair.RequesterID)
}

func TestAcceptInvitationExpired(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	invitation, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:         models.InvitationTypeFriend,
		Method:       models.InvitationMethodCode,
		ExpiresHours: 1,
	})
	require.NoError(t, err)

	f.advance(2 * time.Hour)

	_, _, err = f.service.AcceptInvitation(ctx, invitation.Code, bob)
	requireAppError(t, err, apperrors.KindExpired, apperrors.CodeInvitationExpired)

	// Expiry is applied lazily; the stored row is untouched.
	stored, err := f.invitations.GetByID(ctx, invitation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, stored.Status)
	assert.Equal(t, models.InvitationExpired, stored.EffectiveStatus(f.clock))
}

func TestAcceptInvitationSingleUse(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	f := newSocialFixture(alice, bob, carol)
	ctx := context.Background()

	invitation, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:   models.InvitationTypeFriend,
		Method: models.InvitationMethodCode,
	})
	require.NoError(t, err)

	_, _, err = f.service.AcceptInvitation(ctx, invitation.Code, bob)
	require.NoError(t, err)

	_, _, err = f.service.AcceptInvitation(ctx, invitation.Code, carol)
	requireAppError(t, err, apperrors.KindConflict, apperrors.CodeInvitationInvalid)
}

func TestAcceptGroupInvitationJoinsGroup(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	groupID := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	invitation, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:    models.InvitationTypeGroup,
		Method:  models.InvitationMethodURL,
		GroupID: &groupID,
	})
	require.NoError(t, err)

	_, warning, err := f.service.AcceptInvitation(ctx, invitation.Code, bob)
	require.NoError(t, err)
	assert.Nil(t, warning)
	require.Len(t, f.joiner.joined, 1)
	assert.Equal(t, memberKey{groupID, bob}, f.joiner.joined[0])
}

func TestAcceptInvitationReconcileIsBestEffort(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	groupID := uuid.New()
	f := newSocialFixture(alice, bob)
	f.joiner.err = errors.New("membership store unavailable")
	ctx := context.Background()

	invitation, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:    models.InvitationTypeGroup,
		Method:  models.InvitationMethodCode,
		GroupID: &groupID,
	})
	require.NoError(t, err)

	accepted, warning, err := f.service.AcceptInvitation(ctx, invitation.Code, bob)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, accepted.Status)
	require.NotNil(t, warning)
	assert.Contains(t, warning.String(), "add group member")
}

func TestDeclineAndCancelInvitation(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	invitation, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:   models.InvitationTypeFriend,
		Method: models.InvitationMethodInApp,
	})
	require.NoError(t, err)

	// Pin the invitee so decline authorization has a subject.
	stored := f.invitations.byID[invitation.ID]
	stored.InviteeID = &bob
	f.invitations.byID[invitation.ID] = stored

	_, err = f.service.DeclineInvitation(ctx, invitation.ID, alice)
	requireAppError(t, err, apperrors.KindPermission, apperrors.CodeNotAuthorized)

	declined, err := f.service.DeclineInvitation(ctx, invitation.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, declined.Status)

	second, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:   models.InvitationTypeFriend,
		Method: models.InvitationMethodCode,
	})
	require.NoError(t, err)

	_, err = f.service.CancelInvitation(ctx, second.ID, bob)
	requireAppError(t, err, apperrors.KindPermission, apperrors.CodeNotAuthorized)

	cancelled, err := f.service.CancelInvitation(ctx, second.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationCancelled, cancelled.Status)

	_, _, err = f.service.AcceptInvitation(ctx, second.Code, bob)
	requireAppError(t, err, apperrors.KindConflict, apperrors.CodeInvitationInvalid)
}

func TestGenerateInviteURL(t *testing.T) {
	alice := uuid.New()
	f := newSocialFixture(alice)
	ctx := context.Background()

	withCode, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:   models.InvitationTypeFriend,
		Method: models.InvitationMethodURL,
	})
	require.NoError(t, err)

	url, err := f.service.GenerateInviteURL(ctx, withCode.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://taskhub.app/invite/"+withCode.Code, url)

	inApp, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:   models.InvitationTypeFriend,
		Method: models.InvitationMethodInApp,
	})
	require.NoError(t, err)

	_, err = f.service.GenerateInviteURL(ctx, inApp.ID)
	requireAppError(t, err, apperrors.KindValidation, apperrors.CodeInvitationCodeMissing)
}

func TestAutoAcceptInvitations(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	live, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:         models.InvitationTypeFriend,
		Method:       models.InvitationMethodCode,
		InviteeEmail: "bob@example.com",
	})
	require.NoError(t, err)

	expired, err := f.service.CreateInvitation(ctx, alice, models.CreateInvitationRequest{
		Type:         models.InvitationTypeFriend,
		Method:       models.InvitationMethodCode,
		InviteeEmail: "bob@example.com",
		ExpiresHours: 1,
	})
	require.NoError(t, err)
	f.advance(2 * time.Hour)

	f.service.AutoAcceptInvitations(ctx, &models.User{ID: bob, Email: "bob@example.com"})

	redeemed, err := f.invitations.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, redeemed.Status)

	skipped, err := f.invitations.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, skipped.Status)

	pair, err := f.friendships.GetByPair(ctx, alice, bob)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, models.FriendshipPending, pair.Status)
}

func TestEventsPublishedOnSocialFlow(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	f := newSocialFixture(alice, bob)
	ctx := context.Background()

	request, err := f.service.SendFriendRequest(ctx, alice, bob, "")
	require.NoError(t, err)
	_, err = f.service.AcceptFriendRequest(ctx, request.ID, bob)
	require.NoError(t, err)

	types := f.pub.typesSeen()
	require.Len(t, types, 2)
	assert.Equal(t, events.FriendRequestSent, types[0])
	assert.Equal(t, events.FriendRequestAccepted, types[1])
}
