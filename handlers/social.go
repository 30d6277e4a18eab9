package handlers

import (
	"context"
	"net/http"
	"time"

	"taskhub-backend/models"
	"taskhub-backend/services"
	"taskhub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SocialHandler struct {
	social *services.SocialService
}

func NewSocialHandler(social *services.SocialService) *SocialHandler {
	return &SocialHandler{social: social}
}

// POST /api/friends/requests
func (h *SocialHandler) SendFriendRequest(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.SendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	friendship, err := h.social.SendFriendRequest(c.Request.Context(), userID, req.AddresseeID, req.Message)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Friend request sent", friendship.ToResponse())
}

// POST /api/friends/requests/:id/accept
func (h *SocialHandler) AcceptFriendRequest(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	friendshipID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid friendship ID")
		return
	}

	friendship, err := h.social.AcceptFriendRequest(c.Request.Context(), friendshipID, userID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Friend request accepted", friendship.ToResponse())
}

// POST /api/friends/requests/:id/decline
func (h *SocialHandler) DeclineFriendRequest(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	friendshipID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid friendship ID")
		return
	}

	if err := h.social.DeclineFriendRequest(c.Request.Context(), friendshipID, userID); err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Friend request declined", nil)
}

// DELETE /api/friends/:uid
func (h *SocialHandler) RemoveFriend(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	friendID, err := utils.ParseUUID(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.social.RemoveFriend(c.Request.Context(), userID, friendID); err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Friend removed", nil)
}

// POST /api/users/:uid/block
func (h *SocialHandler) BlockUser(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	targetID, err := utils.ParseUUID(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	friendship, err := h.social.BlockUser(c.Request.Context(), userID, targetID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User blocked", friendship.ToResponse())
}

// POST /api/users/:uid/unblock
func (h *SocialHandler) UnblockUser(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	targetID, err := utils.ParseUUID(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.social.UnblockUser(c.Request.Context(), userID, targetID); err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User unblocked", nil)
}

// GET /api/friends
func (h *SocialHandler) ListFriends(c *gin.Context) {
	h.listFriendships(c, h.social.ListFriends)
}

// GET /api/friends/requests
func (h *SocialHandler) ListPendingRequests(c *gin.Context) {
	h.listFriendships(c, h.social.ListPendingRequests)
}

// GET /api/friends/requests/sent
func (h *SocialHandler) ListSentRequests(c *gin.Context) {
	h.listFriendships(c, h.social.ListSentRequests)
}

// GET /api/friends/mutual/:uid
func (h *SocialHandler) MutualFriends(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	otherID, err := utils.ParseUUID(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	mutual, err := h.social.MutualFriends(c.Request.Context(), userID, otherID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", mutual)
}

// POST /api/invitations
func (h *SocialHandler) CreateInvitation(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	invitation, err := h.social.CreateInvitation(c.Request.Context(), userID, req)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Invitation created", invitation.ToResponse(time.Now()))
}

// POST /api/invitations/accept
func (h *SocialHandler) AcceptInvitation(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	invitation, warning, err := h.social.AcceptInvitation(c.Request.Context(), req.Code, userID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	message := "Invitation accepted"
	if warning != nil {
		message = "Invitation accepted (follow-up skipped: " + warning.String() + ")"
	}
	utils.SuccessResponse(c, http.StatusOK, message, invitation.ToResponse(time.Now()))
}

// POST /api/invitations/:id/decline
func (h *SocialHandler) DeclineInvitation(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	invitationID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid invitation ID")
		return
	}

	invitation, err := h.social.DeclineInvitation(c.Request.Context(), invitationID, userID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Invitation declined", invitation.ToResponse(time.Now()))
}

// DELETE /api/invitations/:id
func (h *SocialHandler) CancelInvitation(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	invitationID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid invitation ID")
		return
	}

	invitation, err := h.social.CancelInvitation(c.Request.Context(), invitationID, userID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Invitation cancelled", invitation.ToResponse(time.Now()))
}

// GET /api/invitations/:id/url
func (h *SocialHandler) GenerateInviteURL(c *gin.Context) {
	invitationID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid invitation ID")
		return
	}

	url, err := h.social.GenerateInviteURL(c.Request.Context(), invitationID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"url": url})
}

// GET /api/invitations
func (h *SocialHandler) ListSentInvitations(c *gin.Context) {
	h.listInvitations(c, h.social.ListSentInvitations)
}

// GET /api/invitations/received
func (h *SocialHandler) ListReceivedInvitations(c *gin.Context) {
	h.listInvitations(c, h.social.ListReceivedInvitations)
}

func (h *SocialHandler) listFriendships(c *gin.Context, list func(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.FriendshipResponse, int64, error)) {
	userID := utils.GetCurrentUserID(c)

	var page utils.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page.Normalize()

	friendships, total, err := list(c.Request.Context(), userID, page.Page, page.PageSize)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", utils.Paginated(friendships, page.Page, page.PageSize, total))
}

func (h *SocialHandler) listInvitations(c *gin.Context, list func(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.InvitationResponse, int64, error)) {
	userID := utils.GetCurrentUserID(c)

	var page utils.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page.Normalize()

	invitations, total, err := list(c.Request.Context(), userID, page.Page, page.PageSize)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", utils.Paginated(invitations, page.Page, page.PageSize, total))
}
