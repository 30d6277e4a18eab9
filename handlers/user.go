package handlers

import (
	"net/http"

	"taskhub-backend/models"
	"taskhub-backend/repository"
	"taskhub-backend/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *repository.UserRepository
}

func NewUserHandler(users *repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

type UpdateProfileRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Timezone  string `json:"timezone"`
}

type UpdateFCMTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// GET /api/users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		utils.NotFound(c, "User not found")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", user.ToResponse())
}

// PUT /api/users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	if req.Timezone != "" {
		user.Timezone = req.Timezone
	}

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		utils.InternalError(c, "Failed to update profile")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile updated", user.ToResponse())
}

// PUT /api/users/me/fcm-token
func (h *UserHandler) UpdateFCMToken(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.users.SetFCMToken(c.Request.Context(), userID, req.Token); err != nil {
		utils.InternalError(c, "Failed to update FCM token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "FCM token updated", nil)
}

// POST /api/users/search
func (h *UserHandler) SearchUsers(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	users, err := h.users.SearchUsers(c.Request.Context(), req.Query, 20)
	if err != nil {
		utils.InternalError(c, "Search failed")
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}
