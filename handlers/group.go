package handlers

import (
	"net/http"

	"taskhub-backend/models"
	"taskhub-backend/services"
	"taskhub-backend/utils"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// POST /api/groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), userID, req)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Group created", group.ToResponse())
}

// GET /api/groups
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var page utils.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page.Normalize()

	groups, total, err := h.groups.ListGroups(c.Request.Context(), userID, page.Page, page.PageSize)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	responses := make([]models.GroupResponse, 0, len(groups))
	for i := range groups {
		responses = append(responses, groups[i].ToResponse())
	}

	utils.SuccessResponse(c, http.StatusOK, "", utils.Paginated(responses, page.Page, page.PageSize, total))
}

// GET /api/groups/search
func (h *GroupHandler) SearchGroups(c *gin.Context) {
	var page utils.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page.Normalize()

	groups, total, err := h.groups.SearchGroups(c.Request.Context(), c.Query("q"), page.Page, page.PageSize)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	responses := make([]models.GroupResponse, 0, len(groups))
	for i := range groups {
		responses = append(responses, groups[i].ToResponse())
	}

	utils.SuccessResponse(c, http.StatusOK, "", utils.Paginated(responses, page.Page, page.PageSize, total))
}

// GET /api/groups/:id
func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	group, err := h.groups.GetGroup(c.Request.Context(), groupID, userID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", group)
}

// PUT /api/groups/:id
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var patch models.GroupPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	group, err := h.groups.UpdateGroup(c.Request.Context(), groupID, userID, patch)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Group updated", group.ToResponse())
}

// DELETE /api/groups/:id
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if err := h.groups.DeleteGroup(c.Request.Context(), groupID, userID); err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Group deleted", nil)
}

// POST /api/groups/:id/members
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	member, err := h.groups.AddMember(c.Request.Context(), groupID, req.UserID, userID, req.Role)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Member added", member)
}

// GET /api/groups/:id/members
func (h *GroupHandler) GetMembers(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var page utils.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page.Normalize()

	members, total, err := h.groups.GetMembers(c.Request.Context(), groupID, userID, page.Page, page.PageSize)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", utils.Paginated(members, page.Page, page.PageSize, total))
}

// DELETE /api/groups/:id/members/:uid
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}
	memberUID, err := utils.ParseUUID(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.groups.RemoveMember(c.Request.Context(), groupID, memberUID, userID); err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Member removed", nil)
}

// PUT /api/groups/:id/members/:uid/role
func (h *GroupHandler) UpdateMemberRole(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}
	memberUID, err := utils.ParseUUID(c.Param("uid"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return
	}

	var req models.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	member, err := h.groups.UpdateMemberRole(c.Request.Context(), groupID, memberUID, userID, req.Role)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Role updated", member)
}

// GET /api/groups/:id/stats
func (h *GroupHandler) GetGroupStats(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	stats, err := h.groups.GetGroupStats(c.Request.Context(), groupID, userID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", stats)
}
