// Package permissions maps group roles to the actions they may perform.
package permissions

import "taskhub-backend/models"

// Action is something a member can attempt within a group.
type Action string

const (
	ActionViewGroup     Action = "VIEW_GROUP"
	ActionEditGroup     Action = "EDIT_GROUP"
	ActionDeleteGroup   Action = "DELETE_GROUP"
	ActionInviteMembers Action = "INVITE_MEMBERS"
	ActionRemoveMembers Action = "REMOVE_MEMBERS"
	ActionManageRoles   Action = "MANAGE_ROLES"
	ActionCreateTasks   Action = "CREATE_TASKS"
	ActionEditTasks     Action = "EDIT_TASKS"
	ActionDeleteTasks   Action = "DELETE_TASKS"
	ActionViewTasks     Action = "VIEW_TASKS"
	ActionViewSchedules Action = "VIEW_SCHEDULES"
)

// Allows reports whether a role may perform an action. Read actions are
// open to every role; everything that mutates requires OWNER or ADMIN.
// Unknown roles or actions are denied.
func Allows(role models.MemberRole, action Action) bool {
	switch action {
	case ActionViewGroup, ActionViewTasks, ActionViewSchedules:
		return role.Valid()
	case ActionEditGroup, ActionDeleteGroup, ActionInviteMembers,
		ActionRemoveMembers, ActionManageRoles, ActionCreateTasks,
		ActionEditTasks, ActionDeleteTasks:
		return role == models.RoleOwner || role == models.RoleAdmin
	default:
		return false
	}
}
