package repository

import (
	"context"
	"errors"
	"time"

	"taskhub-backend/apperrors"
	"taskhub-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupRepository persists group aggregates. Aggregate writes are
// compare-and-swap on the version column; membership writes that touch
// member_count run in one transaction with the aggregate update.
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) CreateGroup(ctx context.Context, group *models.Group, owner *models.GroupMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		owner.GroupID = group.ID
		return tx.Create(owner).Error
	})
}

func (r *GroupRepository) GetGroupByID(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).First(&group, "id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) UpdateGroup(ctx context.Context, group *models.Group, expectedVersion int64) error {
	return casGroupWrite(r.db.WithContext(ctx), group, expectedVersion)
}

func (r *GroupRepository) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, "id = ?", groupID).Error
	})
}

func (r *GroupRepository) ListGroupsByOwner(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]models.Group, int64, error) {
	return r.listGroups(ctx, r.db.WithContext(ctx).Model(&models.Group{}).Where("owner_id = ?", ownerID), page, pageSize)
}

func (r *GroupRepository) ListGroupsByMember(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Group, int64, error) {
	memberGroups := r.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	query := r.db.WithContext(ctx).Model(&models.Group{}).Where("id IN (?)", memberGroups)
	return r.listGroups(ctx, query, page, pageSize)
}

func (r *GroupRepository) SearchGroups(ctx context.Context, query string, page, pageSize int) ([]models.Group, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("settings->>'is_public' = 'true'").
		Where("name ILIKE ?", "%"+query+"%")
	return r.listGroups(ctx, q, page, pageSize)
}

func (r *GroupRepository) listGroups(ctx context.Context, query *gorm.DB, page, pageSize int) ([]models.Group, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&groups).Error
	return groups, total, err
}

func (r *GroupRepository) AddMember(ctx context.Context, member *models.GroupMember, group *models.Group, expectedVersion int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict(apperrors.CodeMemberAlreadyExists, "user is already a member of this group")
			}
			return err
		}
		return casGroupWrite(tx, group, expectedVersion)
	})
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID, group *models.Group, expectedVersion int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound(apperrors.CodeMemberNotFound, "user is not a member of this group")
		}
		return casGroupWrite(tx, group, expectedVersion)
	})
}

func (r *GroupRepository) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).
		First(&member, "group_id = ? AND user_id = ?", groupID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GroupRepository) UpdateMemberRole(ctx context.Context, member *models.GroupMember) error {
	return r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", member.GroupID, member.UserID).
		Updates(map[string]interface{}{
			"role":       member.Role,
			"updated_at": member.UpdatedAt,
		}).Error
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID uuid.UUID, page, pageSize int) ([]models.GroupMember, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.GroupMember{}).Where("group_id = ?", groupID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var members []models.GroupMember
	err := query.
		Order("joined_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&members).Error
	return members, total, err
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// GetMemberRole returns the zero role when the user is not a member.
func (r *GroupRepository) GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (models.MemberRole, error) {
	member, err := r.GetMember(ctx, groupID, userID)
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", nil
	}
	return member.Role, nil
}

func (r *GroupRepository) GetMemberCount(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return int(count), err
}

func (r *GroupRepository) GetGroupStats(ctx context.Context, groupID uuid.UUID) (*models.GroupStats, error) {
	group, err := r.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperrors.NotFound(apperrors.CodeGroupNotFound, "group not found")
	}

	var adminCount int64
	err = r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND role = ?", groupID, models.RoleAdmin).
		Count(&adminCount).Error
	if err != nil {
		return nil, err
	}

	return &models.GroupStats{
		GroupID:     groupID,
		MemberCount: group.MemberCount,
		AdminCount:  int(adminCount),
		CreatedAt:   group.CreatedAt,
	}, nil
}

// casGroupWrite persists the aggregate's mutable fields guarded by the
// version the caller read. Zero rows means a concurrent writer won.
func casGroupWrite(tx *gorm.DB, group *models.Group, expectedVersion int64) error {
	res := tx.Model(&models.Group{}).
		Where("id = ? AND version = ?", group.ID, expectedVersion).
		Updates(map[string]interface{}{
			"name":         group.Name,
			"description":  group.Description,
			"settings":     group.Settings,
			"member_count": group.MemberCount,
			"version":      group.Version,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict(apperrors.CodeGroupVersionStale, "group was modified concurrently, retry with fresh state")
	}
	return nil
}
