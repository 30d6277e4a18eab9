package repository

import (
	"context"
	"errors"

	"taskhub-backend/apperrors"
	"taskhub-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvitationRepository persists invitations. The unique index on code
// guarantees single-use lookup; UpdateFrom guards every status
// transition with a compare-and-swap on the stored status.
type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *InvitationRepository) UpdateFrom(ctx context.Context, invitation *models.Invitation, fromStatus models.InvitationStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status = ?", invitation.ID, fromStatus).
		Updates(map[string]interface{}{
			"status":      invitation.Status,
			"invitee_id":  invitation.InviteeID,
			"accepted_at": invitation.AcceptedAt,
			"updated_at":  invitation.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict(apperrors.CodeInvitationInvalid, "invitation is no longer pending")
	}
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.db.WithContext(ctx).First(&invitation, "id = ?", invitationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	if code == "" {
		return nil, nil
	}
	var invitation models.Invitation
	err := r.db.WithContext(ctx).First(&invitation, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *InvitationRepository) ListByInviter(ctx context.Context, inviterID uuid.UUID, page, pageSize int) ([]models.Invitation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Invitation{}).Where("inviter_id = ?", inviterID)
	return r.list(query, page, pageSize)
}

func (r *InvitationRepository) ListForInvitee(ctx context.Context, inviteeID uuid.UUID, page, pageSize int) ([]models.Invitation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Invitation{}).Where("invitee_id = ?", inviteeID)
	return r.list(query, page, pageSize)
}

func (r *InvitationRepository) ListPendingByInviteeInfo(ctx context.Context, inviteeInfo string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := r.db.WithContext(ctx).
		Where("invitee_info = ? AND status = ?", inviteeInfo, models.InvitationPending).
		Find(&invitations).Error
	return invitations, err
}

func (r *InvitationRepository) list(query *gorm.DB, page, pageSize int) ([]models.Invitation, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invitations []models.Invitation
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&invitations).Error
	return invitations, total, err
}
