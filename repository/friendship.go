package repository

import (
	"context"
	"errors"

	"taskhub-backend/apperrors"
	"taskhub-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendshipRepository persists pairwise relationship records. The
// unique index on pair_key is what closes the race between two
// concurrent requests for the same pair.
type FriendshipRepository struct {
	db *gorm.DB
}

func NewFriendshipRepository(db *gorm.DB) *FriendshipRepository {
	return &FriendshipRepository{db: db}
}

func (r *FriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	err := r.db.WithContext(ctx).Create(friendship).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict(apperrors.CodeFriendRequestPending, "a relationship already exists between these users")
	}
	return err
}

func (r *FriendshipRepository) Update(ctx context.Context, friendship *models.Friendship) error {
	return r.db.WithContext(ctx).Save(friendship).Error
}

func (r *FriendshipRepository) Delete(ctx context.Context, friendshipID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Friendship{}, "id = ?", friendshipID).Error
}

func (r *FriendshipRepository) GetByID(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).First(&friendship, "id = ?", friendshipID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *FriendshipRepository) GetByPair(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).First(&friendship, "pair_key = ?", models.PairKey(userA, userB)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *FriendshipRepository) ListFriends(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("status = ?", models.FriendshipAccepted).
		Where("requester_id = ? OR addressee_id = ?", userID, userID)
	return r.list(query, page, pageSize)
}

func (r *FriendshipRepository) ListPending(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("status = ? AND addressee_id = ?", models.FriendshipPending, userID)
	return r.list(query, page, pageSize)
}

func (r *FriendshipRepository) ListSent(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Friendship, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("status = ? AND requester_id = ?", models.FriendshipPending, userID)
	return r.list(query, page, pageSize)
}

func (r *FriendshipRepository) ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var friendships []models.Friendship
	err := r.db.WithContext(ctx).
		Where("status = ?", models.FriendshipAccepted).
		Where("requester_id = ? OR addressee_id = ?", userID, userID).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(friendships))
	for i := range friendships {
		ids = append(ids, friendships[i].OtherSide(userID))
	}
	return ids, nil
}

func (r *FriendshipRepository) list(query *gorm.DB, page, pageSize int) ([]models.Friendship, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var friendships []models.Friendship
	err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&friendships).Error
	return friendships, total, err
}
