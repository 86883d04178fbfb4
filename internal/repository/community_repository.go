package repository

import (
	"context"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityRepository struct {
	db *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

func (r *CommunityRepository) Create(ctx context.Context, community *models.Community) error {
	return translateWrite("community.create", r.db.WithContext(ctx).Create(community).Error)
}

func (r *CommunityRepository) FindByID(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Preload("Creator").First(&community, id).Error; err != nil {
		return nil, translateRead(err)
	}
	return &community, nil
}

func (r *CommunityRepository) FindByName(ctx context.Context, name string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		Preload("Creator").
		First(&community).Error
	if err != nil {
		return nil, translateRead(err)
	}
	return &community, nil
}

// AddMember is an idempotent set-add: inserting an existing member is
// a no-op, so concurrent joins can never lose each other's updates.
func (r *CommunityRepository) AddMember(ctx context.Context, communityID, userID uint) error {
	member := models.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	return translateWrite("community.add_member", err)
}

func (r *CommunityRepository) RemoveMember(ctx context.Context, communityID, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityMember{}).Error
	return translateWrite("community.remove_member", err)
}

func (r *CommunityRepository) GetMembers(ctx context.Context, communityID uint) ([]models.User, error) {
	var members []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN community_members ON community_members.user_id = users.id").
		Where("community_members.community_id = ?", communityID).
		Find(&members).Error
	return members, err
}

// IsMember derives membership by set containment.
func (r *CommunityRepository) IsMember(ctx context.Context, communityID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *CommunityRepository) CountMembers(ctx context.Context, communityID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).
		Count(&count).Error
	return count, err
}

func (r *CommunityRepository) GetUserCommunities(ctx context.Context, userID uint) ([]models.Community, error) {
	var communities []models.Community
	err := r.db.WithContext(ctx).
		Joins("JOIN community_members ON community_members.community_id = communities.id").
		Where("community_members.user_id = ?", userID).
		Preload("Creator").
		Find(&communities).Error
	return communities, err
}

func (r *CommunityRepository) Search(ctx context.Context, query string, limit int) ([]models.Community, error) {
	var communities []models.Community
	q := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", q, q).
		Limit(limit).
		Preload("Creator").
		Find(&communities).Error
	return communities, err
}
