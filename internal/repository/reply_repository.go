package repository

import (
	"context"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"gorm.io/gorm"
)

type ReplyRepository struct {
	db *gorm.DB
}

func NewReplyRepository(db *gorm.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

func (r *ReplyRepository) Create(ctx context.Context, reply *models.Reply) error {
	return translateWrite("reply.create", r.db.WithContext(ctx).Create(reply).Error)
}

func (r *ReplyRepository) FindByID(ctx context.Context, id uint) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.WithContext(ctx).Preload("Author").First(&reply, id).Error; err != nil {
		return nil, translateRead(err)
	}
	return &reply, nil
}

func (r *ReplyRepository) FindByPost(ctx context.Context, postID uint, limit int) ([]models.Reply, error) {
	var replies []models.Reply
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Limit(limit).
		Preload("Author").
		Find(&replies).Error
	return replies, err
}

func (r *ReplyRepository) Delete(ctx context.Context, id uint) error {
	return translateWrite("reply.delete", r.db.WithContext(ctx).Delete(&models.Reply{}, id).Error)
}
