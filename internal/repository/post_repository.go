package repository

import (
	"context"
	"log"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return translateWrite("post.create", r.db.WithContext(ctx).Create(post).Error)
}

func (r *PostRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, translateRead(err)
	}
	return &post, nil
}

// FindFeed lists a community's posts, newest first, cursor-paginated.
// Undecodable rows are skipped so one corrupt post cannot take down a
// whole feed. Counts are attached afterwards (see Hydrate).
func (r *PostRepository) FindFeed(ctx context.Context, communityID uint, cursor uint, limit int) ([]models.Post, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("community_id = ?", communityID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	rows, err := q.Order("id DESC").Limit(limit).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := r.db.ScanRows(rows, &p); err != nil {
			log.Printf("skipping undecodable post row in community %d: %v", communityID, err)
			continue
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// Hydrate fills the computed fields on a batch of posts: author
// profile, like count, live reply count, and whether viewerID liked
// each post.
func (r *PostRepository) Hydrate(ctx context.Context, posts []models.Post, viewerID uint) error {
	for i := range posts {
		p := &posts[i]

		if err := r.db.WithContext(ctx).First(&p.Author, p.AuthorID).Error; err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		likeCount, err := r.CountLikes(ctx, p.ID)
		if err != nil {
			return err
		}
		p.LikeCount = likeCount

		replyCount, err := r.CountReplies(ctx, p.ID)
		if err != nil {
			return err
		}
		p.ReplyCount = replyCount

		if viewerID != 0 {
			liked, err := r.HasLiked(ctx, p.ID, viewerID)
			if err != nil {
				return err
			}
			p.Liked = liked
		}
	}
	return nil
}

// Search scans post previews and author names for a substring. A
// linear LIKE scan, unindexed; fine at this application's feed sizes.
func (r *PostRepository) Search(ctx context.Context, communityID uint, query string, limit int) ([]models.Post, error) {
	var posts []models.Post
	q := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = posts.author_id").
		Where("posts.community_id = ? AND (LOWER(posts.preview) LIKE LOWER(?) OR LOWER(users.username) LIKE LOWER(?))",
			communityID, q, q).
		Order("posts.id DESC").
		Limit(limit).
		Preload("Author").
		Find(&posts).Error
	return posts, err
}

// DeleteCascade removes a post together with its replies and likes in
// one transaction.
func (r *PostRepository) DeleteCascade(ctx context.Context, postID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
	return translateWrite("post.delete", err)
}

// AddLike is an atomic set-add: a single-row insert that is a no-op
// when the row already exists. Returns true if the like was new.
func (r *PostRepository) AddLike(ctx context.Context, postID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostLike{PostID: postID, UserID: userID})
	return res.RowsAffected > 0, translateWrite("post.like", res.Error)
}

// RemoveLike is the matching atomic set-remove. Returns true if a row
// was deleted.
func (r *PostRepository) RemoveLike(ctx context.Context, postID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{})
	return res.RowsAffected > 0, translateWrite("post.unlike", res.Error)
}

func (r *PostRepository) HasLiked(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

func (r *PostRepository) LikedBy(ctx context.Context, postID uint) ([]uint, error) {
	var userIDs []uint
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// CountReplies is the live reply count: the number of non-deleted
// replies under the post at observation time.
func (r *PostRepository) CountReplies(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reply{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}
