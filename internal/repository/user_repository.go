package repository

import (
	"context"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return translateWrite("user.create", r.db.Create(user).Error)
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	return &user, translateRead(err)
}

func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	return &user, translateRead(err)
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, translateRead(err)
}

func (r *UserRepository) Update(user *models.User) error {
	return translateWrite("user.update", r.db.Save(user).Error)
}

func (r *UserRepository) UpdateOnlineStatus(userID uint, isOnline bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("is_online", isOnline).Error
}

func (r *UserRepository) SearchUsers(query string, limit int) ([]models.User, error) {
	var users []models.User

	// Search by username or full name (case insensitive)
	err := r.db.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", "%"+query+"%", "%"+query+"%").
		Limit(limit).
		Find(&users).Error

	return users, err
}

// AddFavoritePlant is an idempotent set-add on the user's favorites.
func (r *UserRepository) AddFavoritePlant(ctx context.Context, userID uint, plantID string) error {
	fav := models.UserFavoritePlant{UserID: userID, PlantID: plantID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error
	return translateWrite("user.add_favorite", err)
}

func (r *UserRepository) RemoveFavoritePlant(ctx context.Context, userID uint, plantID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND plant_id = ?", userID, plantID).
		Delete(&models.UserFavoritePlant{}).Error
	return translateWrite("user.remove_favorite", err)
}

func (r *UserRepository) ListFavoritePlants(ctx context.Context, userID uint) ([]string, error) {
	var plantIDs []string
	err := r.db.WithContext(ctx).Model(&models.UserFavoritePlant{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("plant_id", &plantIDs).Error
	return plantIDs, err
}
