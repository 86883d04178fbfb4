package repository

import (
	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"gorm.io/gorm"
)

type VersionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// GetActiveVersion returns the currently active version for a platform.
func (r *VersionRepository) GetActiveVersion(platform string) (*models.AppVersion, error) {
	var version models.AppVersion
	err := r.db.Where("platform = ? AND is_active = ?", platform, true).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetVersionByBuildNumber retrieves a specific build for a platform.
func (r *VersionRepository) GetVersionByBuildNumber(platform string, buildNumber int) (*models.AppVersion, error) {
	var version models.AppVersion
	err := r.db.Where("platform = ? AND build_number = ?", platform, buildNumber).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// CreateVersion creates a new version entry.
func (r *VersionRepository) CreateVersion(version *models.AppVersion) error {
	return r.db.Create(version).Error
}

// SetActiveVersion activates one build and deactivates the rest for
// the platform.
func (r *VersionRepository) SetActiveVersion(platform string, buildNumber int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AppVersion{}).
			Where("platform = ?", platform).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.AppVersion{}).
			Where("platform = ? AND build_number = ?", platform, buildNumber).
			Update("is_active", true).Error
	})
}
