package service

import (
	"fmt"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
)

type VersionService struct {
	versionRepo *repository.VersionRepository
}

func NewVersionService(versionRepo *repository.VersionRepository) *VersionService {
	return &VersionService{
		versionRepo: versionRepo,
	}
}

// GetLatestVersion returns the active version for a platform
func (s *VersionService) GetLatestVersion(platform string) (*models.AppVersion, error) {
	// Validate platform
	if platform != "android" && platform != "ios" {
		return nil, fmt.Errorf("invalid platform: %s", platform)
	}

	version, err := s.versionRepo.GetActiveVersion(platform)
	if err != nil {
		return nil, fmt.Errorf("failed to get active version: %w", err)
	}

	return version, nil
}

// CheckUpdateRequired determines if an update is needed based on build number
func (s *VersionService) CheckUpdateRequired(platform string, currentBuild int) (bool, *models.AppVersion, error) {
	latestVersion, err := s.GetLatestVersion(platform)
	if err != nil {
		return false, nil, err
	}

	// Update needed if current build is lower than latest
	needsUpdate := currentBuild < latestVersion.BuildNumber

	return needsUpdate, latestVersion, nil
}

// IsForceUpdateRequired checks if the current build MUST update
func (s *VersionService) IsForceUpdateRequired(platform string, currentBuild int) (bool, error) {
	latestVersion, err := s.GetLatestVersion(platform)
	if err != nil {
		return false, err
	}

	if currentBuild < latestVersion.MinSupportedBuild {
		return true, nil
	}

	if latestVersion.ForceUpdate && currentBuild < latestVersion.BuildNumber {
		return true, nil
	}

	return false, nil
}

// PublishVersion creates a new version entry and activates it.
func (s *VersionService) PublishVersion(version *models.AppVersion) error {
	if version.Platform != "android" && version.Platform != "ios" {
		return fmt.Errorf("invalid platform: %s", version.Platform)
	}
	if err := s.versionRepo.CreateVersion(version); err != nil {
		return err
	}
	return s.versionRepo.SetActiveVersion(version.Platform, version.BuildNumber)
}
