package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
	"github.com/Rawann0m/EcoNest-sub000/internal/validation"
)

// CommunityService owns community lifecycle and the membership set.
type CommunityService struct {
	communityRepo repository.CommunityRepositoryInterface
}

func NewCommunityService(communityRepo repository.CommunityRepositoryInterface) *CommunityService {
	return &CommunityService{communityRepo: communityRepo}
}

type CreateCommunityInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// CreateCommunity creates a community and enrolls the creator as its
// first member.
func (s *CommunityService) CreateCommunity(ctx context.Context, creatorID uint, input CreateCommunityInput) (*models.Community, error) {
	name := validation.NormalizeCommunityName(input.Name)
	if !validation.ValidateCommunityName(name) {
		return nil, errors.New("invalid community name")
	}

	if _, err := s.communityRepo.FindByName(ctx, name); err == nil {
		return nil, models.ErrDuplicate
	}

	community := &models.Community{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Image:       strings.TrimSpace(input.Image),
		CreatorID:   creatorID,
	}
	if err := s.communityRepo.Create(ctx, community); err != nil {
		return nil, err
	}
	if err := s.communityRepo.AddMember(ctx, community.ID, creatorID); err != nil {
		return nil, err
	}
	community.MemberCount = 1
	community.IsMember = true
	return community, nil
}

// GetCommunity returns one community with its member count and the
// viewer's membership flag.
func (s *CommunityService) GetCommunity(ctx context.Context, viewerID, communityID uint) (*models.Community, error) {
	community, err := s.communityRepo.FindByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	community.MemberCount, _ = s.communityRepo.CountMembers(ctx, communityID)
	if viewerID != 0 {
		community.IsMember, _ = s.communityRepo.IsMember(ctx, communityID, viewerID)
	}
	return community, nil
}

// Join adds the caller to the member set. Joining twice is a no-op.
func (s *CommunityService) Join(ctx context.Context, userID, communityID uint) error {
	if _, err := s.communityRepo.FindByID(ctx, communityID); err != nil {
		return err
	}
	return s.communityRepo.AddMember(ctx, communityID, userID)
}

// Leave removes the caller from the member set. The creator may leave;
// the community survives without them.
func (s *CommunityService) Leave(ctx context.Context, userID, communityID uint) error {
	return s.communityRepo.RemoveMember(ctx, communityID, userID)
}

// GetMembers lists a community's members.
func (s *CommunityService) GetMembers(ctx context.Context, communityID uint) ([]models.User, error) {
	return s.communityRepo.GetMembers(ctx, communityID)
}

// GetUserCommunities lists the communities the user belongs to.
func (s *CommunityService) GetUserCommunities(ctx context.Context, userID uint) ([]models.Community, error) {
	return s.communityRepo.GetUserCommunities(ctx, userID)
}

// Search matches community names and descriptions.
func (s *CommunityService) Search(ctx context.Context, query string, limit int) ([]models.Community, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Community{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.communityRepo.Search(ctx, query, limit)
}
