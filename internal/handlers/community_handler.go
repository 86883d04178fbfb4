package handlers

import (
	"errors"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type CommunityHandler struct {
	communityService *service.CommunityService
}

func NewCommunityHandler(communityService *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{communityService: communityService}
}

func (h *CommunityHandler) CreateCommunity(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreateCommunityInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.Name == "" {
		return httpx.BadRequest(c, "missing_name", "Community name is required")
	}

	community, err := h.communityService.CreateCommunity(c.Context(), userID, input)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return httpx.Error(c, fiber.StatusConflict, "name_taken", "A community with that name already exists")
		}
		return httpx.FromDomain(c, err, "create_community_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"community": community,
	})
}

func (h *CommunityHandler) GetCommunity(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	communityID := paramUint(c, "communityID")
	if communityID == 0 {
		return httpx.BadRequest(c, "invalid_community", "Invalid community id")
	}

	community, err := h.communityService.GetCommunity(c.Context(), userID, communityID)
	if err != nil {
		return httpx.FromDomain(c, err, "get_community_failed")
	}

	return c.JSON(fiber.Map{
		"community": community,
	})
}

// Join is idempotent; joining twice is not an error.
func (h *CommunityHandler) Join(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	communityID := paramUint(c, "communityID")
	if communityID == 0 {
		return httpx.BadRequest(c, "invalid_community", "Invalid community id")
	}

	if err := h.communityService.Join(c.Context(), userID, communityID); err != nil {
		return httpx.FromDomain(c, err, "join_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *CommunityHandler) Leave(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	communityID := paramUint(c, "communityID")
	if communityID == 0 {
		return httpx.BadRequest(c, "invalid_community", "Invalid community id")
	}

	if err := h.communityService.Leave(c.Context(), userID, communityID); err != nil {
		return httpx.FromDomain(c, err, "leave_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *CommunityHandler) GetMembers(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	communityID := paramUint(c, "communityID")
	if communityID == 0 {
		return httpx.BadRequest(c, "invalid_community", "Invalid community id")
	}

	members, err := h.communityService.GetMembers(c.Context(), communityID)
	if err != nil {
		return httpx.FromDomain(c, err, "get_members_failed")
	}

	responses := make([]models.UserResponse, len(members))
	for i, m := range members {
		responses[i] = m.ToResponse()
	}

	return c.JSON(fiber.Map{
		"members": responses,
		"count":   len(responses),
	})
}

// GetMyCommunities lists the communities the caller belongs to.
func (h *CommunityHandler) GetMyCommunities(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	communities, err := h.communityService.GetUserCommunities(c.Context(), userID)
	if err != nil {
		return httpx.FromDomain(c, err, "get_communities_failed")
	}

	return c.JSON(fiber.Map{
		"communities": communities,
		"count":       len(communities),
	})
}

func (h *CommunityHandler) Search(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	query := trimQuery(c)
	if query == "" {
		return httpx.BadRequest(c, "missing_query", "Search query is required")
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	communities, err := h.communityService.Search(c.Context(), query, limit)
	if err != nil {
		return httpx.Internal(c, "search_communities_failed")
	}

	return c.JSON(fiber.Map{
		"communities": communities,
		"count":       len(communities),
	})
}
