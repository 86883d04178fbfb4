package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/Rawann0m/EcoNest-sub000/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CheckUsername checks if a username is available
func (h *UserHandler) CheckUsername(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		return httpx.BadRequest(c, "missing_username", "Username is required")
	}
	username = validation.NormalizeUsername(username)
	if !validation.ValidateUsername(username) {
		return httpx.BadRequest(c, "invalid_username", "Invalid username")
	}

	available, err := h.userService.IsUsernameAvailable(username)
	if err != nil {
		return httpx.Internal(c, "check_username_failed")
	}

	return c.JSON(fiber.Map{
		"available": available,
	})
}

// UpdateProfile updates profile fields, including the
// receive_messages switch that gates new incoming conversations.
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.Username != "" {
		u := validation.NormalizeUsername(input.Username)
		if !validation.ValidateUsername(u) {
			return httpx.BadRequest(c, "invalid_username", "Invalid username")
		}
		input.Username = u
	}
	if input.FullName != "" {
		input.FullName = validation.TrimAndLimit(input.FullName, 80)
	}

	user, err := h.userService.UpdateProfile(userID, input)
	if err != nil {
		return httpx.BadRequest(c, "update_profile_failed", err.Error())
	}

	return c.JSON(fiber.Map{
		"user": user.ToResponse(),
	})
}

// GetCurrentUser gets the authenticated user's profile
func (h *UserHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	// ETag allows clients to re-check frequently without re-downloading.
	etag := fmt.Sprintf("W/\"u-%d-%d\"", user.ID, user.UpdatedAt.UTC().UnixNano())
	c.Set("ETag", etag)
	c.Set("Cache-Control", "private, max-age=0, must-revalidate")

	if inm := strings.TrimSpace(c.Get("If-None-Match")); inm != "" {
		// Support quoted, weak, and multi-value headers.
		inmNorm := strings.Trim(strings.TrimPrefix(inm, "W/"), "\"")
		etagNorm := strings.Trim(strings.TrimPrefix(etag, "W/"), "\"")
		if strings.Contains(inmNorm, etagNorm) {
			return c.SendStatus(fiber.StatusNotModified)
		}
	}

	return c.JSON(fiber.Map{
		"user": user.ToResponse(),
	})
}

// SearchUsers searches for users by username or full name
func (h *UserHandler) SearchUsers(c *fiber.Ctx) error {
	query := trimQuery(c)
	if query == "" {
		return httpx.BadRequest(c, "missing_query", "Search query is required")
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := h.userService.SearchUsers(query, limit)
	if err != nil {
		return httpx.Internal(c, "search_users_failed")
	}

	responses := make([]interface{}, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}

	return c.JSON(fiber.Map{
		"users": responses,
	})
}

// GetUser gets a user's public profile by ID or username.
// Route: GET /users/:identifier
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	identifier := strings.TrimSpace(c.Params("identifier"))
	if identifier == "" {
		return httpx.BadRequest(c, "missing_identifier", "User identifier is required")
	}

	if id, err := strconv.ParseUint(identifier, 10, 32); err == nil {
		user, err := h.userService.GetUserByID(uint(id))
		if err != nil {
			return httpx.NotFound(c, "user_not_found", "User not found")
		}
		return c.JSON(fiber.Map{"user": user.ToResponse()})
	}

	user, err := h.userService.GetUserByUsername(identifier)
	if err != nil {
		return httpx.NotFound(c, "user_not_found", "User not found")
	}

	return c.JSON(fiber.Map{
		"user": user.ToResponse(),
	})
}

// AddFavoritePlant tags a plant from the catalog as a favorite.
// Plant ids are opaque strings owned by the catalog service.
func (h *UserHandler) AddFavoritePlant(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	plantID := strings.TrimSpace(c.Params("plantID"))
	if plantID == "" {
		return httpx.BadRequest(c, "missing_plant", "Plant id is required")
	}

	if err := h.userService.AddFavoritePlant(c.Context(), userID, plantID); err != nil {
		return httpx.Internal(c, "add_favorite_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *UserHandler) RemoveFavoritePlant(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	plantID := strings.TrimSpace(c.Params("plantID"))
	if plantID == "" {
		return httpx.BadRequest(c, "missing_plant", "Plant id is required")
	}

	if err := h.userService.RemoveFavoritePlant(c.Context(), userID, plantID); err != nil {
		return httpx.Internal(c, "remove_favorite_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *UserHandler) ListFavoritePlants(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	plants, err := h.userService.ListFavoritePlants(c.Context(), userID)
	if err != nil {
		return httpx.Internal(c, "list_favorites_failed")
	}

	return c.JSON(fiber.Map{
		"plants": plants,
		"count":  len(plants),
	})
}
