package handlers

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/Rawann0m/EcoNest-sub000/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// AvatarHandler covers the profile-picture endpoints. The heavy
// lifting (validation, re-encode, object storage) lives in the
// service; this layer only shapes HTTP.
type AvatarHandler struct {
	avatarService *service.AvatarService
}

func NewAvatarHandler(avatarService *service.AvatarService) *AvatarHandler {
	return &AvatarHandler{avatarService: avatarService}
}

func publicAPIBaseURL(c *fiber.Ctx) string {
	base := strings.TrimRight(strings.TrimSpace(getenv("PUBLIC_API_BASE_URL")), "/")
	if base != "" {
		return base
	}
	// Fallback: infer from request.
	return strings.TrimRight(c.BaseURL(), "/") + "/api"
}

// openFormFile pulls one uploaded file out of the multipart form.
func openFormFile(c *fiber.Ctx, field string) (multipart.File, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	return fileHeader.Open()
}

// storageUploadError translates image-pipeline rejections into their
// HTTP responses. Both avatar and media uploads run the same pipeline,
// so they share the mapping; kind prefixes the error code and label
// names the artifact in user-facing text. Returns false for errors
// the caller still owns.
func storageUploadError(c *fiber.Ctx, err error, kind, label string) (bool, error) {
	switch {
	case errors.Is(err, service.ErrStorageNotConfigured):
		return true, httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	case errors.Is(err, storage.ErrTooLarge):
		return true, httpx.BadRequest(c, kind+"_too_large", label+" is too large")
	case errors.Is(err, storage.ErrUnsupported):
		return true, httpx.BadRequest(c, kind+"_unsupported", "Unsupported image type")
	case errors.Is(err, storage.ErrInvalidImage):
		return true, httpx.BadRequest(c, kind+"_invalid", "Invalid image")
	}
	return false, nil
}

// UploadMyAvatar replaces the caller's avatar.
// POST /users/me/avatar, multipart field "avatar".
func (h *AvatarHandler) UploadMyAvatar(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	f, err := openFormFile(c, "avatar")
	if err != nil {
		return httpx.BadRequest(c, "missing_avatar", "avatar file is required")
	}
	defer f.Close()

	user, err := h.avatarService.UploadAvatar(c.Context(), userID, f, publicAPIBaseURL(c))
	if err != nil {
		if handled, resp := storageUploadError(c, err, "avatar", "Avatar"); handled {
			return resp
		}
		return httpx.Internal(c, "avatar_upload_failed")
	}

	return c.JSON(fiber.Map{
		"user": user.ToResponse(),
	})
}

// DeleteMyAvatar removes the avatar and falls back to the default.
// DELETE /users/me/avatar.
func (h *AvatarHandler) DeleteMyAvatar(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	user, err := h.avatarService.DeleteAvatar(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrStorageNotConfigured) {
			return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
		}
		return httpx.Internal(c, "avatar_delete_failed")
	}

	return c.JSON(fiber.Map{
		"user": user.ToResponse(),
	})
}
