package handlers

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/Rawann0m/EcoNest-sub000/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// UploadImage accepts an image, re-encodes it, stores it, and returns
// a ready-to-embed content part. The client includes that part in a
// later message or post send.
// POST /media/upload?scope=messages|posts, multipart field "image".
func (h *MediaHandler) UploadImage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	scope := c.Query("scope", "messages")

	f, err := openFormFile(c, "image")
	if err != nil {
		return httpx.BadRequest(c, "missing_image", "image file is required")
	}
	defer f.Close()

	part, err := h.mediaService.UploadImage(c.Context(), userID, scope, f, publicAPIBaseURL(c))
	if err != nil {
		if handled, resp := storageUploadError(c, err, "image", "Image"); handled {
			return resp
		}
		return httpx.Internal(c, "image_upload_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"part": part,
	})
}

// GetObject streams a stored avatar or media object. Keys are
// immutable once written, so clients may cache aggressively.
// GET /media/*
func (h *MediaHandler) GetObject(c *fiber.Ctx) error {
	keyParam := strings.TrimSpace(c.Params("*"))
	key, err := storage.SafeJoinMediaPath("", keyParam)
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}
	if !strings.HasPrefix(key, "avatars/") && !strings.HasPrefix(key, "media/") {
		return httpx.NotFound(c, "not_found", "Not found")
	}

	obj, st, err := h.mediaService.FetchObject(c.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrStorageNotConfigured) {
			return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
		}
		// Hide details.
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c, "not_found", "Not found")
			}
		}
		log.Printf("[media] get error key=%q err=%v", key, err)
		return httpx.Internal(c, "media_fetch_failed")
	}

	etag := st.ETag
	if etag != "" {
		c.Set("ETag", "\""+etag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(etag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	if st.ContentType != "" {
		c.Type(st.ContentType)
	} else {
		c.Type("image/jpeg")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	// Stream object while capturing any mid-stream errors.
	// (Fiber versions vary; use underlying fasthttp stream writer.)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()

		n, copyErr := io.Copy(w, obj)
		if copyErr != nil {
			log.Printf("[media] stream error key=%q copied=%d err=%v", key, n, copyErr)
			return
		}
		if flushErr := w.Flush(); flushErr != nil {
			log.Printf("[media] stream flush error key=%q copied=%d err=%v", key, n, flushErr)
		}
	})
	return nil
}
