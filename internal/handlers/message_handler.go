package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/models"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessage sends a direct message over REST. The WebSocket path is
// preferred; this exists for clients without a live connection.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	msg, err := h.messageService.SendMessage(c.Context(), userID, input)
	if err != nil {
		if errors.Is(err, models.ErrPermissionDenied) {
			return httpx.Forbidden(c, "recipient_closed", "Recipient is not accepting new conversations")
		}
		if errors.Is(err, models.ErrNotFound) {
			return httpx.NotFound(c, "recipient_not_found", "Recipient not found")
		}
		var decodeErr *models.DecodeError
		if errors.As(err, &decodeErr) {
			return httpx.BadRequest(c, "invalid_parts", decodeErr.Error())
		}
		return httpx.BadRequest(c, "send_failed", err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": msg.ToResponse(),
	})
}

// GetThread returns one page of a conversation, oldest first.
// GET /messages/thread/:peerID?cursor=<row id>&limit=50
func (h *MessageHandler) GetThread(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	peerID := paramUint(c, "peerID")
	if peerID == 0 {
		return httpx.BadRequest(c, "invalid_peer", "Invalid peer id")
	}

	cursor := uint(c.QueryInt("cursor", 0))
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := h.messageService.GetThread(c.Context(), userID, peerID, cursor, limit)
	if err != nil {
		return httpx.FromDomain(c, err, "get_thread_failed")
	}

	responses := make([]models.MessageResponse, len(messages))
	var nextCursor uint
	for i, m := range messages {
		responses[i] = m.ToResponse()
		if m.ID > nextCursor {
			nextCursor = m.ID
		}
	}

	return c.JSON(fiber.Map{
		"messages":    responses,
		"count":       len(responses),
		"next_cursor": nextCursor,
	})
}

// ListConversations returns the caller's summaries, newest activity
// first, with computed unread counts.
func (h *MessageHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	summaries, err := h.messageService.ListConversations(c.Context(), userID, limit)
	if err != nil {
		return httpx.FromDomain(c, err, "list_conversations_failed")
	}

	return c.JSON(fiber.Map{
		"conversations": summaries,
		"count":         len(summaries),
	})
}

// MarkRead marks messages in a thread as read. With ids it touches
// those messages only; without, the whole thread.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	peerID := paramUint(c, "peerID")
	if peerID == 0 {
		return httpx.BadRequest(c, "invalid_peer", "Invalid peer id")
	}

	var body struct {
		MessageIDs []string `json:"message_ids"`
	}
	_ = c.BodyParser(&body)

	var updated int64
	if len(body.MessageIDs) > 0 {
		updated, err = h.messageService.MarkRead(c.Context(), userID, peerID, body.MessageIDs)
	} else {
		updated, err = h.messageService.MarkThreadRead(c.Context(), userID, peerID)
	}
	if err != nil {
		return httpx.FromDomain(c, err, "mark_read_failed")
	}

	return c.JSON(fiber.Map{
		"updated": updated,
	})
}

// DeleteThread removes the caller's copy of a conversation. The peer
// keeps theirs.
func (h *MessageHandler) DeleteThread(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	peerID := paramUint(c, "peerID")
	if peerID == 0 {
		return httpx.BadRequest(c, "invalid_peer", "Invalid peer id")
	}

	if err := h.messageService.DeleteThread(c.Context(), userID, peerID); err != nil {
		return httpx.FromDomain(c, err, "delete_thread_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}

// UnreadCount returns per-thread or total unread counts.
// GET /messages/unread?peer_id=7 for one thread, no param for totals.
func (h *MessageHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	peerID := uint(c.QueryInt("peer_id", 0))
	if peerID != 0 {
		count, err := h.messageService.CountUnread(c.Context(), userID, peerID)
		if err != nil {
			return httpx.FromDomain(c, err, "unread_count_failed")
		}
		return c.JSON(fiber.Map{"peer_id": peerID, "unread": count})
	}

	summaries, err := h.messageService.ListConversations(c.Context(), userID, 100)
	if err != nil {
		return httpx.FromDomain(c, err, "unread_count_failed")
	}
	var total int64
	for _, s := range summaries {
		total += s.UnreadCount
	}
	return c.JSON(fiber.Map{"unread": total})
}

// trimQuery is shared by the search endpoints.
func trimQuery(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Query("q"))
}

// paramUint parses a numeric route parameter. Zero means missing or
// malformed; no valid entity carries id 0.
func paramUint(c *fiber.Ctx, name string) uint {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}
