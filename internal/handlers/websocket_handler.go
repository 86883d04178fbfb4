package handlers

import (
	"context"
	"log"
	"os"

	"github.com/Rawann0m/EcoNest-sub000/internal/cache"
	"github.com/Rawann0m/EcoNest-sub000/internal/handlers/ws"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/Rawann0m/EcoNest-sub000/internal/stream"
	"github.com/gofiber/websocket/v2"
)

type WebSocketHandler struct {
	messageService *service.MessageService
	feedService    *service.FeedService
	userService    *service.UserService
	hub            *ws.Hub
}

func NewWebSocketHandler(
	messageService *service.MessageService,
	feedService *service.FeedService,
	userService *service.UserService,
	broker *stream.Broker,
	pendingRepo repository.PendingEventRepositoryInterface,
	presence *cache.PresenceCache,
) *WebSocketHandler {
	hub := ws.NewHub(broker, pendingRepo, presence)
	// Events for disconnected users land in the pending queue and are
	// replayed on reconnect.
	messageService.SetOfflineQueue(pendingRepo, hub)
	return &WebSocketHandler{
		messageService: messageService,
		feedService:    feedService,
		userService:    userService,
		hub:            hub,
	}
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	// Register client in hub
	client := h.hub.Register(userID, c, supportsGzip)

	go func() {
		if err := h.userService.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online: %v", userID, err)
		}
	}()

	// Flush queued events after successful connection
	go func() {
		if err := h.hub.FlushPendingEvents(userID); err != nil {
			log.Printf("Failed to flush pending events for user %d: %v", userID, err)
		}
	}()

	defer func() {
		h.hub.Unregister(client)
		go func() {
			// A replaced connection exits its read loop while the new
			// one is already registered; the user is still online.
			if h.hub.IsOnline(userID) {
				return
			}
			if err := h.userService.SetUserOffline(userID); err != nil {
				log.Printf("Failed to set user %d offline: %v", userID, err)
			}
		}()
	}()

	log.Printf("User %d connected via WebSocket", userID)

	// Create command context
	ctx := &ws.MessageContext{
		Ctx:            context.Background(),
		UserID:         userID,
		Client:         client,
		Hub:            h.hub,
		MessageService: h.messageService,
		FeedService:    h.feedService,
		UserService:    h.userService,
	}

	// Handle incoming commands
	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d: %v", userID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		// Decompress if binary message (gzip compressed)
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				log.Printf("Error decompressing message from user %d: %v", userID, err)
				ws.SendError(client, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		// Deserialize command
		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			ws.SendError(client, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		// Process command
		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			ws.SendError(client, "processing_failed", "Failed to process message", err.Error())
		}
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}
