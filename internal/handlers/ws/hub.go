package ws

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/cache"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
	"github.com/Rawann0m/EcoNest-sub000/internal/stream"
	"github.com/gofiber/websocket/v2"
)

// ClientConnection wraps a WebSocket connection with metadata and the
// broker subscriptions feeding it.
type ClientConnection struct {
	Conn         *websocket.Conn
	UserID       uint
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}

	// A connection can be torn down from several paths at once: its
	// own Unregister, a failed write, or being replaced by a
	// reconnect. closeOnce makes the teardown idempotent.
	closeOnce sync.Once

	// Serializes writes: subscription pumps, flushes, and command
	// replies all share the connection.
	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[string]*stream.Subscription
}

// Hub manages all active WebSocket connections and bridges them to the
// change-feed broker. Each client explicitly subscribes to topics; the
// hub pumps broker events onto the socket and cancels cleanly on
// unsubscribe or disconnect.
type Hub struct {
	clients     map[uint]*ClientConnection
	clientsMux  sync.RWMutex
	broker      *stream.Broker
	pendingRepo repository.PendingEventRepositoryInterface
	presence    *cache.PresenceCache

	maxRetries     int
	baseRetryDelay time.Duration
	pingInterval   time.Duration
	pongTimeout    time.Duration
}

// NewHub creates a new Hub instance
func NewHub(broker *stream.Broker, pendingRepo repository.PendingEventRepositoryInterface, presence *cache.PresenceCache) *Hub {
	hub := &Hub{
		clients:        make(map[uint]*ClientConnection),
		broker:         broker,
		pendingRepo:    pendingRepo,
		presence:       presence,
		maxRetries:     5,
		baseRetryDelay: 2 * time.Second,
		pingInterval:   30 * time.Second,
		pongTimeout:    90 * time.Second,
	}

	// Start background workers
	go hub.retryWorker()
	go hub.connectionHealthChecker()

	return hub
}

// Register adds a client connection with health monitoring
func (h *Hub) Register(userID uint, conn *websocket.Conn, supportsGzip bool) *ClientConnection {
	clientConn := &ClientConnection{
		Conn:         conn,
		UserID:       userID,
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
		subs:         make(map[string]*stream.Subscription),
	}

	// Setup pong handler
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		h.clientsMux.Lock()
		clientConn.LastPong = time.Now()
		h.clientsMux.Unlock()
		return nil
	})

	// Set read deadline for ping/pong
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	// A reconnect replaces any connection still registered for the
	// user. The old one is torn down here so its subscriptions do not
	// keep pumping onto a socket nobody reads.
	h.clientsMux.Lock()
	replaced := h.clients[userID]
	h.clients[userID] = clientConn
	h.clientsMux.Unlock()

	if replaced != nil {
		log.Printf("User %d reconnected, replacing previous connection", userID)
		h.teardownClient(replaced)
	}

	h.presence.SetOnline(userID)

	// Every connection follows its own conversation list.
	h.AttachSubscription(clientConn, stream.SummariesTopic(userID), h.broker.Subscribe(stream.SummariesTopic(userID)))

	// Start ping routine
	go h.pingRoutine(clientConn)

	log.Printf("User %d connected to hub (total: %d, gzip: %v)", userID, len(h.clients), supportsGzip)
	return clientConn
}

// Unregister tears down a specific connection. The registry entry and
// presence flip only when this connection is still the registered one;
// a stale Unregister after a reconnect must not touch the replacement.
func (h *Hub) Unregister(client *ClientConnection) {
	if client == nil {
		return
	}

	h.clientsMux.Lock()
	current := h.clients[client.UserID] == client
	if current {
		delete(h.clients, client.UserID)
	}
	count := len(h.clients)
	h.clientsMux.Unlock()

	h.teardownClient(client)

	if current {
		h.presence.SetOffline(client.UserID)
		log.Printf("User %d disconnected from hub (total: %d)", client.UserID, count)
	}
}

// teardownClient stops the ping loop and cancels every subscription
// feeding the connection. Safe to call more than once.
func (h *Hub) teardownClient(client *ClientConnection) {
	client.closeOnce.Do(func() {
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)

		client.subsMu.Lock()
		for _, sub := range client.subs {
			sub.Cancel()
		}
		client.subs = make(map[string]*stream.Subscription)
		client.subsMu.Unlock()
	})
}

// IsOnline checks if a user is connected
func (h *Hub) IsOnline(userID uint) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// AttachSubscription starts pumping a broker subscription onto the
// client's socket under the given topic. An existing subscription on
// the same topic is cancelled first.
func (h *Hub) AttachSubscription(client *ClientConnection, topic string, sub *stream.Subscription) {
	client.subsMu.Lock()
	if old, ok := client.subs[topic]; ok {
		old.Cancel()
	}
	client.subs[topic] = sub
	client.subsMu.Unlock()

	go func() {
		for event := range sub.Events() {
			if err := h.writeToClient(client, map[string]interface{}{
				"type":  "event",
				"event": event,
			}); err != nil {
				log.Printf("Error pumping %s to user %d: %v", topic, client.UserID, err)
				h.Unregister(client)
				return
			}
			// A terminal stream error ends the subscription; the
			// client is expected to resubscribe.
			if event.Type == stream.EventError {
				h.DetachSubscription(client, topic)
				return
			}
		}
	}()
}

// DetachSubscription cancels the client's subscription on a topic.
// After it returns no further events for that topic reach the socket.
func (h *Hub) DetachSubscription(client *ClientConnection, topic string) {
	client.subsMu.Lock()
	sub, ok := client.subs[topic]
	if ok {
		delete(client.subs, topic)
	}
	client.subsMu.Unlock()
	if ok {
		sub.Cancel()
	}
}

// SendToUser sends ephemeral data (typing and presence) to a user.
// Offline users are skipped, never queued.
func (h *Hub) SendToUser(userID uint, data interface{}) error {
	h.clientsMux.RLock()
	clientConn, exists := h.clients[userID]
	h.clientsMux.RUnlock()

	if !exists {
		return nil
	}
	if err := h.writeToClient(clientConn, data); err != nil {
		h.Unregister(clientConn)
		return err
	}
	return nil
}

// WriteJSON writes one small frame under the connection's write lock.
// Command replies use this; event pumps go through writeToClient.
func (c *ClientConnection) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// writeToClient marshals and writes one frame, compressing large
// payloads for clients that accept gzip.
func (h *Hub) writeToClient(client *ClientConnection, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling data for user %d: %v", client.UserID, err)
		return err
	}

	// Compress if supported and beneficial (> 512 bytes)
	finalData := jsonData
	frameType := websocket.TextMessage
	if client.SupportsGzip && len(jsonData) > 512 {
		compressed, err := compressData(jsonData)
		if err == nil && len(compressed) < len(jsonData) {
			finalData = compressed
			frameType = websocket.BinaryMessage
		}
	}

	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	return client.Conn.WriteMessage(frameType, finalData)
}

// GetOnlineUsers returns list of currently connected user IDs
func (h *Hub) GetOnlineUsers() []uint {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	users := make([]uint, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// FlushPendingEvents replays queued events to a newly connected user.
func (h *Hub) FlushPendingEvents(userID uint) error {
	if h.pendingRepo == nil {
		return nil
	}

	// Get connection
	h.clientsMux.RLock()
	clientConn, exists := h.clients[userID]
	h.clientsMux.RUnlock()

	if !exists {
		return nil // User disconnected already
	}

	// Fetch pending events in batches
	batchSize := 50
	pending, err := h.pendingRepo.GetPendingForUser(userID, batchSize)
	if err != nil {
		log.Printf("Error fetching pending events for user %d: %v", userID, err)
		return err
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("Flushing %d pending events to user %d", len(pending), userID)

	batch := make([]interface{}, 0, len(pending))
	successIDs := make([]uint, 0, len(pending))

	for _, pe := range pending {
		var event interface{}
		if err := json.Unmarshal([]byte(pe.Payload), &event); err != nil {
			log.Printf("Error unmarshaling pending event %d: %v", pe.ID, err)
			// Undecodable payloads would jam the queue forever.
			h.pendingRepo.Delete(pe.ID)
			continue
		}
		batch = append(batch, event)
		successIDs = append(successIDs, pe.ID)
	}

	// Send batch envelope
	batchMessage := map[string]interface{}{
		"type":   "batch",
		"events": batch,
		"count":  len(batch),
	}

	if err := h.writeToClient(clientConn, batchMessage); err != nil {
		log.Printf("Error sending batch to user %d: %v", userID, err)
		// Connection failed, events stay in queue
		return err
	}

	// Successfully delivered, remove from queue
	if err := h.pendingRepo.DeleteBatch(successIDs); err != nil {
		log.Printf("Error deleting delivered events: %v", err)
	}

	// If there are more events, keep flushing (rate-limited by batch size)
	if len(pending) == batchSize {
		time.Sleep(100 * time.Millisecond)
		return h.FlushPendingEvents(userID)
	}

	return nil
}

// retryWorker processes failed deliveries with exponential backoff
func (h *Hub) retryWorker() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if h.pendingRepo == nil {
			continue
		}

		// Get events ready for retry
		retryable, err := h.pendingRepo.GetRetryable(100)
		if err != nil {
			log.Printf("Error fetching retryable events: %v", err)
			continue
		}

		for _, pe := range retryable {
			// Check if user is now online
			h.clientsMux.RLock()
			clientConn, isOnline := h.clients[pe.UserID]
			h.clientsMux.RUnlock()

			if !isOnline {
				// Still offline, calculate next retry with exponential backoff
				attempts := pe.Attempts + 1
				if attempts >= h.maxRetries {
					// Max retries reached, keep in queue but don't retry for a while
					nextRetry := time.Now().Add(1 * time.Hour)
					h.pendingRepo.MarkAttempted(pe.ID, attempts, &nextRetry)
					continue
				}

				// Exponential backoff: 2s, 4s, 8s, 16s, 32s
				delay := h.baseRetryDelay * time.Duration(1<<uint(attempts))
				nextRetry := time.Now().Add(delay)
				h.pendingRepo.MarkAttempted(pe.ID, attempts, &nextRetry)
				continue
			}

			// User is online, attempt delivery
			var event interface{}
			if err := json.Unmarshal([]byte(pe.Payload), &event); err != nil {
				log.Printf("Error unmarshaling event for retry %d: %v", pe.ID, err)
				h.pendingRepo.Delete(pe.ID)
				continue
			}

			if err := h.writeToClient(clientConn, map[string]interface{}{"type": "event", "event": event}); err != nil {
				log.Printf("Retry delivery failed for user %d: %v", pe.UserID, err)
				// Mark for next retry
				attempts := pe.Attempts + 1
				delay := h.baseRetryDelay * time.Duration(1<<uint(attempts))
				nextRetry := time.Now().Add(delay)
				h.pendingRepo.MarkAttempted(pe.ID, attempts, &nextRetry)
			} else {
				// Successfully delivered, remove from queue
				h.pendingRepo.Delete(pe.ID)
			}
		}
	}
}

// pingRoutine sends periodic ping messages to keep connection alive
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for user %d: %v", client.UserID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			// Stop once this connection is no longer the registered one
			h.clientsMux.RLock()
			current := h.clients[client.UserID] == client
			h.clientsMux.RUnlock()

			if !current {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for user %d: %v", client.UserID, err)
				h.Unregister(client)
				return
			}
		}
	}
}

// connectionHealthChecker monitors connection health and removes dead connections
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		deadConnections := make([]*ClientConnection, 0)
		now := time.Now()

		for _, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				deadConnections = append(deadConnections, client)
			}
		}
		h.clientsMux.RUnlock()

		// Unregister dead connections
		for _, client := range deadConnections {
			log.Printf("Removing dead connection for user %d (no pong received)", client.UserID)
			h.Unregister(client)
		}
	}
}

// compressData compresses data using gzip
func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecompressMessage decompresses a gzip binary frame from a client.
func DecompressMessage(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
