package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/Rawann0m/EcoNest-sub000/internal/service"
)

// MessageContext provides all dependencies needed for command processing
type MessageContext struct {
	Ctx            context.Context
	UserID         uint
	Client         *ClientConnection
	Hub            *Hub
	MessageService *service.MessageService
	FeedService    *service.FeedService
	UserService    *service.UserService
}

// Message interface for all WebSocket command types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when command processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error response to the client
func SendError(client *ClientConnection, code, message, details string) error {
	errResp := ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	}
	return client.WriteJSON(errResp)
}
