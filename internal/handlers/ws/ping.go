package ws

import "time"

// MessagePing is an application-level keepalive from the client.
// Distinct from the protocol ping/pong the hub drives; clients behind
// proxies that swallow control frames rely on this one.
type MessagePing struct {
}

func (msg *MessagePing) GetType() string {
	return "ping"
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	if ctx.Client != nil {
		ctx.Client.LastPong = time.Now()
	}
	return ctx.Client.WriteJSON(map[string]interface{}{
		"type": "pong",
		"ts":   time.Now().UnixMilli(),
	})
}

// MessagePong acknowledges a server ping; counts as liveness.
type MessagePong struct {
}

func (msg *MessagePong) GetType() string {
	return "pong"
}

func (msg *MessagePong) Process(ctx *MessageContext) error {
	if ctx.Client != nil {
		ctx.Client.LastPong = time.Now()
	}
	return nil
}
