package ws

import (
	"encoding/json"
	"fmt"
)

// Serialize wraps a command in the {type, payload} envelope the
// clients speak.
func Serialize(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.GetType(), err)
	}
	return json.Marshal(SerializedMessage{Type: msg.GetType(), Payload: payload})
}

// Deserialize decodes an envelope into the registered command type.
func Deserialize(jsonBytes []byte) (Message, error) {
	var wrapper SerializedMessage
	if err := json.Unmarshal(jsonBytes, &wrapper); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	msg, err := CreateMessage(wrapper.Type, typeRegistry)
	if err != nil {
		return nil, err
	}
	// Commands without arguments may omit the payload entirely.
	if len(wrapper.Payload) > 0 {
		if err := json.Unmarshal(wrapper.Payload, msg); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", wrapper.Type, err)
		}
	}
	return msg, nil
}
