// Package protocol defines the JSON envelopes exchanged on the chat websocket.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientMessage MessageType = "client_message"
	TypeClientCommand MessageType = "client_command"
	TypeBotReply      MessageType = "bot_reply"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientMessage is free text typed by the user.
type ClientMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	UserID    string      `json:"user_id"`
	Content   string      `json:"content"`
	IsDirect  bool        `json:"is_direct"`
}

// ClientCommand is a slash command with its options.
type ClientCommand struct {
	Type      MessageType       `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Options   map[string]string `json:"options,omitempty"`
}

type BotReply struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id"`
	Handled   bool        `json:"handled"`
	Text      string      `json:"text,omitempty"`
}

type SystemEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes an inbound frame into ClientMessage or
// ClientCommand.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientMessage:
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" {
			return nil, errors.New("invalid client_message: user_id is required")
		}
		return msg, nil
	case TypeClientCommand:
		var msg ClientCommand
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" || msg.Name == "" {
			return nil, errors.New("invalid client_command: user_id and name are required")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
