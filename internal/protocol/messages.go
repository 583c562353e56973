package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage MessageType = "user_message"
	TypeBotReply    MessageType = "bot_reply"
	TypeErrorEvent  MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage is one inbound chat message from the client.
type UserMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// BotReply is the outbound reply to one user message.
type BotReply struct {
	Type  MessageType `json:"type"`
	Reply string      `json:"reply"`
}

// ErrorEvent reports a failed exchange without closing the connection.
type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

// ParseClientMessage validates and decodes one inbound websocket frame.
func ParseClientMessage(raw []byte) (UserMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return UserMessage{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return UserMessage{}, err
		}
		if strings.TrimSpace(msg.Message) == "" {
			return UserMessage{}, errors.New("invalid user_message: empty message")
		}
		return msg, nil
	default:
		return UserMessage{}, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}

func NewBotReply(reply string) BotReply {
	return BotReply{Type: TypeBotReply, Reply: reply}
}

func NewErrorEvent(code, detail string) ErrorEvent {
	return ErrorEvent{Type: TypeErrorEvent, Code: code, Detail: detail}
}
