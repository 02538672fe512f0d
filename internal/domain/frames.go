package domain

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

// Outbound frame types.
const (
	FrameTypeOnlineCount = "online_count"
	FrameTypeMessage     = "message"
)

var validate = validator.New()

// InboundFrame is the only frame kind a client sends. Pointers distinguish a
// missing field from an empty string: presence is required, content is not.
type InboundFrame struct {
	SenderID   *string `json:"senderId" validate:"required"`
	SenderName *string `json:"senderName" validate:"required"`
	Text       *string `json:"text" validate:"required"`
}

// OnlineCountFrame announces the current number of registered sessions.
type OnlineCountFrame struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// MessageFrame delivers a persisted chat message.
type MessageFrame struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

// DecodeInbound parses a client frame into a draft. Any failure is a
// *ProtocolError.
func DecodeInbound(data []byte) (MessageDraft, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return MessageDraft{}, &ProtocolError{Reason: "frame is not a JSON object"}
	}

	var frame InboundFrame
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return MessageDraft{}, &ProtocolError{Field: typeErr.Field, Reason: "must be a string", Err: err}
		}
		return MessageDraft{}, &ProtocolError{Reason: "invalid JSON", Err: err}
	}

	if err := validate.Struct(&frame); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return MessageDraft{}, &ProtocolError{Field: jsonName(fieldErrs[0].StructField()), Reason: "is required"}
		}
		return MessageDraft{}, &ProtocolError{Reason: "invalid frame", Err: err}
	}

	return MessageDraft{
		SenderID:   *frame.SenderID,
		SenderName: *frame.SenderName,
		Text:       *frame.Text,
	}, nil
}

func jsonName(structField string) string {
	switch structField {
	case "SenderID":
		return "senderId"
	case "SenderName":
		return "senderName"
	case "Text":
		return "text"
	default:
		return structField
	}
}

// NewOnlineCountFrame builds an online_count frame.
func NewOnlineCountFrame(count int) *OnlineCountFrame {
	return &OnlineCountFrame{
		Type:  FrameTypeOnlineCount,
		Count: count,
	}
}

// NewMessageFrame builds a message frame from a persisted message. Only
// store-assigned values are used for id and timestamp.
func NewMessageFrame(msg *ChatMessage) *MessageFrame {
	return &MessageFrame{
		Type:       FrameTypeMessage,
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
	}
}
