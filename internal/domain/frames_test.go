package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		want      MessageDraft
		wantField string
		wantErr   bool
	}{
		{
			name:  "valid frame",
			frame: `{"senderId":"u1","senderName":"Alice","text":"hi"}`,
			want:  MessageDraft{SenderID: "u1", SenderName: "Alice", Text: "hi"},
		},
		{
			name:  "empty text is present",
			frame: `{"senderId":"u1","senderName":"Alice","text":""}`,
			want:  MessageDraft{SenderID: "u1", SenderName: "Alice", Text: ""},
		},
		{
			name:  "extra fields are ignored",
			frame: ` {"senderId":"u1","senderName":"Alice","text":"hi","id":"forged","timestamp":1} `,
			want:  MessageDraft{SenderID: "u1", SenderName: "Alice", Text: "hi"},
		},
		{
			name:      "missing text",
			frame:     `{"senderId":"u1","senderName":"Alice"}`,
			wantErr:   true,
			wantField: "text",
		},
		{
			name:      "null sender name",
			frame:     `{"senderId":"u1","senderName":null,"text":"hi"}`,
			wantErr:   true,
			wantField: "senderName",
		},
		{
			name:      "numeric sender id",
			frame:     `{"senderId":42,"senderName":"Alice","text":"hi"}`,
			wantErr:   true,
			wantField: "senderId",
		},
		{name: "array", frame: `[1,2]`, wantErr: true},
		{name: "garbage", frame: `not json`, wantErr: true},
		{name: "truncated", frame: `{"senderId":"u1"`, wantErr: true},
		{name: "empty", frame: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.frame))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol))
			var perr *ProtocolError
			require.True(t, errors.As(err, &perr))
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, perr.Field)
			}
		})
	}
}

func TestOutboundFrameShapes(t *testing.T) {
	data, err := json.Marshal(NewOnlineCountFrame(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"online_count","count":3}`, string(data))

	msg := &ChatMessage{ID: "01J", SenderID: "u1", SenderName: "Alice", Text: "hi", Timestamp: 1700000000123}
	data, err = json.Marshal(NewMessageFrame(msg))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message","id":"01J","senderId":"u1","senderName":"Alice","text":"hi","timestamp":1700000000123}`, string(data))
}

func TestMessageModelToDomain(t *testing.T) {
	m := &MessageModel{ID: "id1", SenderID: "u1", SenderName: "Alice", Text: "hi", Timestamp: 5}
	assert.Equal(t, &ChatMessage{ID: "id1", SenderID: "u1", SenderName: "Alice", Text: "hi", Timestamp: 5}, m.ToDomain())
	assert.Equal(t, "messages", MessageModel{}.TableName())
}
