package domain

// MessageDraft is an inbound chat message that has not been persisted yet.
// It carries no id or timestamp; both are assigned by the message store.
type MessageDraft struct {
	SenderID   string
	SenderName string
	Text       string
}

// ChatMessage is a persisted, immutable chat message.
type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds, store-assigned
}
