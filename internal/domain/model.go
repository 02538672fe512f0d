package domain

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID         string `gorm:"type:varchar(50);primaryKey"`
	SenderID   string `gorm:"type:varchar(50);index;not null"`
	SenderName string `gorm:"type:varchar(100);not null"`
	Text       string `gorm:"type:text;not null"`
	Timestamp  int64  `gorm:"index;not null"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to a domain ChatMessage.
func (m *MessageModel) ToDomain() *ChatMessage {
	return &ChatMessage{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
	}
}
