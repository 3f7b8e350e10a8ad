package model

import "time"

// Chat log entry types.
const (
	ChatTypeUser      = 1
	ChatTypeAssistant = 2
)

// ChatLog is one message of a session's conversation history.
type ChatLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SessionID string    `json:"session_id" gorm:"size:64;index;not null"`
	UserID    string    `json:"user_id" gorm:"size:64;index"`
	ChatType  int       `json:"chat_type" gorm:"index"` // 1=user message, 2=assistant reply
	Content   string    `json:"content" gorm:"type:text"`
	Intent    string    `json:"intent" gorm:"size:50"`
	Sentiment string    `json:"sentiment" gorm:"size:20"`
}

// TableName sets the table name.
func (ChatLog) TableName() string {
	return "chat_logs"
}
