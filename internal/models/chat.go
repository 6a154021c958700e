package models

import "time"

type SenderRole string

const (
	RoleOperator SenderRole = "operator"
	RoleVisitor  SenderRole = "visitor"
	RoleSystem   SenderRole = "system"
)

func (r SenderRole) Valid() bool {
	switch r {
	case RoleOperator, RoleVisitor, RoleSystem:
		return true
	}
	return false
}

type ChatMessage struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	MeetingID  uint       `gorm:"not null;index:idx_chat_meeting_created,priority:1" json:"meeting_id"`
	SenderRole SenderRole `gorm:"type:varchar(20);not null" json:"sender_role"`
	SenderName string     `gorm:"not null" json:"sender_name"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time  `gorm:"index:idx_chat_meeting_created,priority:2" json:"created_at"`
}

type FileAttachment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MeetingID   uint      `gorm:"not null;index" json:"meeting_id"`
	UploadedBy  string    `gorm:"not null" json:"uploaded_by"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	URL         string    `gorm:"not null" json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}
