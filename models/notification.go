package models

import "time"

const NotificationTable = "ep_notifications"

const (
	NotificationUnread = "unread"
	NotificationRead   = "read"
)

// Notification 持久化通知行是事实来源，推送只是 best-effort
type Notification struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string     `gorm:"type:uuid;index;not null" json:"userId"`
	Kind             string     `gorm:"size:50;not null" json:"kind"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	Message          string     `gorm:"type:text;not null" json:"message"`
	RelatedRequestID *string    `gorm:"type:uuid;index" json:"relatedRequestId,omitempty"` // 仅回查，不是归属
	Status           string     `gorm:"size:10;not null;default:'unread'" json:"status"`
	ReadAt           *time.Time `json:"readAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (Notification) TableName() string { return NotificationTable }
