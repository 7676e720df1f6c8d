package models

import "time"

const TransitionAuditTable = "ep_transition_audit"

// TransitionAudit 记录每次状态流转的审计信息（fire-and-forget 写入）
type TransitionAudit struct {
	ID         string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID  string    `gorm:"type:uuid;index;not null" json:"requestId"`
	ActorID    string    `gorm:"type:uuid;not null" json:"actorId"`
	ActorRole  string    `gorm:"size:30;not null" json:"actorRole"`
	FromStatus string    `gorm:"size:20" json:"fromStatus"` // 创建时为空
	ToStatus   string    `gorm:"size:20;not null" json:"toStatus"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (TransitionAudit) TableName() string { return TransitionAuditTable }
