// models/exit_request.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const ExitRequestTable = "ep_exit_requests"
const ExitRequestItemTable = "ep_exit_request_items"

// ExitRequest 离场申请单
// 状态流转见 workflow 包；tracking_number 由存储层唯一索引兜底
type ExitRequest struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	TrackingNumber string    `gorm:"size:40;uniqueIndex;not null" json:"trackingNumber"`
	TenantID       string    `gorm:"type:uuid;index;not null" json:"tenantId"`
	RentalID       string    `gorm:"type:uuid;index;not null" json:"rentalId"`
	Type           string    `gorm:"size:20;not null" json:"type"` // temporary/permanent
	ExitDate       time.Time `gorm:"not null" json:"exitDate"`
	Purpose        string    `gorm:"size:500;not null" json:"purpose"`
	Status         string    `gorm:"size:20;not null;default:'pending';index" json:"status"`

	// 管理员裁决：三个字段同时出现
	AdminReviewerID *string    `gorm:"type:uuid" json:"adminReviewerId,omitempty"`
	AdminNote       *string    `gorm:"size:500" json:"adminNote,omitempty"`
	AdminReviewDate *time.Time `json:"adminReviewDate,omitempty"`

	// 安保核验：同上
	SecurityOfficerID *string    `gorm:"type:uuid" json:"securityOfficerId,omitempty"`
	SecurityNote      *string    `gorm:"size:1000" json:"securityNote,omitempty"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`

	RequestDate time.Time `gorm:"index;not null" json:"requestDate"`

	Items []ExitRequestItem `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExitRequestItem 申请单条目，随单删除
type ExitRequestItem struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID string `gorm:"type:uuid;index;not null" json:"requestId"`
	Position  int    `gorm:"not null" json:"position"` // 保持清单原始顺序

	ItemName     string `gorm:"size:200;not null" json:"itemName"`
	Description  string `gorm:"size:500" json:"description,omitempty"`
	SerialNumber string `gorm:"size:100" json:"serialNumber,omitempty"`
	Quantity     int    `gorm:"not null" json:"quantity"`
	// 缺省与 0 含义不同，用指针区分
	EstimatedValue *decimal.Decimal `gorm:"type:numeric(12,2)" json:"estimatedValue,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (ExitRequest) TableName() string     { return ExitRequestTable }
func (ExitRequestItem) TableName() string { return ExitRequestItemTable }
