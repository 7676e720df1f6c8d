package models

import "time"

const UserTable = "ep_users"

// 角色常量与 workflow 包保持一致（这里存纯字符串，避免循环依赖）
const (
	RoleTenant          = "tenant"
	RoleAdmin           = "admin"
	RoleSuperAdmin      = "super_admin"
	RoleSecurityOfficer = "security_officer"
)

// User 账号与角色由外部认证服务维护，这里只做目录读取
type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	DisplayName string `gorm:"size:255;not null" json:"displayName"`
	Role        string `gorm:"size:30;not null;default:'tenant';index" json:"role"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }
