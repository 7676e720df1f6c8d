// Package workflow 承载离场申请的状态机、授权表与清单校验，
// 不依赖任何存储/传输细节，方便单测。
package workflow

// Status 申请单生命周期
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusVerified  Status = "verified"
	StatusBlocked   Status = "blocked"
	StatusCancelled Status = "cancelled"
)

// Terminal 终态不可再流转
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusVerified, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusVerified, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

// Role 调用方角色，由外部认证服务给出
type Role string

const (
	RoleTenant          Role = "tenant"
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "super_admin"
	RoleSecurityOfficer Role = "security_officer"
)

// RequestType 离场类型
type RequestType string

const (
	TypeTemporary RequestType = "temporary"
	TypePermanent RequestType = "permanent"
)

func (t RequestType) Valid() bool {
	return t == TypeTemporary || t == TypePermanent
}
