package workflow

// Transition 状态机上的四种操作
type Transition string

const (
	TransitionCreate Transition = "create"
	TransitionDecide Transition = "decide"
	TransitionVerify Transition = "verify"
	TransitionCancel Transition = "cancel"
)

// 授权表：操作 → (允许角色, 要求的当前状态)
// create/cancel 的归属校验（必须是本人）在引擎里做
var gateTable = map[Transition]struct {
	roles  []Role
	status Status // 为空表示不检查当前状态
}{
	TransitionCreate: {roles: []Role{RoleTenant}},
	TransitionDecide: {roles: []Role{RoleAdmin, RoleSuperAdmin}, status: StatusPending},
	TransitionVerify: {roles: []Role{RoleSecurityOfficer}, status: StatusApproved},
	TransitionCancel: {roles: []Role{RoleTenant}, status: StatusPending},
}

// CanTransition 无状态授权检查
func CanTransition(role Role, current Status, t Transition) bool {
	return Authorize(role, current, t) == nil
}

// Authorize 区分两类失败：角色不符 → ErrForbidden，状态不符 → ErrInvalidTransition。
// 先查角色再查状态，避免把状态信息泄露给无权限的调用方。
func Authorize(role Role, current Status, t Transition) error {
	entry, ok := gateTable[t]
	if !ok {
		return ErrForbidden
	}
	allowed := false
	for _, r := range entry.roles {
		if r == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrForbidden
	}
	if entry.status != "" && current != entry.status {
		return ErrInvalidTransition
	}
	return nil
}
