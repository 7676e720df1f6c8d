package workflow

import (
	"errors"
	"fmt"
)

// 错误分类（客户端的补救动作不同，必须可区分）：
//   Forbidden         — 角色不允许，前端应重新登录/跳转
//   InvalidTransition — 角色没问题但当前状态不允许，前端应刷新重试
//   Conflict          — 乐观并发冲突，刷新后最多重试一次
//   NotFound          — id / 追踪号不存在
var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrConflict          = errors.New("conflict: request was modified concurrently")
	ErrNotFound          = errors.New("exit request not found")

	// ErrDuplicateTracking 由存储层在 tracking_number 唯一索引冲突时返回，
	// 引擎据此重取序列号再试一次
	ErrDuplicateTracking = errors.New("tracking number already taken")
)

// ValidationError 指明出错的字段；条目字段附带下标
type ValidationError struct {
	Index  int // 条目下标，非条目字段为 -1
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("items[%d].%s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newFieldError(field, reason string) *ValidationError {
	return &ValidationError{Index: -1, Field: field, Reason: reason}
}

func newItemError(index int, field, reason string) *ValidationError {
	return &ValidationError{Index: index, Field: field, Reason: reason}
}

// IsValidation 判断是否为校验类错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
