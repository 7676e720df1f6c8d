// workflow/engine.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"exit_permit_tool/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	maxPurposeLen      = 500
	maxAdminNoteLen    = 500
	maxSecurityNoteLen = 1000
)

// TransitionPatch 随状态一起写入的裁决/核验列
type TransitionPatch struct {
	To                Status
	AdminReviewerID   *string
	AdminNote         *string
	AdminReviewDate   *time.Time
	SecurityOfficerID *string
	SecurityNote      *string
	VerifiedAt        *time.Time
}

// Store 持久化端口。Transition 必须是条件更新
// （UPDATE ... WHERE id=? AND status=from），0 行生效返回 ErrConflict。
type Store interface {
	CreateRequest(ctx context.Context, req *models.ExitRequest) error
	GetRequest(ctx context.Context, id string) (*models.ExitRequest, error)
	GetRequestByTracking(ctx context.Context, tracking string) (*models.ExitRequest, error)
	ListRequestsByTenant(ctx context.Context, tenantID string) ([]models.ExitRequest, error)
	ListRequestsByStatus(ctx context.Context, status Status, page, limit int) ([]models.ExitRequest, int64, error)
	Transition(ctx context.Context, id string, from Status, patch TransitionPatch) (*models.ExitRequest, error)
}

// Sequencer 按日原子发号
type Sequencer interface {
	NextTrackingSeq(ctx context.Context, day string) (int64, error)
}

// Directory 角色 → 用户集合，派发时实时解析、不缓存
type Directory interface {
	UserIDsByRoles(ctx context.Context, roles ...Role) ([]string, error)
}

// Dispatcher 通知派发端口（先落库后推送，推送 best-effort）
type Dispatcher interface {
	Notify(ctx context.Context, recipients []string, kind, title, message string, relatedRequestID *string) error
}

// AuditWriter 流转审计（fire-and-forget，失败只记日志）
type AuditWriter interface {
	RecordTransition(ctx context.Context, rec models.TransitionAudit) error
}

// 通知事件类型
const (
	KindSubmitted = "exit_request_submitted"
	KindDecided   = "exit_request_decided"
	KindVerified  = "exit_request_verified"
	KindCancelled = "exit_request_cancelled"
)

// Engine 状态机：校验 → 授权 → 条件更新 → 审计 + 通知
type Engine struct {
	store Store
	seq   Sequencer
	dir   Directory
	disp  Dispatcher
	audit AuditWriter
	log   *logrus.Logger
	now   func() time.Time
}

func NewEngine(store Store, seq Sequencer, dir Directory, disp Dispatcher, audit AuditWriter, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{store: store, seq: seq, dir: dir, disp: disp, audit: audit, log: log, now: time.Now}
}

// WithClock 测试用：注入时钟
func (e *Engine) WithClock(now func() time.Time) *Engine { e.now = now; return e }

// CreateInput 提交申请的入参
type CreateInput struct {
	TenantID  string
	ActorRole Role
	RentalID  string
	Type      RequestType
	ExitDate  time.Time
	Purpose   string
	Items     []ItemInput
}

// Create 提交申请：校验 → 发追踪号 → 落库 Pending → 通知管理员
func (e *Engine) Create(ctx context.Context, in CreateInput) (*models.ExitRequest, error) {
	if err := Authorize(in.ActorRole, "", TransitionCreate); err != nil {
		return nil, err
	}
	if in.TenantID == "" {
		return nil, newFieldError("tenantId", "required")
	}
	if in.RentalID == "" {
		return nil, newFieldError("rentId", "required")
	}
	if !in.Type.Valid() {
		return nil, newFieldError("type", "must be temporary or permanent")
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return nil, newFieldError("purpose", "required")
	}
	if utf8.RuneCountInString(purpose) > maxPurposeLen {
		return nil, newFieldError("purpose", "must be at most 500 characters")
	}
	now := e.now()
	// 只比较日期，当日提交当日离场是允许的
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	exit := time.Date(in.ExitDate.Year(), in.ExitDate.Month(), in.ExitDate.Day(), 0, 0, 0, 0, time.UTC)
	if exit.Before(today) {
		return nil, newFieldError("exitDate", "must not be in the past")
	}
	items, err := NormalizeItems(in.Items)
	if err != nil {
		return nil, err
	}

	// 追踪号冲突（序列被重置等极端情况）靠唯一索引兜底，重取一次
	var req *models.ExitRequest
	for attempt := 0; attempt < 2; attempt++ {
		day := DayStamp(now)
		seq, err := e.seq.NextTrackingSeq(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("allocate tracking seq: %w", err)
		}
		req = &models.ExitRequest{
			ID:             uuid.NewString(),
			TrackingNumber: FormatTracking(day, seq),
			TenantID:       in.TenantID,
			RentalID:       in.RentalID,
			Type:           string(in.Type),
			ExitDate:       exit,
			Purpose:        purpose,
			Status:         string(StatusPending),
			RequestDate:    now,
			Items:          toModelItems(items),
		}
		err = e.store.CreateRequest(ctx, req)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateTracking) && attempt == 0 {
			continue
		}
		return nil, err
	}

	e.recordAudit(ctx, req.ID, in.TenantID, RoleTenant, "", StatusPending)
	e.notifyRoles(ctx, []Role{RoleAdmin, RoleSuperAdmin}, KindSubmitted,
		"New exit request",
		fmt.Sprintf("Exit request %s is awaiting review.", req.TrackingNumber),
		req.ID)
	return req, nil
}

// Decide 管理员裁决 Pending → Approved/Rejected
func (e *Engine) Decide(ctx context.Context, requestID, actorID string, role Role, decision Status, note string) (*models.ExitRequest, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return nil, newFieldError("decision", "must be approved or rejected")
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxAdminNoteLen {
		return nil, newFieldError("note", "must be at most 500 characters")
	}
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(role, Status(req.Status), TransitionDecide); err != nil {
		return nil, err
	}

	now := e.now()
	patch := TransitionPatch{
		To:              decision,
		AdminReviewerID: &actorID,
		AdminReviewDate: &now,
	}
	if note != "" {
		patch.AdminNote = &note
	}
	updated, err := e.store.Transition(ctx, requestID, StatusPending, patch)
	if err != nil {
		return nil, err
	}

	e.recordAudit(ctx, requestID, actorID, role, StatusPending, decision)
	verb := "approved"
	if decision == StatusRejected {
		verb = "rejected"
	}
	e.notifyUsers(ctx, []string{updated.TenantID}, KindDecided,
		"Exit request "+verb,
		fmt.Sprintf("Your exit request %s was %s.", updated.TrackingNumber, verb),
		updated.ID)
	if decision == StatusApproved {
		e.notifyRoles(ctx, []Role{RoleSecurityOfficer}, KindDecided,
			"Exit request approved",
			fmt.Sprintf("Exit request %s is ready for checkpoint verification.", updated.TrackingNumber),
			updated.ID)
	}
	return updated, nil
}

// Verify 安保核验 Approved → Verified/Blocked。拦下必须写说明。
func (e *Engine) Verify(ctx context.Context, requestID, actorID string, role Role, outcome Status, securityNote string) (*models.ExitRequest, error) {
	if outcome != StatusVerified && outcome != StatusBlocked {
		return nil, newFieldError("outcome", "must be verified or blocked")
	}
	securityNote = strings.TrimSpace(securityNote)
	if outcome == StatusBlocked && securityNote == "" {
		return nil, newFieldError("securityNote", "required when blocking")
	}
	if utf8.RuneCountInString(securityNote) > maxSecurityNoteLen {
		return nil, newFieldError("securityNote", "must be at most 1000 characters")
	}
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(role, Status(req.Status), TransitionVerify); err != nil {
		return nil, err
	}

	now := e.now()
	patch := TransitionPatch{
		To:                outcome,
		SecurityOfficerID: &actorID,
		VerifiedAt:        &now,
	}
	if securityNote != "" {
		patch.SecurityNote = &securityNote
	}
	updated, err := e.store.Transition(ctx, requestID, StatusApproved, patch)
	if err != nil {
		return nil, err
	}

	e.recordAudit(ctx, requestID, actorID, role, StatusApproved, outcome)
	verb := "verified"
	if outcome == StatusBlocked {
		verb = "blocked"
	}
	recipients := []string{updated.TenantID}
	if updated.AdminReviewerID != nil && *updated.AdminReviewerID != "" {
		recipients = append(recipients, *updated.AdminReviewerID)
	}
	e.notifyUsers(ctx, recipients, KindVerified,
		"Exit request "+verb,
		fmt.Sprintf("Exit request %s was %s at the checkpoint.", updated.TrackingNumber, verb),
		updated.ID)
	return updated, nil
}

// Cancel 租户撤回自己的 Pending 申请。
// 管理员不能代撤（有异议时走 reject），见 DESIGN.md。
func (e *Engine) Cancel(ctx context.Context, requestID, actorID string, role Role) (*models.ExitRequest, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if role != RoleTenant || req.TenantID != actorID {
		return nil, ErrForbidden
	}
	if err := Authorize(role, Status(req.Status), TransitionCancel); err != nil {
		return nil, err
	}

	updated, err := e.store.Transition(ctx, requestID, StatusPending, TransitionPatch{To: StatusCancelled})
	if err != nil {
		return nil, err
	}

	e.recordAudit(ctx, requestID, actorID, role, StatusPending, StatusCancelled)
	e.notifyRoles(ctx, []Role{RoleAdmin, RoleSuperAdmin}, KindCancelled,
		"Exit request cancelled",
		fmt.Sprintf("Exit request %s was cancelled by the tenant.", updated.TrackingNumber),
		updated.ID)
	return updated, nil
}

// Get 按 id 取单
func (e *Engine) Get(ctx context.Context, requestID string) (*models.ExitRequest, error) {
	return e.store.GetRequest(ctx, requestID)
}

// GetByTracking 安保窗口按追踪号直查，绕过列表分页
func (e *Engine) GetByTracking(ctx context.Context, tracking string) (*models.ExitRequest, error) {
	return e.store.GetRequestByTracking(ctx, strings.TrimSpace(tracking))
}

// ListByTenant 租户查自己的申请
func (e *Engine) ListByTenant(ctx context.Context, tenantID string) ([]models.ExitRequest, error) {
	return e.store.ListRequestsByTenant(ctx, tenantID)
}

// ListApproved 安保复核队列（分页）
func (e *Engine) ListApproved(ctx context.Context, page, limit int) ([]models.ExitRequest, int64, error) {
	return e.store.ListRequestsByStatus(ctx, StatusApproved, page, limit)
}

// ── 内部辅助 ──

func (e *Engine) recordAudit(ctx context.Context, requestID, actorID string, role Role, from, to Status) {
	rec := models.TransitionAudit{
		RequestID:  requestID,
		ActorID:    actorID,
		ActorRole:  string(role),
		FromStatus: string(from),
		ToStatus:   string(to),
	}
	if err := e.audit.RecordTransition(ctx, rec); err != nil {
		e.log.WithError(err).WithField("requestId", requestID).Warn("audit write failed")
	}
}

func (e *Engine) notifyRoles(ctx context.Context, roles []Role, kind, title, message, requestID string) {
	ids, err := e.dir.UserIDsByRoles(ctx, roles...)
	if err != nil {
		e.log.WithError(err).Warn("resolve notification recipients failed")
		return
	}
	e.notifyUsers(ctx, ids, kind, title, message, requestID)
}

func (e *Engine) notifyUsers(ctx context.Context, ids []string, kind, title, message, requestID string) {
	if len(ids) == 0 {
		return
	}
	if err := e.disp.Notify(ctx, ids, kind, title, message, &requestID); err != nil {
		// 推送失败不影响已提交的状态流转
		e.log.WithError(err).WithField("requestId", requestID).Warn("notify failed")
	}
}

// RequestTotals 从已存条目独立重算总件数与总估值（读方随时可复核，不存冗余列）
func RequestTotals(items []models.ExitRequestItem) (int, decimal.Decimal) {
	qty := 0
	value := decimal.Zero
	for _, it := range items {
		qty += it.Quantity
		if it.EstimatedValue != nil {
			value = value.Add(it.EstimatedValue.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return qty, value
}

func toModelItems(items []Item) []models.ExitRequestItem {
	out := make([]models.ExitRequestItem, 0, len(items))
	for i, it := range items {
		out = append(out, models.ExitRequestItem{
			ID:             uuid.NewString(),
			Position:       i,
			ItemName:       it.ItemName,
			Description:    it.Description,
			SerialNumber:   it.SerialNumber,
			Quantity:       it.Quantity,
			EstimatedValue: it.EstimatedValue,
		})
	}
	return out
}
