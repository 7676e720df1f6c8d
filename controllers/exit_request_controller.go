// controllers/exit_request_controller.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"exit_permit_tool/app"
	"exit_permit_tool/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExitController struct{ *Srv }

func NewExitController(s *Srv) *ExitController { return &ExitController{Srv: s} }

// writeWorkflowError 错误分类 → HTTP 状态 + code。
// 403 和两种 409 必须可区分：客户端补救动作不同（换身份 / 刷新重试）。
func writeWorkflowError(c *gin.Context, err error) {
	var ve *workflow.ValidationError
	switch {
	case errors.As(err, &ve):
		body := app.H{"error": ve.Error(), "code": "validation_error", "field": ve.Field}
		if ve.Index >= 0 {
			body["itemIndex"] = ve.Index
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, workflow.ErrForbidden):
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden", "code": "forbidden"})
	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "code": "invalid_state_transition"})
	case errors.Is(err, workflow.ErrConflict):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "code": "conflict"})
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error(), "code": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
	}
}

// parseExitDate 前端日期选择器给的是 2006-01-02；也接受完整 RFC3339
func parseExitDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type createExitRequestBody struct {
	RentID   string               `json:"rentId" binding:"required"`
	ExitDate string               `json:"exitDate" binding:"required"`
	Purpose  string               `json:"purpose" binding:"required"`
	Type     string               `json:"type" binding:"required"`
	Items    []workflow.ItemInput `json:"items" binding:"required"`
}

// POST /api/exit — 租户提交申请
func (ec *ExitController) Create(c *gin.Context) {
	var in createExitRequestBody
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "code": "validation_error"})
		return
	}
	uid, role, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	exitDate, err := parseExitDate(in.ExitDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "exitDate: invalid date", "code": "validation_error", "field": "exitDate"})
		return
	}

	req, err := ec.Engine.Create(c.Request.Context(), workflow.CreateInput{
		TenantID:  uid,
		ActorRole: role,
		RentalID:  in.RentID,
		Type:      workflow.RequestType(in.Type),
		ExitDate:  exitDate,
		Purpose:   in.Purpose,
		Items:     in.Items,
	})
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	totalQty, totalValue := workflow.RequestTotals(req.Items)
	c.JSON(http.StatusCreated, app.H{
		"requestId":      req.ID,
		"trackingNumber": req.TrackingNumber,
		"status":         req.Status,
		"totalQuantity":  totalQty,
		"totalValue":     totalValue,
	})
}

// GET /api/exit/mine — 租户查自己的申请
func (ec *ExitController) ListMine(c *gin.Context) {
	uid, _, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	reqs, err := ec.Engine.ListByTenant(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": reqs})
}

// GET /api/exit/:id — 取单。租户只能看自己的；管理员/安保不受限
func (ec *ExitController) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	uid, role, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	req, err := ec.Engine.Get(c.Request.Context(), id)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	if role == workflow.RoleTenant && req.TenantID != uid {
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden", "code": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, req)
}

// GET /api/exit/tracking/:tracking — 安保窗口按追踪号直查
func (ec *ExitController) GetByTracking(c *gin.Context) {
	tracking := c.Param("tracking")
	if !workflow.TrackingPattern.MatchString(tracking) {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid tracking number", "code": "validation_error", "field": "trackingNumber"})
		return
	}
	req, err := ec.Engine.GetByTracking(c.Request.Context(), tracking)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

type decideBody struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

// PATCH /api/exit/:id/decide — 管理员裁决
func (ec *ExitController) Decide(c *gin.Context) {
	var in decideBody
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "code": "validation_error"})
		return
	}
	uid, role, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	req, err := ec.Engine.Decide(c.Request.Context(), c.Param("id"), uid, role, workflow.Status(in.Decision), in.Note)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

type verifyBody struct {
	Outcome      string `json:"outcome" binding:"required"`
	SecurityNote string `json:"securityNote"`
}

// PATCH /api/exit/:id/verify — 安保核验/拦下
func (ec *ExitController) Verify(c *gin.Context) {
	var in verifyBody
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "code": "validation_error"})
		return
	}
	uid, role, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	req, err := ec.Engine.Verify(c.Request.Context(), c.Param("id"), uid, role, workflow.Status(in.Outcome), in.SecurityNote)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// POST /api/exit/:id/cancel — 租户撤回自己的 Pending 申请
func (ec *ExitController) Cancel(c *gin.Context) {
	uid, role, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	req, err := ec.Engine.Cancel(c.Request.Context(), c.Param("id"), uid, role)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GET /api/exit/security/approved?page&limit — 安保复核队列
func (ec *ExitController) SecurityQueue(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reqs, total, err := ec.Engine.ListApproved(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": reqs, "total": total, "page": page, "limit": limit})
}

// GET /api/exit/:id/transitions — 管理员回看流转轨迹（排障）
func (ec *ExitController) Transitions(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	recs, err := ec.Repo.ListTransitions(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": recs})
}
