// db/repo_exit_request.go
package db

import (
	"context"
	"errors"

	"exit_permit_tool/models"
	"exit_permit_tool/workflow"

	"gorm.io/gorm"
)

// itemsInOrder 条目按清单原始顺序返回
func itemsInOrder(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }

// CreateRequest 落库新申请（连同条目一起插入）。
// tracking_number 撞唯一索引时返回 workflow.ErrDuplicateTracking，引擎会换号重试一次。
func (r *Repo) CreateRequest(ctx context.Context, req *models.ExitRequest) error {
	if err := r.DB.WithContext(ctx).Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return workflow.ErrDuplicateTracking
		}
		return err
	}
	return nil
}

func (r *Repo) GetRequest(ctx context.Context, id string) (*models.ExitRequest, error) {
	var req models.ExitRequest
	if err := r.DB.WithContext(ctx).
		Preload("Items", itemsInOrder).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// GetRequestByTracking 安保窗口按追踪号直查
func (r *Repo) GetRequestByTracking(ctx context.Context, tracking string) (*models.ExitRequest, error) {
	var req models.ExitRequest
	if err := r.DB.WithContext(ctx).
		Preload("Items", itemsInOrder).
		First(&req, "tracking_number = ?", tracking).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *Repo) ListRequestsByTenant(ctx context.Context, tenantID string) ([]models.ExitRequest, error) {
	var reqs []models.ExitRequest
	err := r.DB.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where("tenant_id = ?", tenantID).
		Order("request_date DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListRequestsByStatus 分页取某状态的申请（安保复核队列先到先核）
func (r *Repo) ListRequestsByStatus(ctx context.Context, status workflow.Status, page, limit int) ([]models.ExitRequest, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.ExitRequest{}).
		Where("status = ?", string(status))

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []models.ExitRequest
	if err := tx.
		Preload("Items", itemsInOrder).
		Order("request_date ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// Transition 原子条件更新：UPDATE ... WHERE id=? AND status=from。
// 0 行生效说明赛跑输了（或行已不在预期状态），返回 workflow.ErrConflict，
// 由调用方刷新后决定是否重试。这是两名安保同时核验同一单时的护栏。
func (r *Repo) Transition(ctx context.Context, id string, from workflow.Status, patch workflow.TransitionPatch) (*models.ExitRequest, error) {
	cols := map[string]interface{}{
		"status":     string(patch.To),
		"updated_at": gorm.Expr("NOW()"),
	}
	if patch.AdminReviewerID != nil {
		cols["admin_reviewer_id"] = *patch.AdminReviewerID
		cols["admin_review_date"] = patch.AdminReviewDate
		cols["admin_note"] = patch.AdminNote
	}
	if patch.SecurityOfficerID != nil {
		cols["security_officer_id"] = *patch.SecurityOfficerID
		cols["verified_at"] = patch.VerifiedAt
		cols["security_note"] = patch.SecurityNote
	}

	res := r.DB.WithContext(ctx).Model(&models.ExitRequest{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 区分：行不存在 → NotFound；状态已被并发改写 → Conflict
		var n int64
		if err := r.DB.WithContext(ctx).Model(&models.ExitRequest{}).
			Where("id = ?", id).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, workflow.ErrNotFound
		}
		return nil, workflow.ErrConflict
	}
	return r.GetRequest(ctx, id)
}
