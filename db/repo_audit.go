package db

import (
	"context"
	"fmt"

	"exit_permit_tool/models"
)

// RecordTransition 实现 workflow.AuditWriter：流转审计只追加不修改
func (r *Repo) RecordTransition(ctx context.Context, rec models.TransitionAudit) error {
	if err := r.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert transition audit: %w", err)
	}
	return nil
}

// ListTransitions 按申请单回看流转轨迹（排障用）
func (r *Repo) ListTransitions(ctx context.Context, requestID string) ([]models.TransitionAudit, error) {
	var recs []models.TransitionAudit
	err := r.DB.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&recs).Error
	return recs, err
}
