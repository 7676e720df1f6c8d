// db/repo_notification.go
package db

import (
	"context"

	"exit_permit_tool/models"
	"exit_permit_tool/workflow"

	"gorm.io/gorm"
)

// CreateNotification 实现 notify.NotificationStore
func (r *Repo) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

type ListNotificationsResult struct {
	Items []models.Notification `json:"items"`
	Total int64                 `json:"total"`
}

// ListNotifications 收件人查自己的通知；status 传空表示不过滤
func (r *Repo) ListNotifications(ctx context.Context, userID, status string, page, size int) (ListNotificationsResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListNotificationsResult{}, err
	}

	var items []models.Notification
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&items).Error; err != nil {
		return ListNotificationsResult{}, err
	}
	return ListNotificationsResult{Items: items, Total: total}, nil
}

func (r *Repo) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationUnread).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead 只有收件人本人能标记已读；重复标记幂等
func (r *Repo) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":  models.NotificationRead,
			"read_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

func (r *Repo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationRead,
			"read_at": gorm.Expr("NOW()"),
		})
	return res.RowsAffected, res.Error
}
