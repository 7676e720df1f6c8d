// notify/dispatcher.go
package notify

import (
	"context"
	"encoding/json"

	"exit_permit_tool/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationStore 落库端口，行提交成功才算通知成立
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Pusher 在线推送端口（由 Hub 实现）
type Pusher interface {
	Push(userID string, payload []byte) int
}

// Dispatcher 每个收件人：先插 Notification 行（事实来源），
// 再向其在线连接做 best-effort 推送。推送失败不重试、不上抛。
type Dispatcher struct {
	store NotificationStore
	hub   Pusher
	log   *logrus.Logger
}

func NewDispatcher(store NotificationStore, hub Pusher, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.New()
	}
	return &Dispatcher{store: store, hub: hub, log: log}
}

// pushEvent 推给客户端的个人通知事件
type pushEvent struct {
	Event        string               `json:"event"`
	Notification *models.Notification `json:"notification"`
}

// Notify 实现 workflow.Dispatcher。
// 返回的错误只反映落库失败；推送层面的失败一律吞掉。
func (d *Dispatcher) Notify(ctx context.Context, recipients []string, kind, title, message string, relatedRequestID *string) error {
	seen := make(map[string]struct{}, len(recipients))
	var firstErr error
	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		n := &models.Notification{
			ID:               uuid.NewString(),
			UserID:           userID,
			Kind:             kind,
			Title:            title,
			Message:          message,
			RelatedRequestID: relatedRequestID,
			Status:           models.NotificationUnread,
		}
		if err := d.store.CreateNotification(ctx, n); err != nil {
			d.log.WithError(err).WithField("userId", userID).Error("persist notification failed")
			if firstErr == nil {
				firstErr = err
			}
			continue // 行没落库就没有通知，也不推送
		}

		payload, err := json.Marshal(pushEvent{Event: "notification", Notification: n})
		if err != nil {
			d.log.WithError(err).Warn("marshal push payload failed")
			continue
		}
		d.hub.Push(userID, payload)
	}
	return firstErr
}
