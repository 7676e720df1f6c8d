// controllers/notification_controller.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"exit_permit_tool/app"
	"exit_permit_tool/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NotificationController struct{ *Srv }

func NewNotificationController(s *Srv) *NotificationController {
	return &NotificationController{Srv: s}
}

// GET /api/notifications?status=unread&page=&size= — 只看自己的
func (nc *NotificationController) List(c *gin.Context) {
	uid, _, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := nc.Repo.ListNotifications(c.Request.Context(), uid, status, page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": res.Items, "total": res.Total})
}

// GET /api/notifications/unread-count
func (nc *NotificationController) UnreadCount(c *gin.Context) {
	uid, _, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	n, err := nc.Repo.CountUnreadNotifications(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"unread": n})
}

// POST /api/notifications/:id/read — 只有收件人能标记
func (nc *NotificationController) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	uid, _, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	if err := nc.Repo.MarkNotificationRead(c.Request.Context(), id, uid); err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "notification not found", "code": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/notifications/read-all
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	uid, _, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	n, err := nc.Repo.MarkAllNotificationsRead(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "marked": n})
}
