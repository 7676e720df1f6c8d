// controllers/ws_controller.go
package controllers

import (
	"net/http"

	"exit_permit_tool/app"

	"github.com/gin-gonic/gin"
)

type WSController struct{ *Srv }

func NewWSController(s *Srv) *WSController { return &WSController{Srv: s} }

// GET /ws — 升级为 websocket 并以会话里的身份注册。
// 通道不承载权威状态：断线重连后客户端自己重拉通知列表。
func (wc *WSController) Attach(c *gin.Context) {
	uid, _, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	if err := wc.Hub.Attach(c.Writer, c.Request, uid); err != nil {
		// Upgrade 失败时响应已写出，这里只记日志
		wc.Log.WithError(err).Debug("websocket upgrade failed")
	}
}
