package routes

import (
	"net/http"
	"strings"
	"time"

	"exit_permit_tool/app"
	"exit_permit_tool/controllers"
	"exit_permit_tool/workflow"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	exitCtl := controllers.NewExitController(s)
	notifCtl := controllers.NewNotificationController(s)
	wsCtl := controllers.NewWSController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.AppSess, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)
	tenantMW := app.RoleRequired(workflow.RoleTenant)
	adminMW := app.RoleRequired(workflow.RoleAdmin, workflow.RoleSuperAdmin)
	securityMW := app.RoleRequired(workflow.RoleSecurityOfficer)
	staffMW := app.RoleRequired(workflow.RoleAdmin, workflow.RoleSuperAdmin, workflow.RoleSecurityOfficer)
	secureCookie := strings.HasPrefix(a.Config.WebOrigin, "https://")

	// 登出：删 Redis 会话，Cookie 置空（签发在外部认证服务）
	r.POST("/logout", authMW, func(c *app.Ctx) {
		if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
			_ = s.AppSess.Delete(c.Request.Context(), ck.Value)
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     app.AppSessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   secureCookie,
		})
		c.JSON(http.StatusOK, app.H{"ok": true})
	})

	// ------------------------------
	// 离场申请工作流
	// ------------------------------
	exit := r.Group("/api/exit", authMW, seenMW)
	{
		exit.POST("", tenantMW, exitCtl.Create)
		exit.GET("/mine", tenantMW, exitCtl.ListMine)
		exit.GET("/security/approved", securityMW, exitCtl.SecurityQueue) // ?page=&limit=
		exit.GET("/tracking/:tracking", staffMW, exitCtl.GetByTracking)
		exit.GET("/:id", exitCtl.Get) // 租户仅限本人的单，controller 里校验
		exit.GET("/:id/transitions", adminMW, exitCtl.Transitions)
		exit.PATCH("/:id/decide", adminMW, exitCtl.Decide)
		exit.PATCH("/:id/verify", securityMW, exitCtl.Verify)
		exit.POST("/:id/cancel", tenantMW, exitCtl.Cancel)
	}

	// ------------------------------
	// 通知（收件人本人）
	// ------------------------------
	notif := r.Group("/api/notifications", authMW, seenMW)
	{
		notif.GET("", notifCtl.List) // ?status=unread&page=&size=
		notif.GET("/unread-count", notifCtl.UnreadCount)
		notif.POST("/:id/read", notifCtl.MarkRead)
		notif.POST("/read-all", notifCtl.MarkAllRead)
	}

	// ------------------------------
	// 实时推送通道
	// ------------------------------
	r.GET("/ws", authMW, wsCtl.Attach)
}
