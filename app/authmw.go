package app

import (
	"net/http"

	"exit_permit_tool/db"
	"exit_permit_tool/session"
	"exit_permit_tool/workflow"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "app_session"

// AuthRequired 校验外部认证服务签发的会话 Cookie。
// 每次都回查用户行：确认仍存在，并以目录里的角色为准（会话里的可能过期）。
func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}

		c.Set("userID", u.ID)
		c.Set("username", u.Username)
		c.Set("role", u.Role)
		c.Next()
	}
}

// RoleRequired 角色闸门。角色不符回 403（客户端该换身份，而不是刷新重试）。
func RoleRequired(roles ...workflow.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("role")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		have, _ := v.(string)
		for _, r := range roles {
			if have == string(r) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden", "code": "forbidden"})
	}
}

// CurrentActor 从上下文取 (userID, role)，handlers 共用
func CurrentActor(c *gin.Context) (string, workflow.Role, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return "", "", false
	}
	uid, _ := v.(string)
	rv, _ := c.Get("role")
	role, _ := rv.(string)
	if uid == "" || role == "" {
		return "", "", false
	}
	return uid, workflow.Role(role), true
}
