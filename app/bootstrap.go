// app/bootstrap.go
package app

import (
	"context"

	"exit_permit_tool/db"
	"exit_permit_tool/models"
	"exit_permit_tool/workflow"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BootstrapFirstSuperAdmin 空库启动时种一个超级管理员目录行，
// 否则没有任何人能收到新申请的通知。登录凭据仍由外部认证服务管。
func BootstrapFirstSuperAdmin(ctx context.Context, cfg Config, repo *db.Repo, log *logrus.Logger) {
	if cfg.BootstrapAdminUsername == "" {
		return
	}
	n, err := repo.CountUsersByRole(ctx, workflow.RoleSuperAdmin)
	if err != nil {
		log.WithError(err).Warn("bootstrap: count super admins failed")
		return
	}
	if n > 0 {
		return
	}

	u := &models.User{
		ID:          uuid.NewString(),
		Username:    cfg.BootstrapAdminUsername,
		DisplayName: cfg.BootstrapAdminName,
		Role:        models.RoleSuperAdmin,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		log.WithError(err).Warn("bootstrap: create super admin failed")
		return
	}
	log.WithFields(logrus.Fields{"userId": u.ID, "username": u.Username}).
		Info("bootstrap: seeded first super admin")
}
