// controllers/srv.go
package controllers

import (
	"exit_permit_tool/app"
	"exit_permit_tool/db"
	"exit_permit_tool/notify"
	"exit_permit_tool/session"
	"exit_permit_tool/workflow"

	"github.com/sirupsen/logrus"
)

// Srv 聚合 handlers 共用的依赖
type Srv struct {
	Repo    *db.Repo
	Engine  *workflow.Engine
	Hub     *notify.Hub
	AppSess *session.AppSessionStore
	Cfg     app.Config
	Log     *logrus.Logger
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	disp := notify.NewDispatcher(repo, a.Hub, a.Log)
	engine := workflow.NewEngine(repo, repo, repo, disp, repo, a.Log)
	return &Srv{
		Repo:    repo,
		Engine:  engine,
		Hub:     a.Hub,
		AppSess: a.AppSessions(),
		Cfg:     a.Config,
		Log:     a.Log,
	}
}
