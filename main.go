package main

import (
	"context"
	"os"

	"exit_permit_tool/app"
	"exit_permit_tool/config"
	"exit_permit_tool/db"
	"exit_permit_tool/routes"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	r := application.Router

	// Health
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(200, app.H{"ok": true}) })

	routes.RegisterRoutes(r, application)

	// 空库时种第一个超级管理员（否则新申请没人收到通知）
	app.BootstrapFirstSuperAdmin(context.Background(), application.Config,
		db.NewRepo(application.DB), application.Log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	application.Log.Infof("listening on :%s", port)
	_ = r.Run(":" + port)
}
