package config

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv 本地开发从 .env 注入环境变量；容器里通常没有该文件，忽略即可
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file, using process environment")
	}
}
