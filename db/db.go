package db

import (
	"fmt"
	"os"

	"exit_permit_tool/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	// TranslateError: 唯一索引冲突要翻译成 gorm.ErrDuplicatedKey（追踪号兜底逻辑依赖它）
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("connect database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		logrus.Fatalf("migrate models: %v", err)
	}
	logrus.Info("database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.ExitRequest{},
		&models.ExitRequestItem{},
		&models.Notification{},
		&models.TrackingCounter{},
		&models.TransitionAudit{},
	); err != nil {
		return err
	}

	// 安保复核队列：按状态 + 提交时间扫
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_status_requestdate
	  ON %s (status, request_date);
	`, models.ExitRequestTable, models.ExitRequestTable)).Error; err != nil {
		return err
	}

	// 未读通知列表直查
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_user_status_createdat_desc
	  ON %s (user_id, status, created_at DESC);
	`, models.NotificationTable, models.NotificationTable)).Error; err != nil {
		return err
	}

	return nil
}
