package db

import (
	"context"
	"errors"

	"exit_permit_tool/models"
	"exit_permit_tool/workflow"

	"gorm.io/gorm"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

// Users（目录只读：账号/角色由外部认证服务维护）

// 按 ID 查
func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserIDsByRoles 实现 workflow.Directory：派发通知时把角色实时解析成用户集合
func (r *Repo) UserIDsByRoles(ctx context.Context, roles ...workflow.Role) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	var ids []string
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("role IN ?", names).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", gorm.Expr("NOW()")).Error
}

func (r *Repo) CountUsersByRole(ctx context.Context, role workflow.Role) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", string(role)).
		Count(&n).Error
	return n, err
}

// CreateUser 仅供启动期 bootstrap 种子账号使用
func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

// notFound gorm 的未命中统一翻译成 workflow.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workflow.ErrNotFound
	}
	return err
}
