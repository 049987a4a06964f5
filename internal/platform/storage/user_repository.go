package storage

import (
	"context"

	"gorm.io/gorm"

	"pilotforce-server-go/internal/platform/errors"
)

// UserRepository persists operator accounts.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "user.create", "failed to create user", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "user.update", "failed to update user", err)
	}
	return nil
}

// FindByEmail returns nil without error when no account matches.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var model User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "user.find_by_email", "failed to find user", err)
	}
	return &model, nil
}

func (r *UserRepository) FindByUserID(ctx context.Context, userID string) (*User, error) {
	var model User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "user.find_by_user_id", "failed to find user", err)
	}
	return &model, nil
}

// List returns users, optionally scoped to a company.
func (r *UserRepository) List(ctx context.Context, companyID string) ([]User, error) {
	query := r.db.WithContext(ctx)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	var models []User
	if err := query.Order("created_at desc").Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "user.list", "failed to list users", err)
	}
	return models, nil
}

func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&User{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "user.delete", "failed to delete user", err)
	}
	return nil
}
