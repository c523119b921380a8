package store

import (
	"context"
	"strings"

	"github.com/worldclock/apiserver/types"
	"gorm.io/gorm"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return types.User{}, translate(err)
	}
	return model.toType(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error
	if err != nil {
		return types.User{}, translate(err)
	}
	return model.toType(), nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []userModel
	err := r.db.WithContext(ctx).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	users := make([]types.User, 0, len(models))
	for _, model := range models {
		users = append(users, model.toType())
	}
	return users, int(total), nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	model := userModel{
		Email:        user.Email,
		Name:         user.Name,
		Role:         string(user.Role),
		PasswordHash: user.PasswordHash,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return types.User{}, translate(err)
	}
	return model.toType(), nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int, role types.Role) (types.User, error) {
	result := r.db.WithContext(ctx).
		Model(&userModel{ID: id}).
		Update("role", string(role))
	if result.Error != nil {
		return types.User{}, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return types.User{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user and every timezone it owns in one transaction.
// The foreign key also cascades; the explicit delete keeps the behavior
// independent of the driver's constraint settings.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", id).Delete(&timezoneModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&userModel{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
