package store

import (
	"context"

	"github.com/worldclock/apiserver/types"
	"gorm.io/gorm"
)

// TimezoneRepository handles persistence for timezone records.
type TimezoneRepository struct {
	db *gorm.DB
}

func NewTimezoneRepository(db *gorm.DB) *TimezoneRepository {
	return &TimezoneRepository{db: db}
}

func (r *TimezoneRepository) Get(ctx context.Context, id int) (types.Timezone, error) {
	var model timezoneModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return types.Timezone{}, translate(err)
	}
	return model.toType(), nil
}

func (r *TimezoneRepository) GetByOwnerAndName(ctx context.Context, ownerID int, name string) (types.Timezone, error) {
	var model timezoneModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		First(&model).Error
	if err != nil {
		return types.Timezone{}, translate(err)
	}
	return model.toType(), nil
}

func (r *TimezoneRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Timezone, error) {
	var models []timezoneModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toTimezones(models), nil
}

func (r *TimezoneRepository) List(ctx context.Context, offset, limit int) ([]types.Timezone, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&timezoneModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []timezoneModel
	err := r.db.WithContext(ctx).
		Order("owner_id").
		Order("name").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return toTimezones(models), int(total), nil
}

func (r *TimezoneRepository) Create(ctx context.Context, tz types.Timezone) (types.Timezone, error) {
	model := timezoneModel{
		OwnerID:   tz.OwnerID,
		Name:      tz.Name,
		City:      tz.City,
		Timezone:  tz.Timezone,
		UTCOffset: tz.Offset,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return types.Timezone{}, translate(err)
	}
	return model.toType(), nil
}

// Update writes only the columns present in changes.
func (r *TimezoneRepository) Update(ctx context.Context, id int, changes types.TimezoneUpdate) (types.Timezone, error) {
	columns := map[string]any{}
	if changes.Name != nil {
		columns["name"] = *changes.Name
	}
	if changes.City != nil {
		columns["city"] = *changes.City
	}
	if changes.Timezone != nil {
		columns["timezone"] = *changes.Timezone
	}
	if changes.Offset != nil {
		columns["utc_offset"] = *changes.Offset
	}
	if len(columns) == 0 {
		return r.Get(ctx, id)
	}

	result := r.db.WithContext(ctx).
		Model(&timezoneModel{ID: id}).
		Updates(columns)
	if result.Error != nil {
		return types.Timezone{}, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return types.Timezone{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *TimezoneRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&timezoneModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toTimezones(models []timezoneModel) []types.Timezone {
	out := make([]types.Timezone, 0, len(models))
	for _, model := range models {
		out = append(out, model.toType())
	}
	return out
}
