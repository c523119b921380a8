package store

import (
	"time"

	"github.com/worldclock/apiserver/types"
	"gorm.io/gorm"
)

type userModel struct {
	ID           int             `gorm:"primaryKey"`
	Email        string          `gorm:"size:255;not null;uniqueIndex"`
	Name         string          `gorm:"size:255;not null"`
	Role         string          `gorm:"size:16;not null;default:user"`
	PasswordHash string          `gorm:"not null"`
	Timezones    []timezoneModel `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string {
	return "users"
}

func (m userModel) toType() types.User {
	return types.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		Role:         types.Role(m.Role),
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type timezoneModel struct {
	ID        int    `gorm:"primaryKey"`
	OwnerID   int    `gorm:"not null;uniqueIndex:idx_timezones_owner_name,priority:1"`
	Name      string `gorm:"size:255;not null;uniqueIndex:idx_timezones_owner_name,priority:2"`
	City      string `gorm:"size:255;not null"`
	Timezone  string `gorm:"size:64;not null"`
	UTCOffset string `gorm:"column:utc_offset;size:8;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (timezoneModel) TableName() string {
	return "timezones"
}

func (m timezoneModel) toType() types.Timezone {
	return types.Timezone{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		City:      m.City,
		Timezone:  m.Timezone,
		Offset:    m.UTCOffset,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// AutoMigrate creates or updates the schema through GORM. The server applies
// the SQL migrations instead; this is used for local databases and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userModel{}, &timezoneModel{})
}
