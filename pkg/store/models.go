package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           int64          `gorm:"primaryKey;autoIncrement"`
	Username     string         `gorm:"uniqueIndex;not null"`
	PasswordHash string         `gorm:"not null"`
	Role         string         `gorm:"not null"`
	Attributes   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null"`
}

type ReadingModel struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	VehicleID  string         `gorm:"not null;index"`
	RecordedAt time.Time      `gorm:"not null;index"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
}
