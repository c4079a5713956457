package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fleetwatch/pkg/domain"
)

const migrateLockID int64 = 52095209

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ReadingModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateUser inserts a new account. Duplicate usernames map to
// ErrUsernameTaken; the insert is atomic either way.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// GetUserByUsername looks up an account by its unique username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns an account by ID.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// InsertReading appends one telemetry record. RecordedAt is the server's
// current time; the insert either fully persists or leaves no row behind.
func (s *GormStore) InsertReading(vehicleID string, payload json.RawMessage) (int64, error) {
	model := ReadingModel{
		VehicleID:  vehicleID,
		RecordedAt: time.Now().UTC(),
		Payload:    datatypes.JSON(payload),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return 0, err
	}
	return model.ID, nil
}

// ListRecentReadings returns up to limit readings, newest first by ID.
func (s *GormStore) ListRecentReadings(limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		return []domain.Reading{}, nil
	}
	var models []ReadingModel
	if err := s.db.Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Reading, 0, len(models))
	for _, m := range models {
		res = append(res, readingFromModel(m))
	}
	return res, nil
}

// ListLatestReadingPerVehicle returns the max-ID reading for each distinct
// vehicle. The join keys on MAX(id), not MAX(recorded_at), so that readings
// sharing a timestamp resolve deterministically.
func (s *GormStore) ListLatestReadingPerVehicle() ([]domain.Reading, error) {
	var models []ReadingModel
	sub := s.db.Model(&ReadingModel{}).
		Select("vehicle_id, MAX(id) AS max_id").
		Group("vehicle_id")
	if err := s.db.Model(&ReadingModel{}).
		Joins("JOIN (?) latest ON reading_models.id = latest.max_id", sub).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Reading, 0, len(models))
	for _, m := range models {
		res = append(res, readingFromModel(m))
	}
	return res, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 23505 = unique_violation; the postgres driver surfaces it in the text.
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key value")
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Attributes:   datatypes.JSON(u.Attributes),
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		Attributes:   json.RawMessage(m.Attributes),
		CreatedAt:    m.CreatedAt,
	}
}

func readingFromModel(m ReadingModel) domain.Reading {
	return domain.Reading{
		ID:         m.ID,
		VehicleID:  m.VehicleID,
		RecordedAt: m.RecordedAt,
		Payload:    json.RawMessage(m.Payload),
	}
}
