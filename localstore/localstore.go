// Package localstore keeps cart slots in a local SQLite file for single-host
// deployments that run without Postgres.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"table-order/cart"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type slotRow struct {
	SlotKey   string `gorm:"primaryKey"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (slotRow) TableName() string { return "table_slots" }

type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&slotRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var row slotRow
	err := s.db.WithContext(ctx).Where("slot_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrSlotEmpty
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	row := slotRow{SlotKey: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("slot_key = ?", key).Delete(&slotRow{}).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
