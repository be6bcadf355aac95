package migrations

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaMigration は適用済みのマイグレーション
type SchemaMigration struct {
	ID        string `gorm:"primaryKey;size:32"`
	AppliedAt time.Time
}

type migration struct {
	ID string
	Up func(tx *gorm.DB) error
}

var registry []migration

func register(id string, up func(tx *gorm.DB) error) {
	registry = append(registry, migration{ID: id, Up: up})
}

// Run は未適用のマイグレーションをID順に実行します。
func Run(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("schema_migrations: %w", err)
	}

	pending := make([]migration, len(registry))
	copy(pending, registry)
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	for _, m := range pending {
		var count int64
		if err := db.Model(&SchemaMigration{}).Where("id = ?", m.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{ID: m.ID, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			logger.Error("Migration failed", zap.String("ID", m.ID), zap.Error(err))
			return fmt.Errorf("migration %s: %w", m.ID, err)
		}
		logger.Info("Migration applied", zap.String("ID", m.ID))
	}
	return nil
}
