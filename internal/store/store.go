// Package store persists best-effort room snapshots for crash recovery. It
// sits strictly off the critical path: the session layer never waits on it.
package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chaseparty/chase-backend/internal/game"
)

// RoomSnapshot is one persisted room. Payload is the session layer's own
// JSON document; the store round-trips it without interpreting it.
type RoomSnapshot struct {
	ID        uint   `gorm:"primarykey"`
	Code      string `gorm:"uniqueIndex;size:6"`
	Status    string `gorm:"size:16"`
	Payload   []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RoomSnapshot{}); err != nil {
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

// SaveAll upserts the given records and deletes rows for rooms that no
// longer exist, so the table mirrors the live room set after each cycle.
func (s *Store) SaveAll(ctx context.Context, recs []game.SnapshotRecord) error {
	codes := make([]string, 0, len(recs))
	for _, rec := range recs {
		codes = append(codes, rec.Code)
		row := RoomSnapshot{Code: rec.Code, Status: rec.Status, Payload: rec.Payload}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "payload", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}

	q := s.db.WithContext(ctx)
	if len(codes) > 0 {
		q = q.Where("code NOT IN ?", codes)
	} else {
		q = q.Where("1 = 1")
	}
	return q.Delete(&RoomSnapshot{}).Error
}

// LoadAll returns every persisted snapshot, for restore-on-startup.
func (s *Store) LoadAll(ctx context.Context) ([]game.SnapshotRecord, error) {
	var rows []RoomSnapshot
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	recs := make([]game.SnapshotRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, game.SnapshotRecord{
			Code:    row.Code,
			Status:  row.Status,
			Payload: row.Payload,
		})
	}
	return recs, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
