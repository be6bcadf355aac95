package database

import (
	"time"

	"mazeserver/models"

	"gorm.io/gorm"
)

// HistoryStore は対戦履歴をPostgreSQLに保存します。
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) RecordMatch(rec models.MatchRecord) error {
	return s.db.Create(&rec).Error
}

// PurgeBefore は指定時刻より前に終了した履歴を削除し、削除件数を返します。
func (s *HistoryStore) PurgeBefore(t time.Time) (int64, error) {
	result := s.db.Unscoped().Where("ended_at < ?", t).Delete(&models.MatchRecord{})
	return result.RowsAffected, result.Error
}

// CountSince は指定時刻以降に終了した対戦の数を結果別に返します。
func (s *HistoryStore) CountSince(t time.Time) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Count   int64
	}
	err := s.db.Model(&models.MatchRecord{}).
		Select("outcome, count(*) as count").
		Where("ended_at >= ?", t).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.Count
	}
	return out, nil
}
