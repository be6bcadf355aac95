package models

import (
	"time"

	"gorm.io/gorm"
)

// MatchRecord は終了した対戦の履歴
type MatchRecord struct {
	gorm.Model
	MatchID        uint64 `gorm:"index"`
	Player1        string `gorm:"size:64"`
	Player2        string `gorm:"size:64"`
	Character1     string `gorm:"size:16"`
	Character2     string `gorm:"size:16"`
	Pairing        string `gorm:"size:16"`
	Outcome        string `gorm:"size:16"` // completed, aborted
	LoserSlot      int
	DisconnectedBy string `gorm:"size:64"`
	StartedAt      *time.Time
	EndedAt        time.Time `gorm:"index"`
}

// NewMatchRecord は終了時点のマッチから履歴を作ります。
func NewMatchRecord(m *Match, loserSlot int, disconnectedBy string) MatchRecord {
	rec := MatchRecord{
		MatchID:        m.ID,
		Player1:        m.Player1.Username,
		Player2:        m.Player2.Username,
		Character1:     string(m.Player1.Character),
		Character2:     string(m.Player2.Character),
		Pairing:        string(m.Pairing),
		Outcome:        m.State.String(),
		LoserSlot:      loserSlot,
		DisconnectedBy: disconnectedBy,
		EndedAt:        time.Now(),
	}
	if !m.StartedAt.IsZero() {
		started := m.StartedAt
		rec.StartedAt = &started
	}
	return rec
}
