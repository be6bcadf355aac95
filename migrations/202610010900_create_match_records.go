package migrations

import (
	"time"

	"gorm.io/gorm"
)

// この時点のmatch_recordsの定義
type matchRecord202610010900 struct {
	gorm.Model
	MatchID        uint64 `gorm:"index"`
	Player1        string `gorm:"size:64"`
	Player2        string `gorm:"size:64"`
	Character1     string `gorm:"size:16"`
	Character2     string `gorm:"size:16"`
	Pairing        string `gorm:"size:16"`
	Outcome        string `gorm:"size:16"`
	LoserSlot      int
	DisconnectedBy string `gorm:"size:64"`
	StartedAt      *time.Time
	EndedAt        time.Time `gorm:"index"`
}

func (matchRecord202610010900) TableName() string {
	return "match_records"
}

func init() {
	register("202610010900", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&matchRecord202610010900{})
	})
}
