package migrations

import "gorm.io/gorm"

// プレイヤー名での履歴検索用
func init() {
	register("202610081500", func(tx *gorm.DB) error {
		if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_match_records_player1 ON match_records (player1)").Error; err != nil {
			return err
		}
		return tx.Exec("CREATE INDEX IF NOT EXISTS idx_match_records_player2 ON match_records (player2)").Error
	})
}
