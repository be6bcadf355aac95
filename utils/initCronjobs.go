package utils

import (
	"context"
	"time"

	"mazeserver/lobby"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StatsSource は定期的に記録する統計情報の取得元
type StatsSource interface {
	Stats() lobby.Stats
}

// SessionSweeper は期限切れのセッションを削除します。
type SessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// HistoryPurger は古い対戦履歴を削除し、直近の集計を返します。
type HistoryPurger interface {
	PurgeBefore(t time.Time) (int64, error)
	CountSince(t time.Time) (map[string]int64, error)
}

// StartCronJobs は定期ジョブを登録して開始します。historyがnilの場合は履歴の削除を行いません。
func StartCronJobs(stats StatsSource, sessions SessionSweeper, history HistoryPurger, retention time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	// ロビーの状況を1分ごとに記録
	if _, err := c.AddFunc("@every 1m", func() { logStats(stats, logger) }); err != nil {
		return nil, err
	}

	// 期限切れのセッションを削除
	if _, err := c.AddFunc("@hourly", func() { sweepSessions(sessions, logger) }); err != nil {
		return nil, err
	}

	// 保存期間を過ぎた履歴を削除するジョブ（"分 時 日 月 曜日"）
	if history != nil {
		if _, err := c.AddFunc("0 3 * * *", func() { purgeHistory(history, retention, logger) }); err != nil {
			return nil, err
		}
	}

	c.Start()
	return c, nil
}

func logStats(stats StatsSource, logger *zap.Logger) {
	st := stats.Stats()
	logger.Info("Lobby stats",
		zap.Any("users", st.Users),
		zap.Any("matches", st.Matches))
}

func sweepSessions(sessions SessionSweeper, logger *zap.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := sessions.Sweep(ctx)
	if err != nil {
		logger.Error("Failed to sweep sessions", zap.Error(err))
		return 0
	}
	remaining, err := sessions.Count(ctx)
	if err != nil {
		logger.Error("Failed to count sessions", zap.Error(err))
	}
	logger.Info("Session sweep complete", zap.Int("removed", removed), zap.Int("remaining", remaining))
	return removed
}

func purgeHistory(history HistoryPurger, retention time.Duration, logger *zap.Logger) int64 {
	logger.Info("古い対戦履歴を削除する処理を開始")
	deleted, err := history.PurgeBefore(time.Now().Add(-retention))
	if err != nil {
		logger.Error("対戦履歴の削除に失敗しました", zap.Error(err))
		return 0
	}
	logger.Info("対戦履歴の削除完了", zap.Int64("records_deleted", deleted))

	// 直近24時間の結果別の対戦数
	counts, err := history.CountSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		logger.Error("Failed to count recent matches", zap.Error(err))
		return deleted
	}
	logger.Info("Matches in the last 24h", zap.Any("outcomes", counts))
	return deleted
}
