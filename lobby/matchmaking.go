package lobby

import (
	"time"

	"go.uber.org/zap"

	"mazeserver/models"
)

// PollResult はマッチメイキングのポーリング結果。
// Assignmentがnilの場合、Expiredなら待機状態が解除されており、それ以外は待機継続
type PollResult struct {
	Assignment *models.Assignment
	Expired    bool
}

// SetPending はユーザーをマッチメイキングの待機状態にし、タイムアウトを設定します。
func (l *Lobby) SetPending(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.users.get(username)
	if u == nil {
		return ErrUserNotFound
	}
	if u.Availability != models.Available {
		return ErrNotAvailable
	}
	if err := u.SetAvailability(models.Pending); err != nil {
		return err
	}
	l.logger.Info("User entered matchmaking", zap.String("Username", username))

	// キャンセルはしない。発火時に状態を確認する
	time.AfterFunc(l.opts.PendingTimeout, func() { l.expirePending(u) })
	return nil
}

func (l *Lobby) expirePending(u *models.User) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.users.get(u.Username) != u || u.Availability != models.Pending {
		return
	}
	if err := u.SetAvailability(models.Available); err != nil {
		l.logger.Error("Failed to expire pending state", zap.String("Username", u.Username), zap.Error(err))
		return
	}
	l.logger.Info("Pending state timed out", zap.String("Username", u.Username))
}

// Poll はマッチメイキングの状況を確認し、待機中の相手がいれば対戦を作成します。
// 相手の探索は登録順で最初に見つかったユーザーを選びます。
func (l *Lobby) Poll(username string) (PollResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.users.get(username)
	if u == nil {
		return PollResult{}, ErrUserNotFound
	}

	// 相手側のポーリングで既に対戦が作られている
	if m := l.matches.findByUser(username); m != nil {
		a, _ := m.AssignmentFor(username)
		return PollResult{Assignment: &a}, nil
	}

	if u.Availability != models.Pending {
		return PollResult{Expired: true}, nil
	}

	var found *models.User
	l.users.each(func(other *models.User) bool {
		if other != u && other.Availability == models.Pending {
			found = other
			return false
		}
		return true
	})
	if found == nil {
		return PollResult{}, nil
	}

	m, err := l.createMatch(u, found, models.PairingMatchmaking)
	if err != nil {
		return PollResult{}, err
	}

	if theirs, ok := m.AssignmentFor(found.Username); ok {
		l.emit(found, models.EventMatchFound, theirs)
	}
	l.emitRoom(m.RoomID, "", models.EventGetRoom, m.RoomID)

	a, _ := m.AssignmentFor(username)
	return PollResult{Assignment: &a}, nil
}
