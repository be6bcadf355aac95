package lobby

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"mazeserver/models"
)

const maxUsernameLength = 32

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	return username, nil
}

// Register はユーザー名が空いていれば登録します。
func (l *Lobby) Register(username string) error {
	username, err := normalizeUsername(username)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.users.insert(newUser(username, "")) {
		return ErrNameTaken
	}
	l.logger.Info("User registered", zap.String("Username", username))
	return nil
}

func newUser(username, connID string) *models.User {
	return &models.User{
		Username:     username,
		ConnID:       connID,
		Availability: models.Available,
		RegisteredAt: time.Now(),
	}
}

// Resume はセッションIDで再接続したユーザーを接続付きで登録し直します。
// 切断時に登録は削除されているため、その間に同じ名前が登録されていればErrNameTakenを返します。
func (l *Lobby) Resume(username, connID string) error {
	username, err := normalizeUsername(username)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.users.insert(newUser(username, connID)) {
		return ErrNameTaken
	}
	l.logger.Info("User resumed", zap.String("Username", username), zap.String("ConnID", connID))
	return nil
}

// BindConnection はユーザーに接続IDを紐づけます。最初に確認された接続のみ有効で、
// 別の接続に紐づいている場合はErrAlreadyBoundを返します。
func (l *Lobby) BindConnection(username, connID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.users.get(username)
	if u == nil {
		return ErrUserNotFound
	}
	switch u.ConnID {
	case connID:
		return nil
	case "":
		u.ConnID = connID
		l.logger.Info("Connection bound", zap.String("Username", username), zap.String("ConnID", connID))
		return nil
	default:
		return ErrAlreadyBound
	}
}

// Unregister はユーザーを削除し、そのユーザーが送った招待を取り消します。
func (l *Lobby) Unregister(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.users.remove(username) == nil {
		return ErrUserNotFound
	}
	l.purgeInvitationsFrom(username)
	l.logger.Info("User unregistered", zap.String("Username", username))
	return nil
}

func (l *Lobby) purgeInvitationsFrom(sender string) {
	l.users.each(func(u *models.User) bool {
		for _, inv := range u.RemoveInvitationsFrom(sender) {
			l.codes.release(inv.Code)
		}
		return true
	})
}

// Disconnect は接続切断時の後処理です。
// 接続がユーザーに紐づいていれば登録を削除し、参加中の対戦を中断して相手を待機中に戻します。
func (l *Lobby) Disconnect(username, connID string) {
	if username == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.users.get(username)
	if u != nil {
		// 同名の別接続による切断は無視する
		if u.ConnID != connID {
			return
		}
		l.users.remove(username)
		l.purgeInvitationsFrom(username)
		l.logger.Info("User disconnected", zap.String("Username", username))
	}

	m := l.matches.findByUser(username)
	if m == nil {
		return
	}
	if err := l.finishMatch(m, models.Aborted, 0, username); err != nil {
		l.logger.Error("Failed to abort match", zap.Uint64("MatchID", m.ID), zap.Error(err))
		return
	}
	l.emitRoom(m.RoomID, connID, models.EventOpponentDisconnected, username)
	if l.notifier != nil {
		l.notifier.CloseRoom(m.RoomID)
	}
}

// Lookup はユーザーの状態のコピーを返します。
func (l *Lobby) Lookup(username string) (models.User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.users.get(username)
	if u == nil {
		return models.User{}, false
	}
	cp := *u
	cp.Invitations = append([]models.Invitation(nil), u.Invitations...)
	return cp, true
}
