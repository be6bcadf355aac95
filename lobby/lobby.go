package lobby

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"mazeserver/maze"
	"mazeserver/models"
)

// Notifier はリアルタイム通知の送信先。relay.Hubが実装します。
// Lobbyはロックを保持したまま呼び出すため、実装はブロックしてはならず、Lobbyを呼び返してもいけない
type Notifier interface {
	Emit(connID, event string, data any)
	JoinRoom(connID, room string)
	EmitRoom(room, exceptConnID, event string, data any)
	CloseRoom(room string)
}

// HistoryRecorder は終了した対戦を保存します。
type HistoryRecorder interface {
	RecordMatch(rec models.MatchRecord) error
}

type Options struct {
	PendingTimeout     time.Duration
	MazeDelay          time.Duration
	ReclaimInviteCodes bool
	MazeCols           int
	MazeRows           int
	CellSize           float64
	Rand               *rand.Rand
	Notifier           Notifier
	History            HistoryRecorder
	Logger             *zap.Logger
}

// OptionsFromConfig は設定ファイルの値からOptionsを作ります。
func OptionsFromConfig(cfg models.Config) Options {
	return Options{
		PendingTimeout:     cfg.Lobby.PendingTimeout(),
		MazeDelay:          cfg.Lobby.MazeDelay(),
		ReclaimInviteCodes: cfg.Lobby.ReclaimInviteCodes,
		MazeCols:           cfg.Maze.Cols,
		MazeRows:           cfg.Maze.Rows,
		CellSize:           cfg.Maze.CellSize,
	}
}

// Lobby はユーザー登録、招待、マッチメイキング、対戦セッションを管理します。
// 全ての操作は1つのミューテックスの下で最後まで実行されます。
type Lobby struct {
	mu       sync.Mutex
	opts     Options
	users    *userRegistry
	matches  *matchStore
	codes    *codePool
	rng      *rand.Rand
	notifier Notifier
	history  HistoryRecorder
	logger   *zap.Logger
}

func New(opts Options) (*Lobby, error) {
	if opts.MazeCols*opts.MazeRows < maze.PressurePlateCount(opts.MazeCols*opts.MazeRows)+1 {
		return nil, fmt.Errorf("%w: %dx%d", maze.ErrGridTooSmall, opts.MazeCols, opts.MazeRows)
	}
	if opts.Rand == nil {
		opts.Rand = maze.NewLocalRand()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Lobby{
		opts:     opts,
		users:    newUserRegistry(),
		matches:  newMatchStore(),
		codes:    newCodePool(opts.ReclaimInviteCodes),
		rng:      opts.Rand,
		notifier: opts.Notifier,
		history:  opts.History,
		logger:   opts.Logger,
	}, nil
}

// SetNotifier は起動時にリレーのHubを接続するために使います。
func (l *Lobby) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifier = n
}

func (l *Lobby) emit(u *models.User, event string, data any) {
	if l.notifier == nil || u == nil || u.ConnID == "" {
		return
	}
	l.notifier.Emit(u.ConnID, event, data)
}

func (l *Lobby) emitRoom(room, exceptConnID, event string, data any) {
	if l.notifier == nil {
		return
	}
	l.notifier.EmitRoom(room, exceptConnID, event, data)
}

// createMatch は2人のユーザーで対戦を作成し、ルームに参加させます。
// player1, player2ともに存在していることを呼び出し側で確認済みであること
func (l *Lobby) createMatch(p1, p2 *models.User, pairing models.Pairing) (*models.Match, error) {
	prev := p1.Availability
	if err := p1.SetAvailability(models.Busy); err != nil {
		return nil, err
	}
	if err := p2.SetAvailability(models.Busy); err != nil {
		p1.Availability = prev
		return nil, err
	}

	m := &models.Match{
		Player1:   models.PlayerSlot{Username: p1.Username},
		Player2:   models.PlayerSlot{Username: p2.Username},
		State:     models.Forming,
		Pairing:   pairing,
		CreatedAt: time.Now(),
	}
	l.matches.insert(m)
	m.RoomID = models.RoomName(m.ID)

	if l.notifier != nil {
		for _, u := range []*models.User{p1, p2} {
			if u.ConnID != "" {
				l.notifier.JoinRoom(u.ConnID, m.RoomID)
			}
		}
	}
	if err := m.Transition(models.CharacterSelection); err != nil {
		return nil, err
	}

	l.logger.Info("Match created",
		zap.Uint64("MatchID", m.ID),
		zap.String("Player1", p1.Username),
		zap.String("Player2", p2.Username),
		zap.String("Pairing", string(pairing)))
	return m, nil
}

// finishMatch は対戦を終了状態に遷移させて取り除き、残ったユーザーを待機中に戻します。
func (l *Lobby) finishMatch(m *models.Match, state models.MatchState, loserSlot int, disconnectedBy string) error {
	if !state.Terminal() {
		return ErrInvalidTransition
	}
	if err := m.Transition(state); err != nil {
		return err
	}
	l.matches.remove(m.ID)

	for _, name := range []string{m.Player1.Username, m.Player2.Username} {
		if u := l.users.get(name); u != nil && u.Availability == models.Busy {
			if err := u.SetAvailability(models.Available); err != nil {
				l.logger.Warn("Failed to free user", zap.String("Username", name), zap.Error(err))
			}
		}
	}

	l.logger.Info("Match finished",
		zap.Uint64("MatchID", m.ID),
		zap.String("State", state.String()),
		zap.String("DisconnectedBy", disconnectedBy))

	if l.history != nil {
		rec := models.NewMatchRecord(m, loserSlot, disconnectedBy)
		go func() {
			if err := l.history.RecordMatch(rec); err != nil {
				l.logger.Error("Failed to record match", zap.Uint64("MatchID", rec.MatchID), zap.Error(err))
			}
		}()
	}
	return nil
}

// Stats は状態ごとのユーザー数と対戦数
type Stats struct {
	TotalUsers int            `json:"totalUsers"`
	Users      map[string]int `json:"users"`
	Matches    map[string]int `json:"matches"`
}

func (l *Lobby) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{
		TotalUsers: l.users.len(),
		Users: map[string]int{
			models.Available.String(): 0,
			models.Pending.String():   0,
			models.Busy.String():      0,
		},
		Matches: make(map[string]int),
	}
	l.users.each(func(u *models.User) bool {
		s.Users[u.Availability.String()]++
		return true
	})
	for _, m := range l.matches.matches {
		s.Matches[m.State.String()]++
	}
	return s
}
