package lobby

import (
	"time"

	"go.uber.org/zap"

	"mazeserver/maze"
	"mazeserver/models"
)

// StartStatus は相手の準備状況
type StartStatus struct {
	OtherPlayer string
	OtherReady  bool
}

// slotFor は対戦と枠を検証して返します。usernameが空の場合は枠番号のみで判定します。
func (l *Lobby) slotFor(matchID uint64, playerNum int, username string) (*models.Match, *models.PlayerSlot, error) {
	m := l.matches.get(matchID)
	if m == nil {
		return nil, nil, ErrMatchNotFound
	}
	slot := m.Slot(playerNum)
	if slot == nil || (username != "" && slot.Username != username) {
		return m, nil, ErrNotInMatch
	}
	return m, slot, nil
}

// SelectCharacter は枠にキャラクターを割り当てます。
// 相手が同じキャラクターを選んでいる場合はErrAlreadySelected、既に選択済みの場合はErrCharacterLockedを返します。
func (l *Lobby) SelectCharacter(matchID uint64, playerNum int, username string, character models.Character) error {
	if !character.Valid() {
		return ErrInvalidCharacter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, slot, err := l.slotFor(matchID, playerNum, username)
	if err != nil {
		return err
	}
	if m.State != models.CharacterSelection && m.State != models.AwaitingReady {
		return ErrInvalidTransition
	}
	if m.Other(playerNum).Character == character {
		return ErrAlreadySelected
	}
	if slot.Character != "" {
		return ErrCharacterLocked
	}
	slot.Character = character
	l.logger.Info("Character selected",
		zap.Uint64("MatchID", matchID),
		zap.String("Username", slot.Username),
		zap.String("Character", string(character)))
	return nil
}

// MarkReady は枠を準備完了にします。最初の準備完了で迷路を生成し、
// 枠2が後から準備完了した場合は一定時間後に生成済みか再確認します。
func (l *Lobby) MarkReady(matchID uint64, playerNum int, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, slot, err := l.slotFor(matchID, playerNum, username)
	if err != nil {
		return err
	}

	switch m.State {
	case models.Active:
		return nil
	case models.CharacterSelection:
		if err := m.Transition(models.AwaitingReady); err != nil {
			return err
		}
	case models.AwaitingReady:
	default:
		return ErrInvalidTransition
	}
	if slot.Ready {
		return nil
	}
	slot.Ready = true

	if !m.Other(playerNum).Ready {
		l.ensureMaze(m)
		return nil
	}

	if playerNum == 2 {
		id := m.ID
		time.AfterFunc(l.opts.MazeDelay, func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if m := l.matches.get(id); m != nil {
				l.ensureMaze(m)
			}
		})
	} else {
		l.ensureMaze(m)
	}
	if err := m.Transition(models.Active); err != nil {
		return err
	}
	l.logger.Info("Match started", zap.Uint64("MatchID", m.ID))
	return nil
}

// ensureMaze は未生成の場合のみ迷路を生成します。
func (l *Lobby) ensureMaze(m *models.Match) {
	if m.Layout != nil {
		return
	}
	layout, err := maze.Generate(l.opts.MazeCols, l.opts.MazeRows, l.opts.CellSize, l.rng)
	if err != nil {
		l.logger.Error("Failed to generate maze", zap.Uint64("MatchID", m.ID), zap.Error(err))
		return
	}
	m.Layout = layout
	l.logger.Info("Maze generated", zap.Uint64("MatchID", m.ID), zap.Int("Edges", len(layout.Maze.Edges)))
}

// Start は相手が準備完了かを返します。
func (l *Lobby) Start(matchID uint64, playerNum int, username string) (StartStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, _, err := l.slotFor(matchID, playerNum, username)
	if err != nil {
		return StartStatus{}, err
	}
	other := m.Other(playerNum)
	return StartStatus{OtherPlayer: other.Username, OtherReady: other.Ready}, nil
}

// Maze はクライアント向けにシリアライズされた迷路を返します。
func (l *Lobby) Maze(matchID uint64) (maze.Serialized, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := l.matches.get(matchID)
	if m == nil {
		return maze.Serialized{}, ErrMatchNotFound
	}
	if m.Layout == nil {
		return maze.Serialized{}, ErrMazeNotReady
	}
	return m.Layout.Serialize(), nil
}

// memberMatch はユーザーが参加している対戦を返します。
func (l *Lobby) memberMatch(matchID uint64, username string) (*models.Match, error) {
	m := l.matches.get(matchID)
	if m == nil {
		return nil, ErrMatchNotFound
	}
	if !m.Has(username) {
		return nil, ErrNotInMatch
	}
	return m, nil
}

// RoomFor はリレーの転送先となるルームを返します。対戦が存在しなければErrMatchNotFound
func (l *Lobby) RoomFor(matchID uint64, username string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.memberMatch(matchID, username)
	if err != nil {
		return "", err
	}
	return m.RoomID, nil
}

// JoinRoom は接続を自分の対戦のルームに参加させます。
func (l *Lobby) JoinRoom(username, connID, room string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := l.matches.findByUser(username)
	if m == nil {
		return ErrMatchNotFound
	}
	if m.RoomID != room {
		return ErrNotInMatch
	}
	if l.notifier != nil {
		l.notifier.JoinRoom(connID, room)
	}
	return nil
}

// ReportGameOver は対戦を終了し、ルームに通知してから閉じます。
func (l *Lobby) ReportGameOver(matchID uint64, username string, loserSlot int, connID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.memberMatch(matchID, username)
	if err != nil {
		return err
	}
	if err := l.finishMatch(m, models.Completed, loserSlot, ""); err != nil {
		return err
	}
	l.emitRoom(m.RoomID, connID, models.EventSetGameover, nil)
	if l.notifier != nil {
		l.notifier.CloseRoom(m.RoomID)
	}
	return nil
}

// ReportEscaped は脱出をルームに通知します。対戦は終了しません。
func (l *Lobby) ReportEscaped(matchID uint64, username, connID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.memberMatch(matchID, username)
	if err != nil {
		return err
	}
	l.emitRoom(m.RoomID, connID, models.EventSetEscaped, nil)
	return nil
}
