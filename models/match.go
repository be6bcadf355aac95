package models

import (
	"fmt"
	"time"

	"mazeserver/maze"
)

// Character はプレイヤーが選択するキャラクター
type Character string

const (
	Survivor Character = "survivor"
	Monster  Character = "monster"
)

func (c Character) Valid() bool {
	return c == Survivor || c == Monster
}

// MatchState は対戦セッションの状態
type MatchState int

const (
	Forming MatchState = iota
	CharacterSelection
	AwaitingReady
	Active
	Completed
	Aborted
)

func (s MatchState) String() string {
	switch s {
	case Forming:
		return "forming"
	case CharacterSelection:
		return "character_selection"
	case AwaitingReady:
		return "awaiting_ready"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var matchTransitions = map[MatchState][]MatchState{
	Forming:            {CharacterSelection, Aborted},
	CharacterSelection: {AwaitingReady, Aborted},
	AwaitingReady:      {Active, Completed, Aborted},
	Active:             {Completed, Aborted},
}

func (s MatchState) CanTransitionTo(next MatchState) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal は終了状態かどうか
func (s MatchState) Terminal() bool {
	return s == Completed || s == Aborted
}

// PlayerSlot は対戦内のプレイヤー枠（1または2）
type PlayerSlot struct {
	Username  string    `json:"username"`
	Character Character `json:"character,omitempty"`
	Ready     bool      `json:"ready"`
}

// Pairing はマッチがどの経路で作成されたか
type Pairing string

const (
	PairingInvite      Pairing = "invite"
	PairingMatchmaking Pairing = "matchmaking"
)

// Match は1つの対戦セッション。IDは作成順に単調増加する
type Match struct {
	ID        uint64
	Player1   PlayerSlot
	Player2   PlayerSlot
	State     MatchState
	RoomID    string
	Pairing   Pairing
	Layout    *maze.Layout // 最初のready時に生成
	CreatedAt time.Time
	StartedAt time.Time
}

// RoomName はマッチIDからリレー用のルーム名を作ります。
func RoomName(id uint64) string {
	return fmt.Sprintf("match-%d", id)
}

// Slot はプレイヤー番号に対応する枠を返します。
func (m *Match) Slot(playerNum int) *PlayerSlot {
	switch playerNum {
	case 1:
		return &m.Player1
	case 2:
		return &m.Player2
	default:
		return nil
	}
}

// Other は相手側の枠を返します。
func (m *Match) Other(playerNum int) *PlayerSlot {
	switch playerNum {
	case 1:
		return &m.Player2
	case 2:
		return &m.Player1
	default:
		return nil
	}
}

// SlotOf はユーザー名が入っている枠の番号を返します。
func (m *Match) SlotOf(username string) (int, bool) {
	switch username {
	case m.Player1.Username:
		return 1, true
	case m.Player2.Username:
		return 2, true
	default:
		return 0, false
	}
}

func (m *Match) Has(username string) bool {
	_, ok := m.SlotOf(username)
	return ok
}

// Transition は遷移表を検証してから状態を更新します。
func (m *Match) Transition(next MatchState) error {
	if !m.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: match %d %s -> %s", ErrIllegalTransition, m.ID, m.State, next)
	}
	m.State = next
	if next == Active {
		m.StartedAt = time.Now()
	}
	return nil
}

// Assignment はクライアントに返すマッチ割り当て
type Assignment struct {
	MatchIndex  uint64 `json:"matchIndex"`
	PlayerNum   int    `json:"playerNum"`
	OtherPlayer string `json:"otherPlayer"`
}

// AssignmentFor はユーザーから見た割り当てを作ります。
func (m *Match) AssignmentFor(username string) (Assignment, bool) {
	num, ok := m.SlotOf(username)
	if !ok {
		return Assignment{}, false
	}
	return Assignment{
		MatchIndex:  m.ID,
		PlayerNum:   num,
		OtherPlayer: m.Other(num).Username,
	}, true
}
