package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrIllegalTransition は遷移表に存在しない状態遷移を試みた場合のエラー
var ErrIllegalTransition = errors.New("illegal state transition")

// Availability はユーザーの対戦可能状態
type Availability int

const (
	Available Availability = iota // 待機中（誰とも対戦していない）
	Pending                       // ランダムマッチング中
	Busy                          // 対戦中
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Pending:
		return "pending"
	case Busy:
		return "busy"
	default:
		return fmt.Sprintf("availability(%d)", int(a))
	}
}

// 許可される遷移の一覧
var availabilityTransitions = map[Availability][]Availability{
	Available: {Pending, Busy},
	Pending:   {Available, Busy},
	Busy:      {Available},
}

func (a Availability) CanTransitionTo(next Availability) bool {
	for _, allowed := range availabilityTransitions[a] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Invitation は受信した招待
type Invitation struct {
	InvitedBy string `json:"invitedBy"`
	Code      int    `json:"code"`
}

// User はオンライン中のユーザー。usernameがキーになる
type User struct {
	Username     string
	ConnID       string // WebSocket接続ID。最初に確認された接続のみ紐づける
	Availability Availability
	Invitations  []Invitation
	RegisteredAt time.Time
}

// SetAvailability は遷移表を検証してから状態を更新します。
func (u *User) SetAvailability(next Availability) error {
	if u.Availability == next {
		return nil
	}
	if !u.Availability.CanTransitionTo(next) {
		return fmt.Errorf("%w: user %s %s -> %s", ErrIllegalTransition, u.Username, u.Availability, next)
	}
	u.Availability = next
	return nil
}

// FindInvitation は招待コードから受信済みの招待を探します。
func (u *User) FindInvitation(code int) (Invitation, bool) {
	for _, inv := range u.Invitations {
		if inv.Code == code {
			return inv, true
		}
	}
	return Invitation{}, false
}

func (u *User) HasInvitationFrom(sender string) bool {
	for _, inv := range u.Invitations {
		if inv.InvitedBy == sender {
			return true
		}
	}
	return false
}

// RemoveInvitation は指定コードの招待を削除し、削除できたかを返します。
func (u *User) RemoveInvitation(code int) bool {
	for i, inv := range u.Invitations {
		if inv.Code == code {
			u.Invitations = append(u.Invitations[:i], u.Invitations[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveInvitationsFrom は送信者からの招待を全て削除し、削除した招待を返します。
func (u *User) RemoveInvitationsFrom(sender string) []Invitation {
	var removed []Invitation
	kept := u.Invitations[:0]
	for _, inv := range u.Invitations {
		if inv.InvitedBy == sender {
			removed = append(removed, inv)
			continue
		}
		kept = append(kept, inv)
	}
	u.Invitations = kept
	return removed
}
