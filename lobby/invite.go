package lobby

import (
	"fmt"

	"go.uber.org/zap"

	"mazeserver/models"
)

// AllocateInviteCode は未使用の最小の招待コードを発行します。
func (l *Lobby) AllocateInviteCode() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.codes.allocate()
}

// SendInvite はreceiverの招待リストに追加し、双方に通知します。
func (l *Lobby) SendInvite(sender, receiver string, code int) error {
	if sender == receiver {
		return ErrInviteSelf
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.users.get(sender)
	if s == nil {
		return ErrUserNotFound
	}
	r := l.users.get(receiver)
	if r == nil {
		return ErrReceiverOffline
	}
	if r.Availability != models.Available {
		return ErrReceiverBusy
	}
	if r.HasInvitationFrom(sender) {
		return ErrAlreadyInvited
	}

	r.Invitations = append(r.Invitations, models.Invitation{InvitedBy: sender, Code: code})
	l.logger.Info("Invitation sent", zap.String("Sender", sender), zap.String("Receiver", receiver), zap.Int("Code", code))

	l.emit(s, models.EventSent, "Invitation sent to "+receiver)
	l.emit(r, models.EventReceiveInvite, models.ReceiveInvitePayload{Sender: sender, Code: code})
	return nil
}

// lookupInvitation はreceiverが受け取った招待と送信者を探します。
func (l *Lobby) lookupInvitation(receiver string, code int) (*models.User, *models.User, error) {
	r := l.users.get(receiver)
	if r == nil {
		return nil, nil, ErrUserNotFound
	}
	inv, ok := r.FindInvitation(code)
	if !ok {
		return r, nil, ErrInviteNotFound
	}
	s := l.users.get(inv.InvitedBy)
	if s == nil {
		return r, nil, ErrInviteNotFound
	}
	return r, s, nil
}

// Accept は招待を受け入れて対戦を作成します。送信者が枠1、受信者が枠2になります。
func (l *Lobby) Accept(receiver string, code int) (models.Assignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, s, err := l.lookupInvitation(receiver, code)
	if err != nil {
		return models.Assignment{}, err
	}
	if s.Availability != models.Available {
		return models.Assignment{}, ErrSenderBusy
	}
	if r.Availability != models.Available {
		return models.Assignment{}, ErrNotAvailable
	}

	m, err := l.createMatch(s, r, models.PairingInvite)
	if err != nil {
		return models.Assignment{}, fmt.Errorf("accept invitation %d: %w", code, err)
	}
	r.RemoveInvitation(code)
	l.codes.release(code)

	l.emit(s, models.EventInviteAccepted, models.InviteAcceptedPayload{Receiver: r.Username, PlayerNum: 1, MatchIndex: m.ID})
	l.emit(s, models.EventGetRoom, m.RoomID)
	l.emit(r, models.EventLobbyJoined, models.LobbyJoinedPayload{Sender: s.Username, PlayerNum: 2, MatchIndex: m.ID})
	l.emit(r, models.EventGetRoom, m.RoomID)

	a, _ := m.AssignmentFor(r.Username)
	return a, nil
}

// Refuse は招待を取り消して送信者に通知します。状態は変更しません。
func (l *Lobby) Refuse(receiver string, code int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, s, err := l.lookupInvitation(receiver, code)
	if err != nil {
		return err
	}
	r.RemoveInvitation(code)
	l.codes.release(code)

	l.logger.Info("Invitation refused", zap.String("Sender", s.Username), zap.String("Receiver", receiver))
	l.emit(s, models.EventInviteRefused, receiver+" refused your invite.")
	return nil
}
