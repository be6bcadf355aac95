package lobby

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"mazeserver/models"
)

func (s *LobbySuite) TestAllocateInviteCodeNeverReclaimsByDefault() {
	s.online("alice", "bob")
	s.Equal(1, s.lobby.AllocateInviteCode())
	s.Equal(2, s.lobby.AllocateInviteCode())

	s.invitedMatch("alice", "bob") // コード3を使用
	s.Equal(4, s.lobby.AllocateInviteCode())
}

func (s *LobbySuite) TestAllocateInviteCodeReclaim() {
	opts := testOptions()
	opts.ReclaimInviteCodes = true
	opts.Notifier = s.notifier
	l, err := New(opts)
	s.Require().NoError(err)
	s.lobby = l
	s.online("alice", "bob")

	code := l.AllocateInviteCode()
	s.Equal(1, code)
	s.Require().NoError(l.SendInvite("alice", "bob", code))
	s.Require().NoError(l.Refuse("bob", code))

	s.Equal(1, l.AllocateInviteCode())
	s.Equal(2, l.AllocateInviteCode())
}

func (s *LobbySuite) TestSendInviteValidation() {
	s.online("alice", "bob", "carol", "dave")
	s.invitedMatch("carol", "dave")

	s.ErrorIs(s.lobby.SendInvite("alice", "alice", 1), ErrInviteSelf)
	s.ErrorIs(s.lobby.SendInvite("alice", "nobody", 1), ErrReceiverOffline)
	s.ErrorIs(s.lobby.SendInvite("alice", "carol", 1), ErrReceiverBusy)
	s.ErrorIs(s.lobby.SendInvite("ghost", "bob", 1), ErrUserNotFound)

	s.NoError(s.lobby.SendInvite("alice", "bob", 5))
	s.ErrorIs(s.lobby.SendInvite("alice", "bob", 6), ErrAlreadyInvited)

	sent := s.notifier.find(models.EventSent)
	s.Require().NotEmpty(sent)
	s.Equal("conn-alice", sent[len(sent)-1].ConnID)
	s.Equal("Invitation sent to bob", sent[len(sent)-1].Data)

	recv := s.notifier.find(models.EventReceiveInvite)
	s.Equal(models.ReceiveInvitePayload{Sender: "alice", Code: 5}, recv[len(recv)-1].Data)
}

func (s *LobbySuite) TestAcceptFormsMatch() {
	s.online("alice", "bob")
	code := s.lobby.AllocateInviteCode()
	s.Require().NoError(s.lobby.SendInvite("alice", "bob", code))

	a, err := s.lobby.Accept("bob", code)
	s.Require().NoError(err)
	s.Equal(models.Assignment{MatchIndex: 1, PlayerNum: 2, OtherPlayer: "alice"}, a)

	s.Equal(models.Busy, s.availability("alice"))
	s.Equal(models.Busy, s.availability("bob"))
	u, _ := s.lobby.Lookup("bob")
	s.Empty(u.Invitations)

	room := models.RoomName(a.MatchIndex)
	s.ElementsMatch([]string{"conn-alice", "conn-bob"}, s.notifier.joined[room])

	accepted := s.notifier.find(models.EventInviteAccepted)
	s.Require().Len(accepted, 1)
	s.Equal("conn-alice", accepted[0].ConnID)
	s.Equal(models.InviteAcceptedPayload{Receiver: "bob", PlayerNum: 1, MatchIndex: 1}, accepted[0].Data)

	joined := s.notifier.find(models.EventLobbyJoined)
	s.Require().Len(joined, 1)
	s.Equal(models.LobbyJoinedPayload{Sender: "alice", PlayerNum: 2, MatchIndex: 1}, joined[0].Data)

	s.Len(s.notifier.find(models.EventGetRoom), 2)
}

func (s *LobbySuite) TestAcceptWithUnknownCode() {
	s.online("alice", "bob")
	s.Require().NoError(s.lobby.SendInvite("alice", "bob", 1))

	_, err := s.lobby.Accept("bob", 99)
	s.ErrorIs(err, ErrInviteNotFound)

	s.Equal(models.Available, s.availability("alice"))
	s.Equal(models.Available, s.availability("bob"))
	s.Equal(map[string]int{}, s.lobby.Stats().Matches)
}

func (s *LobbySuite) TestAcceptWhenSenderBusy() {
	s.online("alice", "bob", "carol")
	s.Require().NoError(s.lobby.SendInvite("alice", "bob", 1))
	s.invitedMatch("alice", "carol")

	_, err := s.lobby.Accept("bob", 1)
	s.ErrorIs(err, ErrSenderBusy)
	s.Equal(models.Available, s.availability("bob"))
}

func (s *LobbySuite) TestAcceptWhenReceiverPending() {
	s.online("alice", "bob")
	s.Require().NoError(s.lobby.SendInvite("alice", "bob", 1))
	s.Require().NoError(s.lobby.SetPending("bob"))

	_, err := s.lobby.Accept("bob", 1)
	s.ErrorIs(err, ErrNotAvailable)
	s.Equal(models.Available, s.availability("alice"))
}

func (s *LobbySuite) TestRefuse() {
	s.online("alice", "bob")
	s.Require().NoError(s.lobby.SendInvite("alice", "bob", 3))

	s.NoError(s.lobby.Refuse("bob", 3))
	s.ErrorIs(s.lobby.Refuse("bob", 3), ErrInviteNotFound)

	refused := s.notifier.find(models.EventInviteRefused)
	s.Require().Len(refused, 1)
	s.Equal("conn-alice", refused[0].ConnID)
	s.Equal("bob refused your invite.", refused[0].Data)
	s.Equal(models.Available, s.availability("alice"))

	// 拒否後は再度招待できる
	s.NoError(s.lobby.SendInvite("alice", "bob", 4))
}

func TestInviteErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrInviteSelf, "Failed: You can't invite yourself."},
		{ErrReceiverOffline, "Failed: Your friend is not online."},
		{ErrReceiverBusy, "Failed: bob is already playing."},
		{ErrAlreadyInvited, "Failed: You already invited bob."},
		{ErrInviteNotFound, "Failed: Your friend disconnected."},
		{ErrSenderBusy, "Failed: Your friend is already playing."},
		{errors.New("boom"), "Failed: boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InviteErrorMessage(tt.err, "bob"))
	}
}
