package lobby

import (
	"time"

	"mazeserver/models"
)

func (s *LobbySuite) TestRegister() {
	s.NoError(s.lobby.Register("alice"))
	s.ErrorIs(s.lobby.Register("alice"), ErrNameTaken)
	s.ErrorIs(s.lobby.Register("   "), ErrInvalidUsername)
	s.ErrorIs(s.lobby.Register("this-name-is-far-too-long-to-be-accepted"), ErrInvalidUsername)

	s.Equal(models.Available, s.availability("alice"))
}

func (s *LobbySuite) TestBindConnectionKeepsFirst() {
	s.Require().NoError(s.lobby.Register("alice"))
	s.NoError(s.lobby.BindConnection("alice", "c1"))
	s.NoError(s.lobby.BindConnection("alice", "c1"))
	s.ErrorIs(s.lobby.BindConnection("alice", "c2"), ErrAlreadyBound)

	u, _ := s.lobby.Lookup("alice")
	s.Equal("c1", u.ConnID)

	s.ErrorIs(s.lobby.BindConnection("ghost", "c3"), ErrUserNotFound)
}

func (s *LobbySuite) TestResumeAfterDisconnect() {
	s.online("alice")
	s.lobby.Disconnect("alice", "conn-alice")
	_, ok := s.lobby.Lookup("alice")
	s.Require().False(ok)

	s.NoError(s.lobby.Resume("alice", "conn-alice-2"))
	u, ok := s.lobby.Lookup("alice")
	s.Require().True(ok)
	s.Equal("conn-alice-2", u.ConnID)
	s.Equal(models.Available, u.Availability)

	// 再登録後は通常どおりマッチメイキングに参加できる
	s.NoError(s.lobby.SetPending("alice"))
}

func (s *LobbySuite) TestResumeRejectsTakenName() {
	s.online("alice")
	s.lobby.Disconnect("alice", "conn-alice")
	s.Require().NoError(s.lobby.Register("alice"))

	s.ErrorIs(s.lobby.Resume("alice", "conn-old-alice"), ErrNameTaken)
	u, _ := s.lobby.Lookup("alice")
	s.Empty(u.ConnID)

	s.ErrorIs(s.lobby.Resume("  ", "c"), ErrInvalidUsername)
}

func (s *LobbySuite) TestUnregisterPurgesInvitations() {
	s.online("alice", "bob", "carol")
	s.Require().NoError(s.lobby.SendInvite("alice", "bob", 1))
	s.Require().NoError(s.lobby.SendInvite("carol", "bob", 2))

	s.NoError(s.lobby.Unregister("alice"))
	s.ErrorIs(s.lobby.Unregister("alice"), ErrUserNotFound)

	u, _ := s.lobby.Lookup("bob")
	s.Equal([]models.Invitation{{InvitedBy: "carol", Code: 2}}, u.Invitations)

	// 名前は再登録できる
	s.NoError(s.lobby.Register("alice"))
}

func (s *LobbySuite) TestDisconnectAbortsMatch() {
	s.online("alice", "bob")
	a := s.invitedMatch("alice", "bob")

	s.lobby.Disconnect("alice", "conn-alice")

	_, ok := s.lobby.Lookup("alice")
	s.False(ok)
	s.Equal(models.Available, s.availability("bob"))

	_, err := s.lobby.Maze(a.MatchIndex)
	s.ErrorIs(err, ErrMatchNotFound)

	events := s.notifier.find(models.EventOpponentDisconnected)
	s.Require().Len(events, 1)
	s.Equal(models.RoomName(a.MatchIndex), events[0].Room)
	s.Equal("conn-alice", events[0].Except)
	s.Equal("alice", events[0].Data)
	s.Contains(s.notifier.closed, models.RoomName(a.MatchIndex))

	s.Eventually(func() bool { return s.recorder.count() == 1 }, time.Second, 5*time.Millisecond)
	s.recorder.mu.Lock()
	rec := s.recorder.records[0]
	s.recorder.mu.Unlock()
	s.Equal("aborted", rec.Outcome)
	s.Equal("alice", rec.DisconnectedBy)
}

func (s *LobbySuite) TestDisconnectIgnoresForeignConnection() {
	s.online("alice")
	s.lobby.Disconnect("alice", "someone-else")

	_, ok := s.lobby.Lookup("alice")
	s.True(ok)
}

func (s *LobbySuite) TestDisconnectPurgesSentInvitations() {
	s.online("alice", "bob")
	s.Require().NoError(s.lobby.SendInvite("alice", "bob", 7))

	s.lobby.Disconnect("alice", "conn-alice")

	u, _ := s.lobby.Lookup("bob")
	s.Empty(u.Invitations)
	_, err := s.lobby.Accept("bob", 7)
	s.ErrorIs(err, ErrInviteNotFound)
}

func (s *LobbySuite) TestStats() {
	s.online("alice", "bob", "carol")
	s.invitedMatch("alice", "bob")
	s.Require().NoError(s.lobby.SetPending("carol"))

	st := s.lobby.Stats()
	s.Equal(3, st.TotalUsers)
	s.Equal(map[string]int{"available": 0, "pending": 1, "busy": 2}, st.Users)
	s.Equal(map[string]int{"character_selection": 1}, st.Matches)
}

func (s *LobbySuite) TestFinishMatchRequiresTerminalState() {
	s.online("alice", "bob")
	a := s.invitedMatch("alice", "bob")

	s.lobby.mu.Lock()
	m := s.lobby.matches.get(a.MatchIndex)
	err := s.lobby.finishMatch(m, models.AwaitingReady, 0, "")
	s.lobby.mu.Unlock()

	s.ErrorIs(err, ErrInvalidTransition)
	s.Equal(models.CharacterSelection, m.State)
	s.Equal(models.Busy, s.availability("alice"))
}
