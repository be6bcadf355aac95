package lobby

import (
	"time"

	"mazeserver/models"
)

func (s *LobbySuite) TestSetPending() {
	s.online("alice", "bob")
	s.ErrorIs(s.lobby.SetPending("ghost"), ErrUserNotFound)

	s.NoError(s.lobby.SetPending("alice"))
	s.Equal(models.Pending, s.availability("alice"))
	s.ErrorIs(s.lobby.SetPending("alice"), ErrNotAvailable)
}

func (s *LobbySuite) TestPendingWatchdogReverts() {
	s.online("alice")
	s.Require().NoError(s.lobby.SetPending("alice"))

	s.Eventually(func() bool {
		return s.availability("alice") == models.Available
	}, time.Second, 5*time.Millisecond)

	res, err := s.lobby.Poll("alice")
	s.NoError(err)
	s.Nil(res.Assignment)
	s.True(res.Expired)
}

func (s *LobbySuite) TestPendingWatchdogDoesNotTouchMatchedUser() {
	s.online("alice", "bob")
	s.Require().NoError(s.lobby.SetPending("alice"))
	s.Require().NoError(s.lobby.SetPending("bob"))

	res, err := s.lobby.Poll("alice")
	s.Require().NoError(err)
	s.Require().NotNil(res.Assignment)

	time.Sleep(3 * s.lobby.opts.PendingTimeout)
	s.Equal(models.Busy, s.availability("alice"))
	s.Equal(models.Busy, s.availability("bob"))
}

func (s *LobbySuite) TestPollWaiting() {
	s.online("alice", "bob")
	s.Require().NoError(s.lobby.SetPending("alice"))

	res, err := s.lobby.Poll("alice")
	s.NoError(err)
	s.Nil(res.Assignment)
	s.False(res.Expired)
	s.Equal(models.Pending, s.availability("alice"))
}

func (s *LobbySuite) TestPollPairsFirstPendingUser() {
	s.online("alice", "bob", "carol", "dave")
	s.Require().NoError(s.lobby.SetPending("carol"))
	s.Require().NoError(s.lobby.SetPending("bob"))
	s.Require().NoError(s.lobby.SetPending("dave"))

	res, err := s.lobby.Poll("dave")
	s.Require().NoError(err)
	s.Require().NotNil(res.Assignment)
	// 登録順で最初に見つかった待機中ユーザー
	s.Equal(models.Assignment{MatchIndex: 1, PlayerNum: 1, OtherPlayer: "bob"}, *res.Assignment)

	s.Equal(models.Busy, s.availability("bob"))
	s.Equal(models.Busy, s.availability("dave"))
	s.Equal(models.Pending, s.availability("carol"))

	found := s.notifier.find(models.EventMatchFound)
	s.Require().Len(found, 1)
	s.Equal("conn-bob", found[0].ConnID)
	s.Equal(models.Assignment{MatchIndex: 1, PlayerNum: 2, OtherPlayer: "dave"}, found[0].Data)

	rooms := s.notifier.find(models.EventGetRoom)
	s.Require().Len(rooms, 1)
	s.Equal(models.RoomName(1), rooms[0].Room)

	// 相手側のポーリングは既存の対戦を返す
	res, err = s.lobby.Poll("bob")
	s.Require().NoError(err)
	s.Require().NotNil(res.Assignment)
	s.Equal(models.Assignment{MatchIndex: 1, PlayerNum: 2, OtherPlayer: "dave"}, *res.Assignment)
}

func (s *LobbySuite) TestPollUnknownUser() {
	_, err := s.lobby.Poll("ghost")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *LobbySuite) TestMatchIDsAreStable() {
	s.online("a", "b", "c", "d", "e", "f")
	first := s.invitedMatch("a", "b")
	second := s.invitedMatch("c", "d")
	s.Equal(uint64(1), first.MatchIndex)
	s.Equal(uint64(2), second.MatchIndex)

	s.lobby.Disconnect("a", "conn-a")

	// 削除後も他の対戦のIDは変わらない
	st, err := s.lobby.Start(second.MatchIndex, 1, "c")
	s.NoError(err)
	s.Equal("d", st.OtherPlayer)

	third := s.invitedMatch("e", "f")
	s.Equal(uint64(3), third.MatchIndex)
}
