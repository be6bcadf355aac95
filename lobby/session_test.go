package lobby

import (
	"time"

	"mazeserver/models"
)

func (s *LobbySuite) TestSelectCharacter() {
	s.online("alice", "bob")
	a := s.invitedMatch("alice", "bob")
	id := a.MatchIndex

	s.ErrorIs(s.lobby.SelectCharacter(id, 1, "alice", "wizard"), ErrInvalidCharacter)
	s.ErrorIs(s.lobby.SelectCharacter(99, 1, "alice", models.Survivor), ErrMatchNotFound)
	s.ErrorIs(s.lobby.SelectCharacter(id, 2, "alice", models.Survivor), ErrNotInMatch)
	s.ErrorIs(s.lobby.SelectCharacter(id, 3, "alice", models.Survivor), ErrNotInMatch)

	s.NoError(s.lobby.SelectCharacter(id, 1, "alice", models.Survivor))
	s.ErrorIs(s.lobby.SelectCharacter(id, 2, "bob", models.Survivor), ErrAlreadySelected)
	s.ErrorIs(s.lobby.SelectCharacter(id, 1, "alice", models.Monster), ErrCharacterLocked)
	s.NoError(s.lobby.SelectCharacter(id, 2, "bob", models.Monster))
}

func (s *LobbySuite) TestReadyFlow() {
	s.online("alice", "bob")
	id := s.invitedMatch("alice", "bob").MatchIndex

	_, err := s.lobby.Maze(id)
	s.ErrorIs(err, ErrMazeNotReady)

	st, err := s.lobby.Start(id, 2, "bob")
	s.Require().NoError(err)
	s.False(st.OtherReady)

	s.NoError(s.lobby.MarkReady(id, 1, "alice"))
	// 最初の準備完了で迷路が生成される
	m, err := s.lobby.Maze(id)
	s.Require().NoError(err)
	s.Len(m.Nodes, 100)
	s.Len(m.PressurePlatesPositions, 4)

	st, err = s.lobby.Start(id, 2, "bob")
	s.Require().NoError(err)
	s.True(st.OtherReady)
	s.Equal("alice", st.OtherPlayer)

	st, err = s.lobby.Start(id, 1, "alice")
	s.Require().NoError(err)
	s.False(st.OtherReady)

	s.NoError(s.lobby.MarkReady(id, 2, "bob"))
	st, err = s.lobby.Start(id, 1, "alice")
	s.Require().NoError(err)
	s.True(st.OtherReady)
	s.Equal(map[string]int{"active": 1}, s.lobby.Stats().Matches)

	// Active中の再呼び出しは何もしない
	s.NoError(s.lobby.MarkReady(id, 1, "alice"))

	// 同じ迷路を参照し続ける
	again, err := s.lobby.Maze(id)
	s.Require().NoError(err)
	s.Equal(m, again)

	s.ErrorIs(s.lobby.SelectCharacter(id, 1, "alice", models.Survivor), ErrInvalidTransition)
}

func (s *LobbySuite) TestDelayedMazeCheckAfterMatchRemoved() {
	s.online("alice", "bob")
	id := s.invitedMatch("alice", "bob").MatchIndex

	s.Require().NoError(s.lobby.MarkReady(id, 1, "alice"))
	s.Require().NoError(s.lobby.MarkReady(id, 2, "bob"))
	s.Require().NoError(s.lobby.ReportGameOver(id, "alice", 1, "conn-alice"))

	// 遅延チェックは削除済みの対戦に対して何もしない
	time.Sleep(3 * s.lobby.opts.MazeDelay)
	_, err := s.lobby.Maze(id)
	s.ErrorIs(err, ErrMatchNotFound)
}

func (s *LobbySuite) TestStartMissingMatch() {
	_, err := s.lobby.Start(42, 1, "")
	s.ErrorIs(err, ErrMatchNotFound)
}

func (s *LobbySuite) TestGameOver() {
	s.online("alice", "bob")
	id := s.invitedMatch("alice", "bob").MatchIndex

	// 準備前の終了は遷移表に反する
	s.ErrorIs(s.lobby.ReportGameOver(id, "alice", 1, "conn-alice"), ErrInvalidTransition)

	s.Require().NoError(s.lobby.MarkReady(id, 1, "alice"))
	s.Require().NoError(s.lobby.MarkReady(id, 2, "bob"))

	s.ErrorIs(s.lobby.ReportGameOver(id, "mallory", 1, ""), ErrNotInMatch)
	s.NoError(s.lobby.ReportGameOver(id, "bob", 2, "conn-bob"))
	s.ErrorIs(s.lobby.ReportGameOver(id, "bob", 2, "conn-bob"), ErrMatchNotFound)

	s.Equal(models.Available, s.availability("alice"))
	s.Equal(models.Available, s.availability("bob"))

	over := s.notifier.find(models.EventSetGameover)
	s.Require().Len(over, 1)
	s.Equal("conn-bob", over[0].Except)
	s.Contains(s.notifier.closed, models.RoomName(id))

	s.Eventually(func() bool { return s.recorder.count() == 1 }, time.Second, 5*time.Millisecond)
	s.recorder.mu.Lock()
	rec := s.recorder.records[0]
	s.recorder.mu.Unlock()
	s.Equal("completed", rec.Outcome)
	s.Equal(2, rec.LoserSlot)
	s.NotNil(rec.StartedAt)

	// 終了後は再び招待できる
	s.NoError(s.lobby.SendInvite("alice", "bob", 10))
}

func (s *LobbySuite) TestEscapedDoesNotEndMatch() {
	s.online("alice", "bob")
	id := s.invitedMatch("alice", "bob").MatchIndex

	s.NoError(s.lobby.ReportEscaped(id, "alice", "conn-alice"))
	s.Len(s.notifier.find(models.EventSetEscaped), 1)

	room, err := s.lobby.RoomFor(id, "bob")
	s.NoError(err)
	s.Equal(models.RoomName(id), room)

	_, err = s.lobby.RoomFor(id, "mallory")
	s.ErrorIs(err, ErrNotInMatch)
	s.ErrorIs(s.lobby.ReportEscaped(99, "alice", ""), ErrMatchNotFound)
}

func (s *LobbySuite) TestJoinRoom() {
	s.online("alice", "bob")
	id := s.invitedMatch("alice", "bob").MatchIndex
	room := models.RoomName(id)

	s.NoError(s.lobby.JoinRoom("alice", "conn-alice-2", room))
	s.Contains(s.notifier.joined[room], "conn-alice-2")

	s.ErrorIs(s.lobby.JoinRoom("alice", "conn-alice", "match-999"), ErrNotInMatch)
	s.ErrorIs(s.lobby.JoinRoom("carol", "conn-carol", room), ErrMatchNotFound)
}
