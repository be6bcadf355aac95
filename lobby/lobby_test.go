package lobby

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"mazeserver/models"
)

type sentEvent struct {
	ConnID string
	Room   string
	Except string
	Event  string
	Data   any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	joined map[string][]string
	closed []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{joined: make(map[string][]string)}
}

func (f *fakeNotifier) Emit(connID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{ConnID: connID, Event: event, Data: data})
}

func (f *fakeNotifier) JoinRoom(connID, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined[room] = append(f.joined[room], connID)
}

func (f *fakeNotifier) EmitRoom(room, except, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{Room: room, Except: except, Event: event, Data: data})
}

func (f *fakeNotifier) CloseRoom(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, room)
}

func (f *fakeNotifier) find(event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.MatchRecord
}

func (f *fakeRecorder) RecordMatch(rec models.MatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func testOptions() Options {
	return Options{
		PendingTimeout: 30 * time.Millisecond,
		MazeDelay:      20 * time.Millisecond,
		MazeCols:       10,
		MazeRows:       10,
		CellSize:       80,
		Rand:           rand.New(rand.NewSource(1)),
		Logger:         zap.NewNop(),
	}
}

type LobbySuite struct {
	suite.Suite
	lobby    *Lobby
	notifier *fakeNotifier
	recorder *fakeRecorder
}

func (s *LobbySuite) SetupTest() {
	s.notifier = newFakeNotifier()
	s.recorder = &fakeRecorder{}
	opts := testOptions()
	opts.Notifier = s.notifier
	opts.History = s.recorder
	l, err := New(opts)
	s.Require().NoError(err)
	s.lobby = l
}

// online はユーザーを登録して接続IDを紐づけます。
func (s *LobbySuite) online(names ...string) {
	for _, name := range names {
		s.Require().NoError(s.lobby.Register(name))
		s.Require().NoError(s.lobby.BindConnection(name, "conn-"+name))
	}
}

func (s *LobbySuite) availability(name string) models.Availability {
	u, ok := s.lobby.Lookup(name)
	s.Require().True(ok, "user %s not registered", name)
	return u.Availability
}

// invitedMatch は招待経由で対戦を作成します。
func (s *LobbySuite) invitedMatch(sender, receiver string) models.Assignment {
	code := s.lobby.AllocateInviteCode()
	s.Require().NoError(s.lobby.SendInvite(sender, receiver, code))
	a, err := s.lobby.Accept(receiver, code)
	s.Require().NoError(err)
	return a
}

func TestLobbySuite(t *testing.T) {
	suite.Run(t, new(LobbySuite))
}

func TestNewRejectsTinyMaze(t *testing.T) {
	opts := testOptions()
	opts.MazeCols, opts.MazeRows = 2, 2
	_, err := New(opts)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(models.DefaultConfig())
	assert.Equal(t, 15*time.Second, opts.PendingTimeout)
	assert.Equal(t, 5*time.Second, opts.MazeDelay)
	assert.Equal(t, 10, opts.MazeCols)
	assert.Equal(t, 10, opts.MazeRows)
	assert.Equal(t, 80.0, opts.CellSize)
	assert.False(t, opts.ReclaimInviteCodes)
}

func TestConcurrentRegisterIsInjective(t *testing.T) {
	l, err := New(testOptions())
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Register("alice") == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}
