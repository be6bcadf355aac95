package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mazeserver/lobby"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeStats struct{}

func (fakeStats) Stats() lobby.Stats {
	return lobby.Stats{Users: map[string]int{"available": 2}, Matches: map[string]int{"active": 1}}
}

type fakeSessions struct {
	removed int
	err     error
}

func (f *fakeSessions) Sweep(context.Context) (int, error) { return f.removed, f.err }
func (f *fakeSessions) Count(context.Context) (int, error) { return 3, nil }

type fakeHistory struct {
	cutoff time.Time
}

func (f *fakeHistory) PurgeBefore(t time.Time) (int64, error) {
	f.cutoff = t
	return 5, nil
}

func (f *fakeHistory) CountSince(time.Time) (map[string]int64, error) {
	return map[string]int64{"completed": 2}, nil
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/teapot", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ping?username=alice", "/teapot", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 3)

	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, "alice", fields["Username"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusTeapot), entries[1].ContextMap()["status"])
	assert.NotContains(t, entries[1].ContextMap(), "Username")

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestCronJobFunctions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	logStats(fakeStats{}, logger)
	assert.Equal(t, 1, logs.FilterMessage("Lobby stats").Len())

	assert.Equal(t, 4, sweepSessions(&fakeSessions{removed: 4}, logger))
	assert.Equal(t, 0, sweepSessions(&fakeSessions{err: errors.New("down")}, logger))

	h := &fakeHistory{}
	assert.Equal(t, int64(5), purgeHistory(h, 24*time.Hour, logger))
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), h.cutoff, time.Minute)
	assert.Equal(t, 1, logs.FilterMessage("Matches in the last 24h").Len())
}

func TestStartCronJobs(t *testing.T) {
	c, err := StartCronJobs(fakeStats{}, &fakeSessions{}, &fakeHistory{}, time.Hour, zap.NewNop())
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 3)

	c2, err := StartCronJobs(fakeStats{}, &fakeSessions{}, nil, time.Hour, zap.NewNop())
	require.NoError(t, err)
	defer c2.Stop()
	assert.Len(t, c2.Entries(), 2)
}
