package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authintegrate/authintegrate/internal/store"
)

type fixedStatus bool

func (f fixedStatus) Connected() bool { return bool(f) }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	gw := store.NewMemoryGateway()
	for _, id := range []int{1, 2} {
		_, err := gw.CreateHardwareUser(ctx, store.NewHardwareUser{ID: id, FingerID: id})
		require.NoError(t, err)
	}
	outcomes := []store.Outcome{store.OutcomeGranted, store.OutcomeGranted, store.OutcomeDenied}
	for i, o := range outcomes {
		_, err := gw.CreateAccessLog(ctx, store.NewAccessLog{UserID: 1 + i%2, Outcome: o})
		require.NoError(t, err)
	}

	h := NewHandler(gw, fixedStatus(true), 2)
	app := fiber.New()
	app.Get("/api/logs", h.Recent)
	app.Get("/api/logs/user/:userId", h.ForUser)
	app.Get("/api/stats", h.Stats)
	return app
}

func getJSON(t *testing.T, app *fiber.App, path string, out any) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRecentIsBounded(t *testing.T) {
	app := newTestApp(t)

	var logs []store.AccessLogView
	require.Equal(t, http.StatusOK, getJSON(t, app, "/api/logs", &logs))
	assert.Len(t, logs, 2)

	require.Equal(t, http.StatusOK, getJSON(t, app, "/api/logs?limit=1", &logs))
	assert.Len(t, logs, 1)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, app, "/api/logs?limit=zero", nil))
}

func TestForUser(t *testing.T) {
	app := newTestApp(t)

	var logs []store.AccessLogView
	require.Equal(t, http.StatusOK, getJSON(t, app, "/api/logs/user/1", &logs))
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, 1, *l.UserID)
	}
	assert.Equal(t, http.StatusBadRequest, getJSON(t, app, "/api/logs/user/abc", nil))
}

func TestStatsIncludesHardwareStatus(t *testing.T) {
	app := newTestApp(t)

	var stats store.SystemStats
	require.Equal(t, http.StatusOK, getJSON(t, app, "/api/stats", &stats))
	assert.Equal(t, store.SystemStats{
		TotalUsers:         2,
		TotalAccessLogs:    3,
		AccessGrantedToday: 2,
		AccessDeniedToday:  1,
		HardwareConnected:  true,
	}, stats)
}
