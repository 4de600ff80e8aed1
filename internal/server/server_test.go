package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authintegrate/authintegrate/internal/config"
	"github.com/authintegrate/authintegrate/internal/logging"
	"github.com/authintegrate/authintegrate/internal/notification"
	"github.com/authintegrate/authintegrate/internal/store"
)

type testEnv struct {
	baseURL string
	wsURL   string
}

func startServer(t *testing.T) testEnv {
	t.Helper()
	cfg := config.Config{
		AppName:        "AuthIntegrate",
		AppEnv:         "test",
		Port:           "0",
		LogLevel:       "error",
		SessionSecret:  "test-secret",
		SessionTTL:     time.Hour,
		ShutdownPeriod: time.Second,
		IdempotencyTTL: time.Minute,
		LoginAttempts:  5,
		RecentLogLimit: 50,
		AdminEmails:    []string{"admin@example.com"},
	}
	srv, err := New(cfg, nil, nil, logging.Discard())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	addr := ln.Addr().String()
	return testEnv{baseURL: "http://" + addr, wsURL: "ws://" + addr + "/ws"}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func call(t *testing.T, client *http.Client, method, u string, body any, out any) int {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, u, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func hardwareEvent(t *testing.T, env testEnv, payload map[string]any) int {
	t.Helper()
	return call(t, http.DefaultClient, http.MethodPost, env.baseURL+"/api/hardware/event", payload, nil)
}

func loginAdmin(t *testing.T, env testEnv) *http.Client {
	t.Helper()
	require.Equal(t, http.StatusOK, hardwareEvent(t, env, map[string]any{"command": "REG", "userId": 1, "fingerId": 11, "result": "REGISTERED"}))
	require.Equal(t, http.StatusOK, call(t, http.DefaultClient, http.MethodPost, env.baseURL+"/api/auth/register",
		map[string]any{"userId": 1, "name": "Admin", "email": "admin@example.com", "password": "123456"}, nil))

	client := newClient(t)
	require.Equal(t, http.StatusOK, call(t, client, http.MethodPost, env.baseURL+"/api/auth/login",
		map[string]any{"email": "admin@example.com", "password": "123456"}, nil))
	return client
}

func dialWS(t *testing.T, env testEnv, client *http.Client) *websocket.Conn {
	t.Helper()
	base, err := url.Parse(env.baseURL)
	require.NoError(t, err)
	var parts []string
	for _, c := range client.Jar.Cookies(base) {
		parts = append(parts, c.Name+"="+c.Value)
	}
	header := http.Header{}
	header.Set("Cookie", strings.Join(parts, "; "))

	conn, resp, err := websocket.DefaultDialer.Dial(env.wsURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) (notification.Message, error) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return notification.Message{}, err
	}
	var msg notification.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg, nil
}

func TestRegisterThenDuplicate(t *testing.T) {
	env := startServer(t)
	admin := loginAdmin(t, env)

	assert.Equal(t, http.StatusOK, hardwareEvent(t, env, map[string]any{"command": "REG", "userId": 5, "fingerId": 55, "result": "REGISTERED"}))

	var users []map[string]any
	require.Equal(t, http.StatusOK, call(t, admin, http.MethodGet, env.baseURL+"/api/users", nil, &users))
	var found map[string]any
	for _, u := range users {
		if u["id"] == float64(5) {
			found = u
		}
	}
	require.NotNil(t, found, "user 5 missing from %v", users)
	profile, present := found["profile"]
	assert.True(t, present)
	assert.Nil(t, profile)

	assert.Equal(t, http.StatusConflict, hardwareEvent(t, env, map[string]any{"command": "REG", "userId": 5, "fingerId": 55, "result": "REGISTERED"}))
}

func TestHardwareEventErrors(t *testing.T) {
	env := startServer(t)

	var body map[string]string
	status := call(t, http.DefaultClient, http.MethodPost, env.baseURL+"/api/hardware/event",
		map[string]any{"command": "LOGIN", "userId": 404, "result": "GRANTED"}, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["message"])

	assert.Equal(t, http.StatusBadRequest, hardwareEvent(t, env, map[string]any{"command": "OPEN", "userId": 1}))
	assert.Equal(t, http.StatusBadRequest, hardwareEvent(t, env, map[string]any{"command": "LOGIN", "userId": "x"}))
}

func TestLoginPushesExactlyOnce(t *testing.T) {
	env := startServer(t)
	admin := loginAdmin(t, env)
	require.Equal(t, http.StatusOK, hardwareEvent(t, env, map[string]any{"command": "REG", "userId": 5, "fingerId": 55}))

	conn := dialWS(t, env, admin)
	first, err := readMessage(t, conn, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, notification.KindHardwareStatus, first.Type)
	require.NotNil(t, first.Connected)
	assert.True(t, *first.Connected)

	require.Equal(t, http.StatusOK, hardwareEvent(t, env, map[string]any{"command": "LOGIN", "userId": 5, "result": "GRANTED"}))

	var pushed []store.AccessLogView
	for {
		msg, err := readMessage(t, conn, 500*time.Millisecond)
		if err != nil {
			var netErr net.Error
			require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "unexpected read error: %v", err)
			break
		}
		if msg.Type == notification.KindAccessLog {
			pushed = append(pushed, *msg.Log)
		}
	}
	require.Len(t, pushed, 1)
	assert.Equal(t, store.OutcomeGranted, pushed[0].Outcome)
	require.NotNil(t, pushed[0].UserID)
	assert.Equal(t, 5, *pushed[0].UserID)

	var logs []store.AccessLogView
	require.Equal(t, http.StatusOK, call(t, admin, http.MethodGet, env.baseURL+"/api/logs", nil, &logs))
	matches := 0
	for _, l := range logs {
		if l.ID == pushed[0].ID {
			matches++
		}
	}
	assert.Equal(t, 1, matches)
}

func TestDeleteCascades(t *testing.T) {
	env := startServer(t)
	admin := loginAdmin(t, env)
	require.Equal(t, http.StatusOK, hardwareEvent(t, env, map[string]any{"command": "REG", "userId": 5, "fingerId": 55}))
	require.Equal(t, http.StatusOK, hardwareEvent(t, env, map[string]any{"command": "LOGIN", "userId": 5, "result": "DENIED"}))

	require.Equal(t, http.StatusOK, call(t, admin, http.MethodDelete, env.baseURL+"/api/users/5", nil, nil))

	var logs []store.AccessLogView
	require.Equal(t, http.StatusOK, call(t, admin, http.MethodGet, env.baseURL+"/api/logs", nil, &logs))
	for _, l := range logs {
		if l.UserID != nil {
			assert.NotEqual(t, 5, *l.UserID)
		}
	}
	assert.Equal(t, http.StatusNotFound, call(t, admin, http.MethodDelete, env.baseURL+"/api/users/5", nil, nil))
}

func TestAccessControl(t *testing.T) {
	env := startServer(t)
	loginAdmin(t, env)

	anon := newClient(t)
	assert.Equal(t, http.StatusUnauthorized, call(t, anon, http.MethodGet, env.baseURL+"/api/logs", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, anon, http.MethodGet, env.baseURL+"/api/auth/me", nil, nil))
	assert.Equal(t, http.StatusOK, call(t, anon, http.MethodGet, env.baseURL+"/api/stats", nil, nil))

	require.Equal(t, http.StatusOK, hardwareEvent(t, env, map[string]any{"command": "REG", "userId": 2, "fingerId": 22}))
	require.Equal(t, http.StatusOK, call(t, anon, http.MethodPost, env.baseURL+"/api/auth/register",
		map[string]any{"userId": 2, "name": "Bob", "email": "bob@example.com", "password": "654321"}, nil))

	user := newClient(t)
	require.Equal(t, http.StatusUnauthorized, call(t, user, http.MethodPost, env.baseURL+"/api/auth/login",
		map[string]any{"email": "bob@example.com", "password": "000000"}, nil))
	require.Equal(t, http.StatusOK, call(t, user, http.MethodPost, env.baseURL+"/api/auth/login",
		map[string]any{"email": "bob@example.com", "password": "654321"}, nil))

	var me store.UserWithProfile
	require.Equal(t, http.StatusOK, call(t, user, http.MethodGet, env.baseURL+"/api/auth/me", nil, &me))
	require.NotNil(t, me.Profile)
	assert.Equal(t, store.RoleUser, me.Profile.Role)

	assert.Equal(t, http.StatusForbidden, call(t, user, http.MethodGet, env.baseURL+"/api/users", nil, nil))
	assert.Equal(t, http.StatusOK, call(t, user, http.MethodGet, env.baseURL+"/api/logs/user/2", nil, nil))
	assert.Equal(t, http.StatusForbidden, call(t, user, http.MethodGet, env.baseURL+"/api/logs/user/1", nil, nil))

	require.Equal(t, http.StatusOK, call(t, user, http.MethodPost, env.baseURL+"/api/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, user, http.MethodGet, env.baseURL+"/api/auth/me", nil, nil))
}

func TestVerifyHardware(t *testing.T) {
	env := startServer(t)
	loginAdmin(t, env)

	verify := func(password string) int {
		return call(t, http.DefaultClient, http.MethodPost, env.baseURL+"/api/auth/verify_hardware",
			map[string]any{"userId": 1, "password": password}, nil)
	}
	assert.Equal(t, http.StatusOK, verify("123456"))
	assert.Equal(t, http.StatusUnauthorized, verify("999999"))
}

func TestWebSocketRequiresAdmin(t *testing.T) {
	env := startServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, fmt.Sprintf("dial error: %v", err))
}
