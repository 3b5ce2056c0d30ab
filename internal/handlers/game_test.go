// internal/handlers/game_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/auth"
	"github.com/jason-s-yu/themind/internal/game"
	"github.com/jason-s-yu/themind/internal/gateway"
	"github.com/jason-s-yu/themind/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSRF = "csrf-test-token"

type testClient struct {
	t     *testing.T
	h     http.Handler
	id    uuid.UUID
	token string
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	require.NoError(t, auth.Init(time.Hour))
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	gw := gateway.New(game.NewGameStore(), game.NewMachine(game.NewRandomDealer(3)), nil, logger)
	return NewRouter(NewGameServer(gw, logger))
}

func newClient(t *testing.T, h http.Handler, name string) *testClient {
	t.Helper()
	id := uuid.New()
	token, err := auth.CreateJWT(id, name)
	require.NoError(t, err)
	return &testClient{t: t, h: h, id: id, token: token}
}

func (c *testClient) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: c.token})
	req.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: testCSRF})
	req.Header.Set(auth.CSRFHeaderName, testCSRF)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (c *testClient) state(sessionID string) game.Snapshot {
	c.t.Helper()
	rr := c.do(http.MethodGet, "/game/"+sessionID+"/state", nil, nil)
	require.Equal(c.t, http.StatusOK, rr.Code, rr.Body.String())
	var snap game.Snapshot
	require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

// startedTable creates a two-player session and starts it.
func startedTable(t *testing.T, h http.Handler) (string, *testClient, *testClient) {
	t.Helper()
	host := newClient(t, h, "host")
	guest := newClient(t, h, "guest")

	rr := host.do(http.MethodPost, "/game/create", map[string]interface{}{"playerCount": 2, "difficulty": "medium"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sessionID := decode(t, rr)["sessionId"].(string)

	rr = guest.do(http.MethodPost, "/game/"+sessionID+"/join", map[string]interface{}{"avatar": "owl.png"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = host.do(http.MethodPost, "/game/"+sessionID+"/admin_action", map[string]string{"action": "start"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return sessionID, host, guest
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGameRoutesRequireAuthAndCSRF(t *testing.T) {
	h := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/game/create", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	c := newClient(t, h, "alice")
	req := httptest.NewRequest(http.MethodPost, "/game/create", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: c.token})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "CSRF_INVALID", decode(t, rr)["code"])
}

func TestCreateRejectsBadOptions(t *testing.T) {
	h := newTestRouter(t)
	c := newClient(t, h, "alice")
	rr := c.do(http.MethodPost, "/game/create", map[string]interface{}{"playerCount": 7}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(game.CodeInvalidOptions), decode(t, rr)["code"])
}

func TestPlayCardFlow(t *testing.T) {
	h := newTestRouter(t)
	sessionID, host, guest := startedTable(t, h)

	hostState := host.state(sessionID)
	guestState := guest.state(sessionID)
	require.Len(t, hostState.Hand, 1)
	require.Len(t, guestState.Hand, 1)
	assert.Equal(t, models.StatusPlaying, hostState.Status)
	assert.Equal(t, 12, hostState.MaxLevel)
	require.Len(t, hostState.Players, 2)
	assert.Equal(t, "owl.png", hostState.Players[1].Avatar)

	// Play the higher card first so it costs a life.
	high, low := host, guest
	highCard, lowCard := hostState.Hand[0], guestState.Hand[0]
	if highCard.Value < lowCard.Value {
		high, low = guest, host
		highCard, lowCard = lowCard, highCard
	}

	rr := high.do(http.MethodPost, "/game/"+sessionID+"/play_card", map[string]interface{}{"cardId": highCard.ID}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["errorCard"])
	assert.NotEmpty(t, body["message"])

	rr = high.do(http.MethodPost, "/game/"+sessionID+"/play_card", map[string]interface{}{"cardId": highCard.ID}, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, string(game.CodeCardNotInHand), decode(t, rr)["code"])

	rr = high.do(http.MethodPost, "/game/"+sessionID+"/play_card", map[string]interface{}{"cardId": lowCard.ID}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "not the owner")

	rr = low.do(http.MethodPost, "/game/"+sessionID+"/play_card", map[string]interface{}{"cardId": lowCard.ID}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["errorCard"])

	final := low.state(sessionID)
	assert.Equal(t, models.StatusLevelComplete, final.Status)
	assert.Equal(t, hostState.Lives-1, final.Lives)
	assert.Len(t, final.PlayedHistory, 2)
}

func TestUseShurikenPending(t *testing.T) {
	h := newTestRouter(t)
	sessionID, host, guest := startedTable(t, h)

	rr := host.do(http.MethodPost, "/game/"+sessionID+"/use_shuriken", map[string]string{"actionType": "request"}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, true, decode(t, rr)["pending"])

	rr = host.do(http.MethodPost, "/game/"+sessionID+"/use_shuriken", map[string]string{"actionType": "request"}, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = guest.do(http.MethodPost, "/game/"+sessionID+"/use_shuriken", map[string]string{"actionType": "request"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["pending"])

	snap := guest.state(sessionID)
	assert.Equal(t, 0, snap.Shurikens)
	assert.Len(t, snap.ShurikenDiscards, 2)
	assert.Equal(t, models.StatusLevelComplete, snap.Status)

	rr = guest.do(http.MethodPost, "/game/"+sessionID+"/use_shuriken", map[string]string{"actionType": "retract"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminActionIsAdminOnly(t *testing.T) {
	h := newTestRouter(t)
	sessionID, host, guest := startedTable(t, h)

	rr := guest.do(http.MethodPost, "/game/"+sessionID+"/admin_action", map[string]string{"action": "pause"}, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, string(game.CodeNotSessionAdmin), decode(t, rr)["code"])

	rr = host.do(http.MethodPost, "/game/"+sessionID+"/admin_action", map[string]string{"action": "pause"}, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = host.do(http.MethodPost, "/game/"+sessionID+"/admin_action", map[string]string{"action": "pause"}, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = host.do(http.MethodPost, "/game/"+sessionID+"/admin_action", map[string]string{"action": "explode"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	stranger := newClient(t, h, "stranger")
	rr = stranger.do(http.MethodPost, "/game/"+sessionID+"/admin_action", map[string]string{"action": "cancel"}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGameStateNotModified(t *testing.T) {
	h := newTestRouter(t)
	sessionID, host, _ := startedTable(t, h)

	rr := host.do(http.MethodGet, "/game/"+sessionID+"/state", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rr = host.do(http.MethodGet, "/game/"+sessionID+"/state", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = host.do(http.MethodPost, "/game/"+sessionID+"/admin_action", map[string]string{"action": "pause"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = host.do(http.MethodGet, "/game/"+sessionID+"/state", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEqual(t, etag, rr.Header().Get("ETag"))
}

func TestUnknownSession(t *testing.T) {
	h := newTestRouter(t)
	c := newClient(t, h, "alice")

	rr := c.do(http.MethodGet, "/game/"+uuid.NewString()+"/state", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = c.do(http.MethodGet, "/game/not-a-uuid/state", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
