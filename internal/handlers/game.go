// internal/handlers/game.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/auth"
	"github.com/jason-s-yu/themind/internal/game"
	"github.com/jason-s-yu/themind/internal/models"
)

type createGameRequest struct {
	PlayerCount int               `json:"playerCount"`
	Difficulty  models.Difficulty `json:"difficulty"`
	Name        string            `json:"name"`
	Avatar      string            `json:"avatar"`
}

// CreateGameHandler opens a session with the caller in the admin seat.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "code": "AUTH_REQUIRED"})
			return
		}
		defaults := game.DefaultOptions()
		req := createGameRequest{PlayerCount: defaults.PlayerCount, Difficulty: defaults.Difficulty}
		if err := decodeBody(r, &req); err != nil {
			badRequest(w, "bad create request payload")
			return
		}

		owner := models.User{ID: id.UserID, Username: displayName(req.Name, id), Avatar: req.Avatar}
		snap, err := gs.Gateway.Create(r.Context(), owner, game.Options{
			PlayerCount: req.PlayerCount,
			Difficulty:  req.Difficulty,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"sessionId": snap.SessionID,
		})
	}
}

type joinRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// JoinGameHandler seats the caller in a waiting session.
func JoinGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		var req joinRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(w, "bad join request payload")
			return
		}
		_, snap, err := gs.Gateway.Apply(r.Context(), sessionID, id.UserID, game.JoinSession{
			DisplayName: displayName(req.Name, id),
			Avatar:      req.Avatar,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"state":   snap,
		})
	}
}

type playCardRequest struct {
	CardID uuid.UUID `json:"cardId"`
}

// PlayCardHandler plays one card from the caller's hand.
func PlayCardHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		var req playCardRequest
		if err := decodeBody(r, &req); err != nil || req.CardID == uuid.Nil {
			badRequest(w, "cardId is required")
			return
		}
		res, snap, err := gs.Gateway.Apply(r.Context(), sessionID, id.UserID, game.PlayCard{CardID: req.CardID})
		if err != nil {
			writeError(w, err)
			return
		}
		body := map[string]interface{}{
			"success":   true,
			"errorCard": res.Play.ErrorCard(),
			"state":     snap,
		}
		if res.Play.ErrorCard() {
			body["message"] = "Card " + strconv.Itoa(res.Play.Card.Value) + " was not the lowest, you lost a life"
		}
		writeJSON(w, http.StatusOK, body)
	}
}

type useShurikenRequest struct {
	ActionType string `json:"actionType"`
}

// UseShurikenHandler records the caller's vote for a shuriken.
func UseShurikenHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		req := useShurikenRequest{ActionType: "request"}
		if err := decodeBody(r, &req); err != nil || req.ActionType != "request" {
			badRequest(w, `actionType must be "request"`)
			return
		}
		res, snap, err := gs.Gateway.Apply(r.Context(), sessionID, id.UserID, game.UseShuriken{})
		if err != nil {
			writeError(w, err)
			return
		}
		body := map[string]interface{}{
			"success": true,
			"pending": res.Shuriken.Pending,
			"state":   snap,
		}
		if res.Shuriken.Pending {
			body["message"] = "Waiting for the other players"
		}
		writeJSON(w, http.StatusOK, body)
	}
}

type adminActionRequest struct {
	Action string `json:"action"`
}

// AdminActionHandler runs a lifecycle action. Only the admin seat may call it.
func AdminActionHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		var req adminActionRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(w, "bad admin action payload")
			return
		}
		action, err := game.AdminAction(req.Action)
		if err != nil {
			writeError(w, err)
			return
		}
		res, snap, err := gs.Gateway.Apply(r.Context(), sessionID, id.UserID, action)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "session is " + string(res.Status),
			"state":   snap,
		})
	}
}

// GameStateHandler returns the caller's snapshot. Pollers that send the last
// ETag back get 304 until the session changes.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		snap, err := gs.Gateway.Snapshot(r.Context(), sessionID, id.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		etag := `"` + strconv.FormatInt(snap.Version, 10) + `"`
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "no-cache")
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

func displayName(requested string, id auth.Identity) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	if id.Username != "" {
		return id.Username
	}
	return "Player " + id.UserID.String()[:8]
}
