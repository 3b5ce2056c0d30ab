package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/auth"
	"github.com/jason-s-yu/themind/internal/game"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps a rejection code to its HTTP status.
func statusFor(code game.Code) int {
	switch code {
	case game.CodeSessionNotFound, game.CodeNotSeated, game.CodeCardNotFound:
		return http.StatusNotFound
	case game.CodeNotSessionAdmin:
		return http.StatusForbidden
	case game.CodeSessionNotPlaying, game.CodeCardNotInHand, game.CodeInvalidTransition,
		game.CodeSessionFull, game.CodeAlreadySeated, game.CodeNotEnoughPlayers,
		game.CodeNoShurikens, game.CodeShurikenRequested:
		return http.StatusConflict
	case game.CodeInvalidAction, game.CodeInvalidOptions:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError reports err with its reason code. Faults get a generic message.
func writeError(w http.ResponseWriter, err error) {
	code := game.CodeOf(err)
	message := err.Error()
	if code == game.CodeUnknown || !game.IsRejection(err) {
		if code == game.CodeUnknown {
			code = game.CodeStorage
		}
		message = "internal error, please retry"
	}
	writeJSON(w, statusFor(code), map[string]interface{}{
		"success": false,
		"code":    code,
		"message": message,
	})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"code":    game.CodeInvalidAction,
		"message": message,
	})
}

// decodeBody decodes an optional JSON body into v. An empty body is fine.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// sessionParams returns the caller and the session from the URL.
func sessionParams(w http.ResponseWriter, r *http.Request) (auth.Identity, uuid.UUID, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "code": "AUTH_REQUIRED"})
		return auth.Identity{}, uuid.Nil, false
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		badRequest(w, "invalid session id")
		return auth.Identity{}, uuid.Nil, false
	}
	return id, sessionID, true
}
