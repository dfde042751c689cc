package rest

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

var (
	errMissingPlayer = errors.New("missing player id")
	errBadRequest    = errors.New("malformed request body")
)

type playerHandler func(w http.ResponseWriter, r *http.Request, playerID string)

type findMatchRequest struct {
	Fast bool `json:"fast"`
	AI   bool `json:"ai"`
}

type findMatchResponse struct {
	MatchIDs []string `json:"match_ids"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) withPlayer(next playerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.Header.Get(PlayerHeader)
		if playerID == "" {
			that.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errMissingPlayer.Error()})
			return
		}

		next(w, r, playerID)
	}
}

func (that *Server) findMatch(w http.ResponseWriter, r *http.Request, playerID string) {
	var req findMatchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errBadRequest.Error()})
			return
		}
	}

	matchID, err := that.finder.FindMatch(r.Context(), playerID, req.Fast, req.AI)
	if err != nil {
		that.writeError(w, "findMatch", err)
		return
	}

	that.writeJSON(w, http.StatusOK, findMatchResponse{MatchIDs: []string{matchID}})
}

func (that *Server) profile(w http.ResponseWriter, r *http.Request, playerID string) {
	profile, err := that.profiles.GetOrCreateProfile(r.Context(), playerID)
	if err != nil {
		that.writeError(w, "profile", err)
		return
	}

	that.writeJSON(w, http.StatusOK, profile)
}

func (that *Server) updateUsername(w http.ResponseWriter, r *http.Request, playerID string) {
	var req usernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errBadRequest.Error()})
		return
	}

	profile, err := that.profiles.UpdateUsername(r.Context(), playerID, req.Username)
	if err != nil {
		that.writeError(w, "updateUsername", err)
		return
	}

	that.writeJSON(w, http.StatusOK, profile)
}

func (that *Server) matchHistory(w http.ResponseWriter, r *http.Request, playerID string) {
	history, err := that.profiles.MatchHistory(r.Context(), playerID)
	if err != nil {
		that.writeError(w, "matchHistory", err)
		return
	}

	that.writeJSON(w, http.StatusOK, history)
}

func (that *Server) leaderboard(w http.ResponseWriter, r *http.Request, _ string) {
	rows, err := that.profiles.Leaderboard(r.Context())
	if err != nil {
		that.writeError(w, "leaderboard", err)
		return
	}

	that.writeJSON(w, http.StatusOK, rows)
}

func (that *Server) writeError(w http.ResponseWriter, method string, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrInvalidUsername):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUsernameTaken):
		status = http.StatusConflict
	default:
		that.logger.Error("request failed", "method", method, "error", err)
	}

	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
