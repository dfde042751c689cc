package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) GetOrCreateProfile(ctx context.Context, playerID string) (*entity.Profile, error) {
	args := m.Called(ctx, playerID)
	profile, _ := args.Get(0).(*entity.Profile)
	return profile, args.Error(1)
}

func (m *mockProfiles) UpdateUsername(ctx context.Context, playerID, username string) (*entity.Profile, error) {
	args := m.Called(ctx, playerID, username)
	profile, _ := args.Get(0).(*entity.Profile)
	return profile, args.Error(1)
}

func (m *mockProfiles) MatchHistory(ctx context.Context, playerID string) ([]entity.HistoryEntry, error) {
	args := m.Called(ctx, playerID)
	history, _ := args.Get(0).([]entity.HistoryEntry)
	return history, args.Error(1)
}

func (m *mockProfiles) Leaderboard(ctx context.Context) ([]entity.RankedProfile, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]entity.RankedProfile)
	return rows, args.Error(1)
}

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) FindMatch(ctx context.Context, requesterID string, fast, ai bool) (string, error) {
	args := m.Called(ctx, requesterID, fast, ai)
	return args.String(0), args.Error(1)
}

func newTestServer(t *testing.T) (*mockProfiles, *mockFinder, http.Handler) {
	t.Helper()

	profiles := &mockProfiles{}
	finder := &mockFinder{}
	t.Cleanup(func() {
		profiles.AssertExpectations(t)
		finder.AssertExpectations(t)
	})

	server := New(slog.New(slog.NewTextHandler(io.Discard, nil)), profiles, finder)

	return profiles, finder, server.Handler()
}

func do(handler http.Handler, method, path, playerID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if playerID != "" {
		req.Header.Set(PlayerHeader, playerID)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestServer_Ping(t *testing.T) {
	_, _, handler := newTestServer(t)

	rec := do(handler, http.MethodGet, "/ping", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestServer_MissingPlayer(t *testing.T) {
	_, _, handler := newTestServer(t)

	for _, path := range []string{"/rpc/profile", "/rpc/match_history", "/rpc/leaderboard"} {
		t.Run(path, func(t *testing.T) {
			rec := do(handler, http.MethodGet, path, "", "")

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"missing player id"}`, rec.Body.String())
		})
	}
}

func TestServer_FindMatch(t *testing.T) {
	t.Run("Returns the selected match", func(t *testing.T) {
		// Given: a classic fast match is available
		_, finder, handler := newTestServer(t)
		finder.On("FindMatch", mock.Anything, "alice", true, false).Return("m1", nil)

		// When: the player asks for a fast match
		rec := do(handler, http.MethodPost, "/rpc/find_match", "alice", `{"fast":true}`)

		// Then: the match id is returned
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"match_ids":["m1"]}`, rec.Body.String())
	})

	t.Run("Empty body means classic normal", func(t *testing.T) {
		_, finder, handler := newTestServer(t)
		finder.On("FindMatch", mock.Anything, "alice", false, false).Return("m2", nil)

		rec := do(handler, http.MethodPost, "/rpc/find_match", "alice", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"match_ids":["m2"]}`, rec.Body.String())
	})

	t.Run("Malformed body", func(t *testing.T) {
		_, _, handler := newTestServer(t)

		rec := do(handler, http.MethodPost, "/rpc/find_match", "alice", "{")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Failures are internal errors", func(t *testing.T) {
		_, finder, handler := newTestServer(t)
		finder.On("FindMatch", mock.Anything, "alice", false, true).Return("", apperror.ErrMatchClosed)

		rec := do(handler, http.MethodPost, "/rpc/find_match", "alice", `{"ai":true}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_Profile(t *testing.T) {
	// Given: a stored profile
	profiles, _, handler := newTestServer(t)
	profiles.On("GetOrCreateProfile", mock.Anything, "alice").
		Return(&entity.Profile{Username: "alice", Score: 50, Wins: 1}, nil)

	// When: the player reads it
	rec := do(handler, http.MethodGet, "/rpc/profile", "alice", "")

	// Then: the profile is returned as JSON
	require.Equal(t, http.StatusOK, rec.Code)

	var profile entity.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 50, profile.Score)
	assert.Equal(t, 1, profile.Wins)
}

func TestServer_UpdateUsername(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "Accepted", status: http.StatusOK},
		{name: "Invalid", err: apperror.ErrInvalidUsername, status: http.StatusBadRequest},
		{name: "Taken", err: fmt.Errorf("failed to update username: %w", apperror.ErrUsernameTaken), status: http.StatusConflict},
		{name: "Storage failure", err: errors.New("redis is down"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, _, handler := newTestServer(t)

			var profile *entity.Profile
			if tt.err == nil {
				profile = &entity.Profile{Username: "neo"}
			}
			profiles.On("UpdateUsername", mock.Anything, "alice", "neo").Return(profile, tt.err)

			rec := do(handler, http.MethodPost, "/rpc/username", "alice", `{"username":"neo"}`)

			assert.Equal(t, tt.status, rec.Code)
			if tt.err != nil {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestServer_MatchHistory(t *testing.T) {
	profiles, _, handler := newTestServer(t)
	profiles.On("MatchHistory", mock.Anything, "alice").Return([]entity.HistoryEntry{
		{MatchID: "m1", OpponentID: "bob", OpponentUsername: "bob", Result: entity.ResultWin, ScoreChange: 50},
	}, nil)

	rec := do(handler, http.MethodGet, "/rpc/match_history", "alice", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var history []entity.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, entity.ResultWin, history[0].Result)
}

func TestServer_Leaderboard(t *testing.T) {
	profiles, _, handler := newTestServer(t)
	profiles.On("Leaderboard", mock.Anything).Return([]entity.RankedProfile{
		{UserID: "alice", Profile: entity.Profile{Username: "alice", Score: 100}},
		{UserID: "bob", Profile: entity.Profile{Username: "bob", Score: 40}},
	}, nil)

	rec := do(handler, http.MethodGet, "/rpc/leaderboard", "carol", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var rows []entity.RankedProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].UserID)
	assert.Equal(t, 100, rows[0].Score)
}
