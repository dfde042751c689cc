package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// PlayerHeader carries the caller identity.
const PlayerHeader = "X-Player-ID"

type profileService interface {
	GetOrCreateProfile(ctx context.Context, playerID string) (*entity.Profile, error)
	UpdateUsername(ctx context.Context, playerID, username string) (*entity.Profile, error)
	MatchHistory(ctx context.Context, playerID string) ([]entity.HistoryEntry, error)
	Leaderboard(ctx context.Context) ([]entity.RankedProfile, error)
}

type matchFinder interface {
	FindMatch(ctx context.Context, requesterID string, fast, ai bool) (string, error)
}

// Server exposes the RPC endpoints over plain HTTP.
type Server struct {
	logger   *slog.Logger
	profiles profileService
	finder   matchFinder

	mu     sync.Mutex
	server *http.Server
}

func New(logger *slog.Logger, profiles profileService, finder matchFinder) *Server {
	return &Server{
		logger:   logger.With("component", "rest"),
		profiles: profiles,
		finder:   finder,
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.ping)
	mux.HandleFunc("POST /rpc/find_match", that.withPlayer(that.findMatch))
	mux.HandleFunc("GET /rpc/profile", that.withPlayer(that.profile))
	mux.HandleFunc("POST /rpc/username", that.withPlayer(that.updateUsername))
	mux.HandleFunc("GET /rpc/match_history", that.withPlayer(that.matchHistory))
	mux.HandleFunc("GET /rpc/leaderboard", that.withPlayer(that.leaderboard))

	return mux
}

func (that *Server) Start(port string) error {
	that.mu.Lock()
	that.server = &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	srv := that.server
	that.mu.Unlock()

	that.logger.Info("http server started", "port", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	that.mu.Lock()
	srv := that.server
	that.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop http server: %w", err)
	}

	return nil
}
