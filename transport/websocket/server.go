package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	sessionCookie = "user_session"
	leaveTimeout  = 5 * time.Second
)

var (
	errBadMessage     = errors.New("malformed message")
	errUnknownAction  = errors.New("unknown action")
	errSessionOffline = errors.New("session is not connected")
)

type matchService interface {
	JoinMatch(ctx context.Context, matchID string, presence entity.Presence) error
	LeaveMatch(ctx context.Context, matchID string, presence entity.Presence) error
	SendMatchData(ctx context.Context, matchID string, message entity.MatchMessage) error
}

type matchFinder interface {
	FindMatch(ctx context.Context, requesterID string, fast, ai bool) (string, error)
}

// Server is the realtime transport. It also delivers match broadcasts to sessions.
type Server struct {
	logger   *slog.Logger
	matches  matchService
	finder   matchFinder
	upgrader websocket.Upgrader

	handlers map[string]func(ctx context.Context, sess *session, message *Message) error

	mu       sync.RWMutex
	sessions map[string]*session
	server   *http.Server
}

func New(logger *slog.Logger, matches matchService, finder matchFinder) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		matches: matches,
		finder:  finder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}

	server.handlers = map[string]func(context.Context, *session, *Message) error{
		actionFind:  server.handleFind,
		actionJoin:  server.handleJoin,
		actionLeave: server.handleLeave,
		actionData:  server.handleData,
	}

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", that.upgrade)

	return mux
}

// Start serves websocket connections until Shutdown is called.
func (that *Server) Start(port string) error {
	that.mu.Lock()
	that.server = &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := that.server
	that.mu.Unlock()

	that.logger.Info("websocket server started", "port", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	that.mu.Lock()
	srv := that.server
	sessions := make([]*session, 0, len(that.sessions))
	for _, sess := range that.sessions {
		sessions = append(sessions, sess)
	}
	that.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop websocket server: %w", err)
	}

	return nil
}

// Notify queues a match message for the session of the presence.
func (that *Server) Notify(presence entity.Presence, matchID string, opCode entity.OpCode, data []byte) error {
	that.mu.RLock()
	sess, ok := that.sessions[presence.SessionID]
	that.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", errSessionOffline, presence.SessionID)
	}

	sess.reply(actionData, MatchData{MatchID: matchID, OpCode: int64(opCode), Data: data})

	return nil
}

func (that *Server) upgrade(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgrade")

	playerID, header := that.identify(req)

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	presence := entity.Presence{
		UserID:    playerID,
		SessionID: uuid.NewString(),
	}
	sess := newSession(that.logger, presence, conn)

	that.mu.Lock()
	that.sessions[presence.SessionID] = sess
	that.mu.Unlock()

	log.Info("websocket connection established", "userID", playerID, "sessionID", presence.SessionID)

	go sess.writePump()
	sess.readPump(func(message *Message) {
		that.dispatch(req.Context(), sess, message)
	})

	that.disconnect(sess)
}

// identify takes the player id from the query or the session cookie, issuing a new cookie when neither is set.
func (that *Server) identify(req *http.Request) (string, http.Header) {
	if playerID := req.URL.Query().Get("player_id"); playerID != "" {
		return playerID, nil
	}

	if cookie, err := req.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	playerID := uuid.NewString()
	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    playerID,
		Expires:  time.Now().Add(24 * time.Hour),
		Path:     "/",
		HttpOnly: true,
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return playerID, header
}

func (that *Server) dispatch(ctx context.Context, sess *session, message *Message) {
	log := that.logger.With("method", "dispatch", "action", message.Action)

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action")
		sess.replyError(message.Action, errUnknownAction)

		return
	}

	if err := handler(ctx, sess, message); err != nil {
		log.Error("error processing message", "error", err)
		sess.replyError(message.Action, err)
	}
}

// disconnect leaves every match the session joined.
func (that *Server) disconnect(sess *session) {
	sess.close()

	that.mu.Lock()
	delete(that.sessions, sess.presence.SessionID)
	that.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()

	for _, matchID := range sess.joinedMatches() {
		if err := that.matches.LeaveMatch(ctx, matchID, sess.presence); err != nil {
			sess.logger.Warn("failed to leave match on disconnect", "matchID", matchID, "error", err)
		}
	}

	sess.logger.Info("websocket connection closed")
}
