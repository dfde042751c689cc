package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 << 10
	sendBuffer     = 64
)

// session is one websocket connection of a player.
type session struct {
	logger   *slog.Logger
	presence entity.Presence
	conn     *websocket.Conn
	send     chan []byte

	mu      sync.Mutex
	matches map[string]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(logger *slog.Logger, presence entity.Presence, conn *websocket.Conn) *session {
	return &session{
		logger:   logger.With("userID", presence.UserID, "sessionID", presence.SessionID),
		presence: presence,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		matches:  make(map[string]struct{}),
		closed:   make(chan struct{}),
	}
}

// enqueue never blocks. A session that cannot keep up is closed.
func (that *session) enqueue(message Message) bool {
	data, err := json.Marshal(message)
	if err != nil {
		that.logger.Error("failed to marshal message", "action", message.Action, "error", err)
		return false
	}

	select {
	case <-that.closed:
		return false
	default:
	}

	select {
	case that.send <- data:
		return true
	default:
		that.logger.Warn("send buffer full, dropping session")
		that.close()

		return false
	}
}

func (that *session) reply(action string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		that.logger.Error("failed to marshal payload", "action", action, "error", err)
		return
	}

	that.enqueue(Message{Action: action, Payload: raw})
}

func (that *session) replyError(action string, err error) {
	that.reply(actionError, ErrorResponse{Action: action, Error: err.Error()})
}

func (that *session) close() {
	that.closeOnce.Do(func() {
		close(that.closed)
		_ = that.conn.Close()
	})
}

func (that *session) track(matchID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.matches[matchID] = struct{}{}
}

func (that *session) untrack(matchID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.matches, matchID)
}

func (that *session) joinedMatches() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	matchIDs := make([]string, 0, len(that.matches))
	for matchID := range that.matches {
		matchIDs = append(matchIDs, matchID)
	}

	return matchIDs
}

func (that *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.close()
	}()

	for {
		select {
		case <-that.closed:
			return
		case data := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				that.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump hands every decoded frame to handle until the connection fails.
func (that *session) readPump(handle func(*Message)) {
	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			that.logger.Debug("failed to unmarshal message", "error", err)
			that.replyError("", errBadMessage)
			continue
		}

		handle(&message)
	}
}
