package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/match"
)

type MatchHandler interface {
	Init(ctx context.Context, matchID string, params map[string]string) (*match.State, int, string)
	JoinAttempt(ctx context.Context, state *match.State, presence entity.Presence) error
	Join(ctx context.Context, dispatcher match.Dispatcher, state *match.State, presences []entity.Presence)
	Leave(ctx context.Context, dispatcher match.Dispatcher, state *match.State, presences []entity.Presence)
	Loop(ctx context.Context, dispatcher match.Dispatcher, state *match.State, messages []entity.MatchMessage) bool
	Terminate(ctx context.Context, state *match.State, graceSeconds int)
	Signal(ctx context.Context, state *match.State, data string) string
}

// matchHandle is the manager's view of a running match. Everything in State belongs to the match goroutine.
type matchHandle struct {
	id       string
	seq      uint64
	commands chan func(*match.State)
	quit     chan struct{}
	done     chan struct{}

	dispatcher *matchDispatcher
	stopOnce   sync.Once

	mu        sync.RWMutex
	label     entity.MatchLabel
	size      int
	presences map[string]entity.Presence
	order     []string
	inbox     []entity.MatchMessage
}

func (that *matchHandle) call(ctx context.Context, fn func(*match.State)) error {
	finished := make(chan struct{})

	select {
	case that.commands <- func(state *match.State) {
		fn(state)
		close(finished)
	}:
	case <-that.done:
		return apperror.ErrMatchNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished

	return nil
}

func (that *matchHandle) setLabel(label entity.MatchLabel) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.label = label
}

func (that *matchHandle) info() entity.MatchInfo {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return entity.MatchInfo{MatchID: that.id, Size: that.size, Label: that.label}
}

func (that *matchHandle) setSize(size int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.size = size
}

func (that *matchHandle) addPresence(presence entity.Presence) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.presences[presence.UserID]; !ok {
		that.order = append(that.order, presence.UserID)
	}
	that.presences[presence.UserID] = presence
}

func (that *matchHandle) removePresence(presence entity.Presence) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	current, ok := that.presences[presence.UserID]
	if !ok || current.SessionID != presence.SessionID {
		return false
	}

	delete(that.presences, presence.UserID)
	for i, userID := range that.order {
		if userID == presence.UserID {
			that.order = append(that.order[:i], that.order[i+1:]...)
			break
		}
	}

	return true
}

func (that *matchHandle) isJoined(presence entity.Presence) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	current, ok := that.presences[presence.UserID]

	return ok && current.SessionID == presence.SessionID
}

// joined returns the joined presences in join order.
func (that *matchHandle) joined() []entity.Presence {
	that.mu.RLock()
	defer that.mu.RUnlock()

	presences := make([]entity.Presence, 0, len(that.order))
	for _, userID := range that.order {
		presences = append(presences, that.presences[userID])
	}

	return presences
}

func (that *matchHandle) push(message entity.MatchMessage) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.inbox = append(that.inbox, message)
}

func (that *matchHandle) drain() []entity.MatchMessage {
	that.mu.Lock()
	defer that.mu.Unlock()

	messages := that.inbox
	that.inbox = nil

	return messages
}

// MatchManager hosts matches. Each match runs its callbacks on its own goroutine.
type MatchManager struct {
	logger   *slog.Logger
	handler  MatchHandler
	notifier Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	matches map[string]*matchHandle
	seq     uint64
	closed  bool
}

func NewMatchManager(logger *slog.Logger, handler MatchHandler) *MatchManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &MatchManager{
		logger:  logger.With("component", "match_manager"),
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		matches: make(map[string]*matchHandle),
	}
}

// SetNotifier must be called before the first match is created.
func (that *MatchManager) SetNotifier(notifier Notifier) {
	that.notifier = notifier
}

func (that *MatchManager) CreateMatch(ctx context.Context, params map[string]string) (string, error) {
	log := that.logger.With("method", "CreateMatch")

	matchID := uuid.NewString()
	state, tickRate, rawLabel := that.handler.Init(ctx, matchID, params)
	if tickRate <= 0 {
		return "", fmt.Errorf("invalid tick rate %d for match %s", tickRate, matchID)
	}

	label, err := entity.DecodeMatchLabel(rawLabel)
	if err != nil {
		return "", fmt.Errorf("failed to create match: %w", err)
	}

	handle := &matchHandle{
		id:        matchID,
		commands:  make(chan func(*match.State)),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		label:     label,
		presences: make(map[string]entity.Presence),
	}

	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return "", apperror.ErrMatchClosed
	}
	that.seq++
	handle.seq = that.seq
	that.matches[matchID] = handle
	that.wg.Add(1)
	that.mu.Unlock()

	handle.dispatcher = &matchDispatcher{handle: handle, notifier: that.notifier}
	go that.run(handle, state, tickRate)

	log.Info("match created", "matchID", matchID, "label", rawLabel)

	return matchID, nil
}

func (that *MatchManager) run(handle *matchHandle, state *match.State, tickRate int) {
	log := that.logger.With("matchID", handle.id)

	defer that.wg.Done()
	defer func() {
		that.mu.Lock()
		delete(that.matches, handle.id)
		that.mu.Unlock()

		close(handle.done)
		log.Info("match closed")
	}()

	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-handle.quit:
			return
		case <-that.ctx.Done():
			return
		case command := <-handle.commands:
			command(state)
			handle.setSize(state.HumanCount())
		case <-ticker.C:
			if !that.handler.Loop(that.ctx, handle.dispatcher, state, handle.drain()) {
				return
			}
			handle.setSize(state.HumanCount())
		}
	}
}

func (that *MatchManager) get(matchID string) (*matchHandle, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	handle, ok := that.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrMatchNotFound, matchID)
	}

	return handle, nil
}

// JoinMatch admits the presence and joins it in one step on the match goroutine.
func (that *MatchManager) JoinMatch(ctx context.Context, matchID string, presence entity.Presence) error {
	handle, err := that.get(matchID)
	if err != nil {
		return err
	}

	var rejected error
	err = handle.call(ctx, func(state *match.State) {
		if rejected = that.handler.JoinAttempt(that.ctx, state, presence); rejected != nil {
			return
		}

		handle.addPresence(presence)
		that.handler.Join(that.ctx, handle.dispatcher, state, []entity.Presence{presence})
	})
	if err != nil {
		return fmt.Errorf("failed to join match %s: %w", matchID, err)
	}

	if rejected != nil {
		return fmt.Errorf("join rejected: %w", rejected)
	}

	return nil
}

func (that *MatchManager) LeaveMatch(ctx context.Context, matchID string, presence entity.Presence) error {
	handle, err := that.get(matchID)
	if err != nil {
		return err
	}

	if !handle.removePresence(presence) {
		return apperror.ErrNotInMatch
	}

	err = handle.call(ctx, func(state *match.State) {
		that.handler.Leave(that.ctx, handle.dispatcher, state, []entity.Presence{presence})
	})
	if err != nil {
		return fmt.Errorf("failed to leave match %s: %w", matchID, err)
	}

	return nil
}

// SendMatchData queues a message for the next tick of the match.
func (that *MatchManager) SendMatchData(_ context.Context, matchID string, message entity.MatchMessage) error {
	handle, err := that.get(matchID)
	if err != nil {
		return err
	}

	if !handle.isJoined(message.Sender) {
		return apperror.ErrNotInMatch
	}

	if message.ReceiveTime.IsZero() {
		message.ReceiveTime = time.Now()
	}
	handle.push(message)

	return nil
}

func (that *MatchManager) SignalMatch(ctx context.Context, matchID, data string) (string, error) {
	handle, err := that.get(matchID)
	if err != nil {
		return "", err
	}

	var response string
	err = handle.call(ctx, func(state *match.State) {
		response = that.handler.Signal(that.ctx, state, data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to signal match %s: %w", matchID, err)
	}

	return response, nil
}

// ListMatches returns live matches that satisfy the query, oldest first.
func (that *MatchManager) ListMatches(_ context.Context, query entity.MatchQuery) ([]entity.MatchInfo, error) {
	that.mu.RLock()
	handles := make([]*matchHandle, 0, len(that.matches))
	for _, handle := range that.matches {
		handles = append(handles, handle)
	}
	that.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].seq < handles[j].seq
	})

	var found []entity.MatchInfo
	for _, handle := range handles {
		info := handle.info()
		if !query.Matches(info) {
			continue
		}

		found = append(found, info)
		if query.Limit > 0 && len(found) >= query.Limit {
			break
		}
	}

	return found, nil
}

// Shutdown terminates every match and waits for their goroutines until ctx expires.
func (that *MatchManager) Shutdown(ctx context.Context, graceSeconds int) error {
	that.mu.Lock()
	that.closed = true
	handles := make([]*matchHandle, 0, len(that.matches))
	for _, handle := range that.matches {
		handles = append(handles, handle)
	}
	that.mu.Unlock()

	for _, handle := range handles {
		err := handle.call(ctx, func(state *match.State) {
			that.handler.Terminate(ctx, state, graceSeconds)
		})
		if err == nil {
			handle.stopOnce.Do(func() { close(handle.quit) })
		}
	}

	that.cancel()

	finished := make(chan struct{})
	go func() {
		that.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop matches: %w", ctx.Err())
	}
}
