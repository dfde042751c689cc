package match

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

// Dispatcher delivers the side effects of a match callback.
type Dispatcher interface {
	// BroadcastMessage sends to the given presences, or to everyone in the match when presences is nil.
	BroadcastMessage(opCode entity.OpCode, data []byte, presences []entity.Presence) error
	MatchLabelUpdate(label string) error
}

type MoveProvider interface {
	Move(ctx context.Context, board tictactoe.Board, aiMark entity.Mark) (*entity.MatchMessage, error)
}

type ResultRecorder interface {
	RecordMatchResult(ctx context.Context, result entity.MatchResult) error
}

type Config struct {
	Timing               tictactoe.Timing
	MaxEmptySec          int
	DelayBetweenGamesSec int
}

// Handler implements the match lifecycle callbacks. It holds no per-match data.
type Handler struct {
	logger   *slog.Logger
	config   Config
	ai       MoveProvider
	recorder ResultRecorder
	now      func() time.Time
}

func NewHandler(logger *slog.Logger, config Config, ai MoveProvider, recorder ResultRecorder) *Handler {
	return &Handler{
		logger:   logger.With("component", "match"),
		config:   config,
		ai:       ai,
		recorder: recorder,
		now:      time.Now,
	}
}

// Init creates the state of a new match and returns it with the tick rate and the encoded label.
func (that *Handler) Init(_ context.Context, matchID string, params map[string]string) (*State, int, string) {
	fast := parseBool(params["fast"])
	ai := parseBool(params["ai"])

	label := entity.NewMatchLabel(fast, ai)
	state := newState(matchID, label, ai)

	that.logger.Info("match initialized",
		"matchID", matchID,
		"fast", fast,
		"ai", ai,
		"tickRate", that.config.Timing.TickRate,
	)

	return state, that.config.Timing.TickRate, label.Encode()
}

// JoinAttempt decides whether a presence may join. Accepted attempts reserve a seat until Join.
func (that *Handler) JoinAttempt(_ context.Context, state *State, presence entity.Presence) error {
	log := that.logger.With("method", "JoinAttempt", "matchID", state.MatchID, "userID", presence.UserID)

	switch state.SeatStatus(presence.UserID) {
	case SeatDisconnected:
		state.JoinsInProgress++
		log.Info("player rejoining after disconnect")

		return nil
	case SeatConnected:
		log.Warn("player rejected", "reason", apperror.ErrAlreadyJoined)

		return apperror.ErrAlreadyJoined
	case SeatNeverJoined:
	}

	humans := state.heldHumanSeats()
	if humans+state.JoinsInProgress >= state.MaxHumanSeats() {
		log.Info("player rejected", "reason", apperror.ErrMatchFull, "humans", humans, "joining", state.JoinsInProgress)

		return apperror.ErrMatchFull
	}

	state.JoinsInProgress++
	log.Info("join attempt accepted", "humans", humans, "joining", state.JoinsInProgress)

	return nil
}

func (that *Handler) Join(_ context.Context, dispatcher Dispatcher, state *State, presences []entity.Presence) {
	log := that.logger.With("method", "Join", "matchID", state.MatchID)

	for _, presence := range presences {
		state.EmptyTicks = 0
		state.connect(presence)
		if state.JoinsInProgress > 0 {
			state.JoinsInProgress--
		}

		log.Info("player joined", "userID", presence.UserID, "playing", state.Playing)

		target := []entity.Presence{presence}
		switch {
		case state.Playing:
			that.broadcast(dispatcher, entity.OpCodeUpdate, that.updatePayload(state), target)
		case state.Board.Started() && state.Marks[presence.UserID] != entity.MarkUndefined:
			that.broadcast(dispatcher, entity.OpCodeDone, that.donePayload(state), target)
		}
	}

	if state.HumanCount() >= state.MaxHumanSeats() && state.Label.IsOpen() {
		that.setOpen(dispatcher, state, false)
	}
}

func (that *Handler) Leave(_ context.Context, dispatcher Dispatcher, state *State, presences []entity.Presence) {
	log := that.logger.With("method", "Leave", "matchID", state.MatchID)

	for _, presence := range presences {
		if state.disconnect(presence.UserID) {
			log.Info("player left", "userID", presence.UserID, "playing", state.Playing)
		}
	}

	if state.HumanCount() < state.MaxHumanSeats() && !state.Label.IsOpen() && !state.Playing {
		that.setOpen(dispatcher, state, true)
	}

	remaining := state.ConnectedHumans()
	switch {
	case len(remaining) == 1:
		that.broadcast(dispatcher, entity.OpCodeOpponentLeft, nil, remaining)
		log.Info("notified remaining player", "userID", remaining[0].UserID)
	case len(remaining) == 0 && state.AI:
		state.removeSeat(entity.AIUserID)
		state.dropMark(entity.AIUserID)
		state.PendingAIMessage = nil
		state.AI = false
		log.Info("ai player removed")
	}
}

// Loop runs one tick. It returns false when the match should close.
func (that *Handler) Loop(ctx context.Context, dispatcher Dispatcher, state *State, messages []entity.MatchMessage) bool {
	log := that.logger.With("method", "Loop", "matchID", state.MatchID)

	if state.HumanCount()+state.JoinsInProgress == 0 {
		state.EmptyTicks++
		if state.EmptyTicks >= that.config.MaxEmptySec*that.config.Timing.TickRate {
			log.Info("closing idle match", "emptyTicks", state.EmptyTicks)

			return false
		}
	} else {
		state.EmptyTicks = 0
	}

	if !state.Playing {
		that.lobby(dispatcher, state)

		return true
	}

	if state.PendingAIMessage != nil {
		messages = append(messages, *state.PendingAIMessage)
		state.PendingAIMessage = nil
	}

	for _, message := range messages {
		switch message.OpCode {
		case entity.OpCodeMove:
			that.move(ctx, dispatcher, state, message)
		case entity.OpCodeInviteAI:
			that.inviteAI(state)
		default:
			that.reject(dispatcher, message.Sender)
			log.Error("unexpected op code", "opCode", message.OpCode, "userID", message.Sender.UserID)
		}
	}

	if state.Playing {
		state.DeadlineRemainingTicks--
		if state.DeadlineRemainingTicks <= 0 {
			log.Info("turn timed out", "mark", state.Mark)

			that.endRound(ctx, state, tictactoe.Opponent(state.Mark), nil)
			that.broadcast(dispatcher, entity.OpCodeDone, that.donePayload(state), nil)
		}
	}

	if state.Playing && state.AI && state.PendingAIMessage == nil {
		if aiMark, ok := state.Marks[entity.AIUserID]; ok && aiMark == state.Mark {
			that.aiTurn(ctx, state, aiMark)
		}
	}

	return true
}

// Terminate is called when the host shuts down. It leaves the state unchanged.
func (that *Handler) Terminate(_ context.Context, state *State, graceSeconds int) {
	that.logger.Info("match terminating",
		"matchID", state.MatchID,
		"graceSeconds", graceSeconds,
		"humans", state.HumanCount(),
	)
}

// Signal accepts out-of-band data and has nothing to answer yet.
func (that *Handler) Signal(_ context.Context, state *State, data string) string {
	that.logger.Debug("match signalled", "matchID", state.MatchID, "data", data)

	return ""
}

func (that *Handler) lobby(dispatcher Dispatcher, state *State) {
	log := that.logger.With("method", "lobby", "matchID", state.MatchID)

	state.purgeDisconnected()

	if state.connectedSeats() < 2 {
		if !state.Label.IsOpen() {
			that.setOpen(dispatcher, state, true)
		}
		return
	}

	if state.NextGameRemainingTicks > 0 {
		state.NextGameRemainingTicks--
		return
	}

	state.Playing = true
	state.Board = tictactoe.NewBoard()
	state.resetMarks()

	next := entity.MarkX
	for _, seat := range state.seats {
		switch {
		case state.AI && seat.UserID == entity.AIUserID:
			state.assignMark(seat.UserID, entity.MarkO)
		case state.AI:
			state.assignMark(seat.UserID, entity.MarkX)
		default:
			state.assignMark(seat.UserID, next)
			next = tictactoe.Opponent(next)
		}
	}

	state.Mark = entity.MarkX
	state.Winner = entity.MarkUndefined
	state.WinnerPositions = nil
	state.DeadlineRemainingTicks = tictactoe.DeadlineTicks(state.Label, that.config.Timing)
	state.NextGameRemainingTicks = 0

	log.Info("round started", "marks", state.Marks)

	marks := make(map[string]entity.Mark, len(state.Marks))
	for userID, mark := range state.Marks {
		marks[userID] = mark
	}

	that.broadcast(dispatcher, entity.OpCodeStart, entity.StartPayload{
		Board:    state.Board.Clone(),
		Marks:    marks,
		Mark:     state.Mark,
		Deadline: that.deadline(state.DeadlineRemainingTicks),
	}, nil)
}

// moveRequest tells a missing position apart from position 0.
type moveRequest struct {
	Position *int `json:"position"`
}

func (that *Handler) move(ctx context.Context, dispatcher Dispatcher, state *State, message entity.MatchMessage) {
	log := that.logger.With("method", "move", "matchID", state.MatchID, "userID", message.Sender.UserID)

	mark, ok := state.Marks[message.Sender.UserID]
	if !ok || mark != state.Mark {
		that.reject(dispatcher, message.Sender)
		return
	}

	var req moveRequest
	if err := json.Unmarshal(message.Data, &req); err != nil || req.Position == nil {
		log.Debug("bad move payload", "error", err)
		that.reject(dispatcher, message.Sender)

		return
	}

	position := *req.Position
	if !state.Board.IsFree(position) {
		that.reject(dispatcher, message.Sender)
		return
	}

	state.Board[position] = mark
	state.Mark = tictactoe.Opponent(mark)
	state.DeadlineRemainingTicks = tictactoe.DeadlineTicks(state.Label, that.config.Timing)

	if positions, won := tictactoe.WinCheck(state.Board, mark); won {
		log.Info("round won", "mark", mark, "positions", positions)
		that.endRound(ctx, state, mark, positions)
	} else if tictactoe.IsFull(state.Board) {
		log.Info("round drawn")
		that.endRound(ctx, state, entity.MarkUndefined, nil)
	}

	if state.Playing {
		that.broadcast(dispatcher, entity.OpCodeUpdate, that.updatePayload(state), nil)
		return
	}

	that.broadcast(dispatcher, entity.OpCodeDone, that.donePayload(state), nil)
}

func (that *Handler) inviteAI(state *State) {
	log := that.logger.With("method", "inviteAI", "matchID", state.MatchID)

	if state.AI {
		log.Error("ai player is already playing")
		return
	}

	for _, userID := range state.purgeDisconnected() {
		state.dropMark(userID)
	}

	active := state.ConnectedHumans()
	if len(active) != 1 {
		log.Error("one active player is required to enable ai mode", "active", len(active))
		return
	}

	state.AI = true
	state.connect(entity.AIPresence)

	aiMark := entity.MarkO
	if state.Marks[active[0].UserID] == entity.MarkO {
		aiMark = entity.MarkX
	}
	state.assignMark(entity.AIUserID, aiMark)

	log.Info("ai player joined", "mark", aiMark)
}

func (that *Handler) aiTurn(ctx context.Context, state *State, aiMark entity.Mark) {
	log := that.logger.With("method", "aiTurn", "matchID", state.MatchID)

	message, err := that.ai.Move(ctx, state.Board.Clone(), aiMark)
	if err != nil {
		log.Warn("ai move failed", "error", err)
		return
	}

	state.PendingAIMessage = message
}

// endRound freezes the round and hands the result to the recorder.
func (that *Handler) endRound(ctx context.Context, state *State, winner entity.Mark, positions []int) {
	state.Playing = false
	state.Winner = winner
	state.WinnerPositions = positions
	state.DeadlineRemainingTicks = 0
	state.NextGameRemainingTicks = that.config.DelayBetweenGamesSec * that.config.Timing.TickRate

	participants := state.participants()
	ai := state.AI
	for _, participant := range participants {
		if participant.UserID == entity.AIUserID {
			ai = true
		}
	}

	err := that.recorder.RecordMatchResult(ctx, entity.MatchResult{
		MatchID:      state.MatchID,
		AI:           ai,
		Winner:       winner,
		Participants: participants,
	})
	if err != nil {
		that.logger.Error("failed to record match result", "matchID", state.MatchID, "error", err)
	}
}

func (that *Handler) setOpen(dispatcher Dispatcher, state *State, open bool) {
	state.Label.Open = 0
	if open {
		state.Label.Open = 1
	}

	label := state.Label.Encode()
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		that.logger.Error("failed to update label", "matchID", state.MatchID, "error", err)
		return
	}

	that.logger.Info("label updated", "matchID", state.MatchID, "label", label)
}

func (that *Handler) reject(dispatcher Dispatcher, sender entity.Presence) {
	if sender.IsAI() {
		that.logger.Warn("ai move rejected")
		return
	}

	that.broadcast(dispatcher, entity.OpCodeRejected, nil, []entity.Presence{sender})
}

func (that *Handler) broadcast(dispatcher Dispatcher, opCode entity.OpCode, payload any, presences []entity.Presence) {
	var data []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			that.logger.Error("failed to marshal payload", "opCode", opCode, "error", err)
			return
		}
		data = encoded
	}

	if err := dispatcher.BroadcastMessage(opCode, data, presences); err != nil {
		that.logger.Error("failed to broadcast", "opCode", opCode, "error", err)
	}
}

func (that *Handler) updatePayload(state *State) entity.UpdatePayload {
	return entity.UpdatePayload{
		Board:    state.Board.Clone(),
		Mark:     state.Mark,
		Deadline: that.deadline(state.DeadlineRemainingTicks),
	}
}

func (that *Handler) donePayload(state *State) entity.DonePayload {
	return entity.DonePayload{
		Board:           state.Board.Clone(),
		Winner:          state.Winner,
		WinnerPositions: state.WinnerPositions,
		NextGameStart:   that.deadline(state.NextGameRemainingTicks),
	}
}

// deadline converts a tick countdown into a unix timestamp in seconds.
func (that *Handler) deadline(ticks int) int64 {
	return that.now().Unix() + tictactoe.TicksToSeconds(ticks, that.config.Timing.TickRate)
}

// parseBool treats empty, "0" and "false" as false and any other value as true.
func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "", "0", "false":
		return false
	default:
		return true
	}
}
