package match

import (
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type SeatStatus int

const (
	SeatNeverJoined SeatStatus = iota
	SeatConnected
	SeatDisconnected
)

func (s SeatStatus) String() string {
	switch s {
	case SeatConnected:
		return "connected"
	case SeatDisconnected:
		return "disconnected"
	default:
		return "never joined"
	}
}

// Seat is a player slot. Presence is only meaningful while the seat is connected.
type Seat struct {
	UserID   string
	Status   SeatStatus
	Presence entity.Presence
}

// State is the mutable state of a single match. Only the match's own callbacks may touch it.
type State struct {
	MatchID string
	Label   entity.MatchLabel

	// EmptyTicks counts consecutive ticks without connected or joining humans.
	EmptyTicks int
	// JoinsInProgress counts admitted connections that have not joined yet.
	JoinsInProgress int

	Playing bool
	Board   tictactoe.Board
	Marks   map[string]entity.Mark
	// Mark is whose turn it is.
	Mark                   entity.Mark
	DeadlineRemainingTicks int

	Winner                 entity.Mark
	WinnerPositions        []int
	NextGameRemainingTicks int

	AI               bool
	PendingAIMessage *entity.MatchMessage

	// seats are kept in first-join order, marks are handed out in that order.
	seats []Seat
	// markOrder is the order marks were assigned in for the current round.
	markOrder []string
}

func newState(matchID string, label entity.MatchLabel, ai bool) *State {
	state := &State{
		MatchID: matchID,
		Label:   label,
		Marks:   make(map[string]entity.Mark),
		AI:      ai,
	}

	if ai {
		state.connect(entity.AIPresence)
	}

	return state
}

// SeatStatus reports the seat status of a player.
func (that *State) SeatStatus(userID string) SeatStatus {
	if seat := that.seat(userID); seat != nil {
		return seat.Status
	}

	return SeatNeverJoined
}

// Seats returns a copy of the seat table.
func (that *State) Seats() []Seat {
	seats := make([]Seat, len(that.seats))
	copy(seats, that.seats)

	return seats
}

// ConnectedHumans returns the presences of connected human players in seat order.
func (that *State) ConnectedHumans() []entity.Presence {
	var presences []entity.Presence
	for _, seat := range that.seats {
		if seat.Status == SeatConnected && seat.UserID != entity.AIUserID {
			presences = append(presences, seat.Presence)
		}
	}

	return presences
}

// HumanCount is the match size reported to matchmaking.
func (that *State) HumanCount() int {
	return len(that.ConnectedHumans())
}

// heldHumanSeats counts human seats that are connected or kept for a rejoin.
func (that *State) heldHumanSeats() int {
	count := 0
	for _, seat := range that.seats {
		if seat.UserID != entity.AIUserID && seat.Status != SeatNeverJoined {
			count++
		}
	}

	return count
}

// MaxHumanSeats is the human capacity of the match.
func (that *State) MaxHumanSeats() int {
	if that.AI {
		return 1
	}
	return 2
}

func (that *State) seat(userID string) *Seat {
	for i := range that.seats {
		if that.seats[i].UserID == userID {
			return &that.seats[i]
		}
	}

	return nil
}

func (that *State) connect(presence entity.Presence) {
	if seat := that.seat(presence.UserID); seat != nil {
		seat.Status = SeatConnected
		seat.Presence = presence

		return
	}

	that.seats = append(that.seats, Seat{
		UserID:   presence.UserID,
		Status:   SeatConnected,
		Presence: presence,
	})
}

func (that *State) disconnect(userID string) bool {
	seat := that.seat(userID)
	if seat == nil {
		return false
	}

	seat.Status = SeatDisconnected
	seat.Presence = entity.Presence{}

	return true
}

func (that *State) removeSeat(userID string) {
	for i := range that.seats {
		if that.seats[i].UserID == userID {
			that.seats = append(that.seats[:i], that.seats[i+1:]...)
			return
		}
	}
}

// purgeDisconnected drops disconnected seats and returns their user ids.
func (that *State) purgeDisconnected() []string {
	var purged []string

	kept := that.seats[:0]
	for _, seat := range that.seats {
		if seat.Status == SeatDisconnected {
			purged = append(purged, seat.UserID)
			continue
		}
		kept = append(kept, seat)
	}
	that.seats = kept

	return purged
}

func (that *State) connectedSeats() int {
	count := 0
	for _, seat := range that.seats {
		if seat.Status == SeatConnected {
			count++
		}
	}

	return count
}

func (that *State) assignMark(userID string, mark entity.Mark) {
	if _, ok := that.Marks[userID]; !ok {
		that.markOrder = append(that.markOrder, userID)
	}
	that.Marks[userID] = mark
}

func (that *State) dropMark(userID string) {
	if _, ok := that.Marks[userID]; !ok {
		return
	}

	delete(that.Marks, userID)
	for i, id := range that.markOrder {
		if id == userID {
			that.markOrder = append(that.markOrder[:i], that.markOrder[i+1:]...)
			break
		}
	}
}

func (that *State) resetMarks() {
	that.Marks = make(map[string]entity.Mark)
	that.markOrder = nil
}

func (that *State) participants() []entity.Participant {
	participants := make([]entity.Participant, 0, len(that.markOrder))
	for _, userID := range that.markOrder {
		participants = append(participants, entity.Participant{
			UserID: userID,
			Mark:   that.Marks[userID],
		})
	}

	return participants
}
