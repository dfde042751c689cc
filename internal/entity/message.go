package entity

import "time"

// OpCode identifies the kind of a match message in both directions.
type OpCode int64

const (
	// OpCodeStart announces a new round.
	OpCodeStart OpCode = 1
	// OpCodeUpdate carries the state of an ongoing round.
	OpCodeUpdate OpCode = 2
	// OpCodeDone announces that a round has ended.
	OpCodeDone OpCode = 3
	// OpCodeMove is a move a player wants to make.
	OpCodeMove OpCode = 4
	// OpCodeRejected tells the sender its message was refused.
	OpCodeRejected OpCode = 5
	// OpCodeOpponentLeft tells the remaining player the opponent is gone.
	OpCodeOpponentLeft OpCode = 6
	// OpCodeInviteAI asks the server to seat the AI in place of a departed opponent.
	OpCodeInviteAI OpCode = 7
)

// MatchMessage is one inbound message delivered to a match on a tick.
type MatchMessage struct {
	Sender      Presence
	OpCode      OpCode
	Data        []byte
	ReceiveTime time.Time
}

type MovePayload struct {
	Position int `json:"position"`
}

type StartPayload struct {
	Board    []Mark          `json:"board"`
	Marks    map[string]Mark `json:"marks"`
	Mark     Mark            `json:"mark"`
	Deadline int64           `json:"deadline"`
}

type UpdatePayload struct {
	Board    []Mark `json:"board"`
	Mark     Mark   `json:"mark"`
	Deadline int64  `json:"deadline"`
}

type DonePayload struct {
	Board           []Mark `json:"board"`
	Winner          Mark   `json:"winner"`
	WinnerPositions []int  `json:"winnerPositions"`
	NextGameStart   int64  `json:"nextGameStart"`
}
