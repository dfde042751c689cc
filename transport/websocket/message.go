package websocket

import "github.com/goccy/go-json"

const (
	actionFind  = "match:find"
	actionJoin  = "match:join"
	actionLeave = "match:leave"
	actionData  = "match:data"
	actionError = "error"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type FindRequest struct {
	Fast bool `json:"fast"`
	AI   bool `json:"ai"`
}

type FindResponse struct {
	MatchIDs []string `json:"match_ids"`
}

type MatchRequest struct {
	MatchID string `json:"match_id"`
}

// MatchData carries match messages. Data is the raw JSON body of the op code, if any.
type MatchData struct {
	MatchID string          `json:"match_id"`
	OpCode  int64           `json:"op_code"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type ErrorResponse struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}
