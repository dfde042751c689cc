package entity

// AIUserID is the sentinel id of the AI pseudo-player seat.
const AIUserID = "ai-user-id"

// Presence is one connected session of a player inside a match.
type Presence struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Username  string `json:"username,omitempty"`
}

// AIPresence is the presence used as the sender of AI-synthesized moves.
var AIPresence = Presence{
	UserID:   AIUserID,
	Username: AIUserID,
}

func (that Presence) IsAI() bool {
	return that.UserID == AIUserID
}
