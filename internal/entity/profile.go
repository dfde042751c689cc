package entity

type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

const (
	winScore  = 50
	lossScore = -10
)

// ScoreChange returns the score delta applied for a result.
func (that Result) ScoreChange() int {
	switch that {
	case ResultWin:
		return winScore
	case ResultLoss:
		return lossScore
	default:
		return 0
	}
}

// DefaultUsername is used when a player never picked a name.
const DefaultUsername = "Player"

type Profile struct {
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Draws     int    `json:"draws"`
	AvatarURL string `json:"avatar_url,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

func NewProfile(username string, nowMs int64) *Profile {
	return &Profile{
		Username:  username,
		CreatedAt: nowMs,
		UpdatedAt: nowMs,
	}
}

// Apply records a round result and returns the score change.
func (that *Profile) Apply(result Result, nowMs int64) int {
	switch result {
	case ResultWin:
		that.Wins++
	case ResultLoss:
		that.Losses++
	case ResultDraw:
		that.Draws++
	}

	change := result.ScoreChange()
	that.Score += change
	that.UpdatedAt = nowMs

	return change
}

// RankedProfile is a leaderboard row.
type RankedProfile struct {
	Profile
	UserID string `json:"user_id"`
}

type HistoryEntry struct {
	MatchID          string `json:"match_id"`
	OpponentID       string `json:"opponent_id"`
	OpponentUsername string `json:"opponent_username"`
	Result           Result `json:"result"`
	ScoreChange      int    `json:"score_change"`
	Timestamp        int64  `json:"timestamp"`
	IsAI             bool   `json:"is_ai"`
}
