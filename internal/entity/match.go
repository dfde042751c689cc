package entity

// MatchInfo is what a matchmaking query returns for one live match.
type MatchInfo struct {
	MatchID string     `json:"match_id"`
	Size    int        `json:"size"`
	Label   MatchLabel `json:"label"`
}

// MatchQuery filters live matches by exact label fields and current size.
type MatchQuery struct {
	Label   MatchLabel
	MinSize int
	MaxSize int
	Limit   int
}

func (that MatchQuery) Matches(info MatchInfo) bool {
	if info.Label != that.Label {
		return false
	}

	return info.Size >= that.MinSize && info.Size <= that.MaxSize
}

// Participant is a seat holder of a finished round.
type Participant struct {
	UserID string
	Mark   Mark
}

// MatchResult describes a finished round for stats bookkeeping.
type MatchResult struct {
	MatchID      string
	AI           bool
	Winner       Mark
	Participants []Participant
}

// ResultFor returns the outcome of the round for the given mark.
func (that MatchResult) ResultFor(mark Mark) Result {
	switch that.Winner {
	case MarkUndefined:
		return ResultDraw
	case mark:
		return ResultWin
	default:
		return ResultLoss
	}
}
