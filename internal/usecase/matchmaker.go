package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	// searchLimit caps how many candidates a classic search looks at.
	searchLimit = 10
	matchSeats  = 2
)

type matchStore interface {
	ListMatches(ctx context.Context, query entity.MatchQuery) ([]entity.MatchInfo, error)
	CreateMatch(ctx context.Context, params map[string]string) (string, error)
}

type Matchmaker struct {
	logger  *slog.Logger
	matches matchStore
}

func NewMatchmaker(logger *slog.Logger, matches matchStore) *Matchmaker {
	return &Matchmaker{
		logger:  logger.With("component", "matchmaker"),
		matches: matches,
	}
}

// FindMatch returns an open classic match with a free seat, or a new match. AI matches are always new.
func (that *Matchmaker) FindMatch(ctx context.Context, requesterID string, fast, ai bool) (string, error) {
	log := that.logger.With("method", "FindMatch", "userID", requesterID, "fast", fast, "ai", ai)

	if ai {
		matchID, err := that.create(ctx, fast, true)
		if err != nil {
			return "", err
		}

		log.Info("created ai match", "matchID", matchID)

		return matchID, nil
	}

	candidates, err := that.matches.ListMatches(ctx, entity.MatchQuery{
		Label:   entity.NewMatchLabel(fast, false),
		MinSize: 0,
		MaxSize: matchSeats - 1,
		Limit:   searchLimit,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list matches: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.Size < matchSeats {
			log.Info("found open match", "matchID", candidate.MatchID, "size", candidate.Size)

			return candidate.MatchID, nil
		}
	}

	matchID, err := that.create(ctx, fast, false)
	if err != nil {
		return "", err
	}

	log.Info("created classic match", "matchID", matchID)

	return matchID, nil
}

func (that *Matchmaker) create(ctx context.Context, fast, ai bool) (string, error) {
	matchID, err := that.matches.CreateMatch(ctx, map[string]string{
		"fast": strconv.FormatBool(fast),
		"ai":   strconv.FormatBool(ai),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create match: %w", err)
	}

	return matchID, nil
}
