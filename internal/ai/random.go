package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// RandomProvider picks any free cell. It is used when no scoring service is configured.
type RandomProvider struct {
	intn func(n int) int
	now  func() time.Time
}

func NewRandomProvider() *RandomProvider {
	return &RandomProvider{
		intn: rand.IntN, //nolint: gosec // move choice needs no crypto
		now:  time.Now,
	}
}

func (that *RandomProvider) Move(_ context.Context, board tictactoe.Board, _ entity.Mark) (*entity.MatchMessage, error) {
	available := make([]int, 0, len(board))
	for i := range board {
		if board.IsFree(i) {
			available = append(available, i)
		}
	}

	if len(available) == 0 {
		return nil, ErrNoAvailableMoves
	}

	data, err := json.Marshal(entity.MovePayload{Position: available[that.intn(len(available))]})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal random move: %w", err)
	}

	return &entity.MatchMessage{
		Sender:      entity.AIPresence,
		OpCode:      entity.OpCodeMove,
		Data:        data,
		ReceiveTime: that.now(),
	}, nil
}
