package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

var (
	ErrUnexpectedResponse = errors.New("unexpected prediction response")
	ErrNoPrediction       = errors.New("prediction has no scores")
)

// maxResponseSize bounds how much of a prediction response is read.
const maxResponseSize = 64 << 10

// cell is the one-hot encoding of a board cell: [is_ai_mark, is_opponent_mark].
type cell [2]int

type predictRequest struct {
	Instances [][3][3]cell `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// Provider asks an external scoring service for the AI's next move.
type Provider struct {
	logger  *slog.Logger
	client  *http.Client
	address string
	now     func() time.Time
}

func New(logger *slog.Logger, address string, timeout time.Duration) *Provider {
	return &Provider{
		logger:  logger.With("component", "ai"),
		client:  &http.Client{Timeout: timeout},
		address: address,
		now:     time.Now,
	}
}

// Move returns a move message sent by the AI presence for the highest scored cell.
func (that *Provider) Move(ctx context.Context, board tictactoe.Board, aiMark entity.Mark) (*entity.MatchMessage, error) {
	log := that.logger.With("method", "Move")

	scores, err := that.predict(ctx, EncodeBoard(board, aiMark))
	if err != nil {
		return nil, err
	}

	position, ok := BestPosition(scores)
	if !ok {
		return nil, ErrNoPrediction
	}

	data, err := json.Marshal(entity.MovePayload{Position: position})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ai move: %w", err)
	}

	log.Debug("ai picked a move", "position", position)

	return &entity.MatchMessage{
		Sender:      entity.AIPresence,
		OpCode:      entity.OpCodeMove,
		Data:        data,
		ReceiveTime: that.now(),
	}, nil
}

func (that *Provider) predict(ctx context.Context, instance [3][3]cell) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][3][3]cell{instance}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, that.address, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := that.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request prediction: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	var decoded predictResponse
	if err = json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}

	if len(decoded.Predictions) == 0 {
		return nil, ErrNoPrediction
	}

	return decoded.Predictions[0], nil
}

// EncodeBoard converts a board into the 3x3 grid of one-hot cells the model expects.
func EncodeBoard(board tictactoe.Board, aiMark entity.Mark) [3][3]cell {
	var grid [3][3]cell

	for i, mark := range board {
		if i >= tictactoe.BoardSize {
			break
		}

		switch mark {
		case entity.MarkUndefined:
		case aiMark:
			grid[i/3][i%3] = cell{1, 0}
		default:
			grid[i/3][i%3] = cell{0, 1}
		}
	}

	return grid
}

// BestPosition returns the index of the highest score; ties keep the lowest index.
func BestPosition(scores []float64) (int, bool) {
	best := -1
	for i, score := range scores {
		if i >= tictactoe.BoardSize {
			break
		}
		if best == -1 || score > scores[best] {
			best = i
		}
	}

	return best, best >= 0
}
