package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var ErrProfileNotFound = errors.New("profile not found")

const (
	leaderboardKey = "leaderboard"
	// historyLimit is how many entries are kept per player.
	historyLimit = 100
)

type ProfileRepository interface {
	GetByID(ctx context.Context, playerID string) (*entity.Profile, error)
	Save(ctx context.Context, playerID string, profile *entity.Profile) error

	AppendHistory(ctx context.Context, playerID string, entry entity.HistoryEntry) error
	ListHistory(ctx context.Context, playerID string, limit int) ([]entity.HistoryEntry, error)

	TopByScore(ctx context.Context, limit int) ([]entity.RankedProfile, error)
}

type dbProfile struct {
	client *redis.Client
}

func NewProfileRepository(client *redis.Client) ProfileRepository {
	return &dbProfile{
		client: client,
	}
}

func profileKey(playerID string) string {
	return "profile:" + playerID
}

func historyKey(playerID string) string {
	return "history:" + playerID
}

func (that *dbProfile) GetByID(ctx context.Context, playerID string) (*entity.Profile, error) {
	response, err := that.client.Get(ctx, profileKey(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProfileNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}

	var profile entity.Profile
	if err = json.Unmarshal([]byte(response), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	return &profile, nil
}

// Save writes the profile and its leaderboard score in one transaction.
func (that *dbProfile) Save(ctx context.Context, playerID string, profile *entity.Profile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, profileKey(playerID), profileJSON, 0)
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(profile.Score), Member: playerID})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

func (that *dbProfile) AppendHistory(ctx context.Context, playerID string, entry entity.HistoryEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := historyKey(playerID)
	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, entryJSON)
		pipe.LTrim(ctx, key, 0, historyLimit-1)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// ListHistory returns up to limit entries, newest first.
func (that *dbProfile) ListHistory(ctx context.Context, playerID string, limit int) ([]entity.HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := that.client.LRange(ctx, historyKey(playerID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]entity.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		var entry entity.HistoryEntry
		if err = json.Unmarshal([]byte(row), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// TopByScore returns the best ranked profiles, highest score first.
func (that *dbProfile) TopByScore(ctx context.Context, limit int) ([]entity.RankedProfile, error) {
	if limit <= 0 {
		return nil, nil
	}

	playerIDs, err := that.client.ZRevRange(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	if len(playerIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(playerIDs))
	for i, playerID := range playerIDs {
		keys[i] = profileKey(playerID)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard profiles: %w", err)
	}

	ranked := make([]entity.RankedProfile, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var profile entity.Profile
		if err = json.Unmarshal([]byte(raw), &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
		}

		ranked = append(ranked, entity.RankedProfile{Profile: profile, UserID: playerIDs[i]})
	}

	return ranked, nil
}
