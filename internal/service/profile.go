package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 20

	historyPageSize = 10
	leaderboardSize = 100
)

type ProfileService interface {
	GetOrCreateProfile(ctx context.Context, playerID string) (*entity.Profile, error)
	UpdateUsername(ctx context.Context, playerID, username string) (*entity.Profile, error)
	MatchHistory(ctx context.Context, playerID string) ([]entity.HistoryEntry, error)
	Leaderboard(ctx context.Context) ([]entity.RankedProfile, error)

	RecordMatchResult(ctx context.Context, result entity.MatchResult) error
}

type profileRepo interface {
	GetByID(ctx context.Context, playerID string) (*entity.Profile, error)
	Save(ctx context.Context, playerID string, profile *entity.Profile) error
	AppendHistory(ctx context.Context, playerID string, entry entity.HistoryEntry) error
	ListHistory(ctx context.Context, playerID string, limit int) ([]entity.HistoryEntry, error)
	TopByScore(ctx context.Context, limit int) ([]entity.RankedProfile, error)
}

type accountRepo interface {
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)
	Upsert(ctx context.Context, account *entity.Account) error
}

type profileService struct {
	logger      *slog.Logger
	profileRepo profileRepo
	accountRepo accountRepo
	now         func() time.Time
}

func NewProfileService(logger *slog.Logger, profileRepo profileRepo, accountRepo accountRepo) ProfileService {
	return &profileService{
		logger:      logger.With("component", "profile"),
		profileRepo: profileRepo,
		accountRepo: accountRepo,
		now:         time.Now,
	}
}

func (that *profileService) GetOrCreateProfile(ctx context.Context, playerID string) (*entity.Profile, error) {
	profile, err := that.profileRepo.GetByID(ctx, playerID)
	if err == nil {
		return profile, nil
	}

	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile = entity.NewProfile(that.username(ctx, playerID, entity.DefaultUsername), that.now().UnixMilli())
	if err = that.profileRepo.Save(ctx, playerID, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

func (that *profileService) UpdateUsername(ctx context.Context, playerID, username string) (*entity.Profile, error) {
	username = strings.TrimSpace(username)
	if length := utf8.RuneCountInString(username); length < minUsernameLength || length > maxUsernameLength {
		return nil, apperror.ErrInvalidUsername
	}

	owner, err := that.accountRepo.FindByUsername(ctx, username)
	switch {
	case err == nil && owner.ID != playerID:
		return nil, apperror.ErrUsernameTaken
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	account, err := that.accountRepo.GetByID(ctx, playerID)
	if errors.Is(err, apperror.ErrNotFound) {
		account = &entity.Account{ID: playerID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Username = username
	if err = that.accountRepo.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	profile, err := that.GetOrCreateProfile(ctx, playerID)
	if err != nil {
		return nil, err
	}

	profile.Username = username
	profile.UpdatedAt = that.now().UnixMilli()
	if err = that.profileRepo.Save(ctx, playerID, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return profile, nil
}

func (that *profileService) MatchHistory(ctx context.Context, playerID string) ([]entity.HistoryEntry, error) {
	entries, err := that.profileRepo.ListHistory(ctx, playerID, historyPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get match history: %w", err)
	}

	return entries, nil
}

func (that *profileService) Leaderboard(ctx context.Context) ([]entity.RankedProfile, error) {
	top, err := that.profileRepo.TopByScore(ctx, leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	return top, nil
}

// RecordMatchResult updates both players' stats and history. AI rounds are not counted.
func (that *profileService) RecordMatchResult(ctx context.Context, result entity.MatchResult) error {
	log := that.logger.With("method", "RecordMatchResult", "matchID", result.MatchID)

	if result.AI {
		log.Info("skipping profile update for ai match")
		return nil
	}

	var humans []entity.Participant
	for _, participant := range result.Participants {
		if participant.UserID != entity.AIUserID {
			humans = append(humans, participant)
		}
	}

	if len(humans) != 2 {
		log.Warn("cannot update profiles", "players", len(humans))
		return nil
	}

	names := [2]string{
		that.username(ctx, humans[0].UserID, "Player 1"),
		that.username(ctx, humans[1].UserID, "Player 2"),
	}

	var errs []error
	for i, player := range humans {
		opponent := humans[1-i]

		if err := that.applyResult(ctx, result, player, opponent.UserID, names[1-i]); err != nil {
			log.Error("failed to update profile", "userID", player.UserID, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (that *profileService) applyResult(
	ctx context.Context,
	result entity.MatchResult,
	player entity.Participant,
	opponentID, opponentName string,
) error {
	profile, err := that.GetOrCreateProfile(ctx, player.UserID)
	if err != nil {
		return err
	}

	now := that.now().UnixMilli()
	outcome := result.ResultFor(player.Mark)
	change := profile.Apply(outcome, now)

	if err = that.profileRepo.Save(ctx, player.UserID, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	err = that.profileRepo.AppendHistory(ctx, player.UserID, entity.HistoryEntry{
		MatchID:          result.MatchID,
		OpponentID:       opponentID,
		OpponentUsername: opponentName,
		Result:           outcome,
		ScoreChange:      change,
		Timestamp:        now,
		IsAI:             result.AI,
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// username looks up the account name and falls back when there is none.
func (that *profileService) username(ctx context.Context, playerID, fallback string) string {
	account, err := that.accountRepo.GetByID(ctx, playerID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			that.logger.Error("failed to get account", "userID", playerID, "error", err)
		}
		return fallback
	}

	if account.Username == "" {
		return fallback
	}

	return account.Username
}
