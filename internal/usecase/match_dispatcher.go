package usecase

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Notifier delivers match messages to a connected player.
type Notifier interface {
	Notify(presence entity.Presence, matchID string, opCode entity.OpCode, data []byte) error
}

// matchDispatcher is the match.Dispatcher of a single hosted match.
type matchDispatcher struct {
	handle   *matchHandle
	notifier Notifier
}

func (that *matchDispatcher) BroadcastMessage(opCode entity.OpCode, data []byte, presences []entity.Presence) error {
	targets := presences
	if targets == nil {
		targets = that.handle.joined()
	}

	var errs []error
	for _, presence := range targets {
		if presence.IsAI() {
			continue
		}

		if err := that.notifier.Notify(presence, that.handle.id, opCode, data); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", presence.UserID, err))
		}
	}

	return errors.Join(errs...)
}

// MatchLabelUpdate stores the label before returning, so the next query sees it.
func (that *matchDispatcher) MatchLabelUpdate(label string) error {
	decoded, err := entity.DecodeMatchLabel(label)
	if err != nil {
		return err
	}

	that.handle.setLabel(decoded)

	return nil
}
