package websocket

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

func decodePayload(message *Message, target any) error {
	if len(message.Payload) == 0 {
		return errBadMessage
	}

	if err := json.Unmarshal(message.Payload, target); err != nil {
		return fmt.Errorf("%w: %w", errBadMessage, err)
	}

	return nil
}

func (that *Server) handleFind(ctx context.Context, sess *session, message *Message) error {
	var req FindRequest
	if len(message.Payload) > 0 {
		if err := decodePayload(message, &req); err != nil {
			return err
		}
	}

	matchID, err := that.finder.FindMatch(ctx, sess.presence.UserID, req.Fast, req.AI)
	if err != nil {
		return fmt.Errorf("failed to find match: %w", err)
	}

	sess.reply(actionFind, FindResponse{MatchIDs: []string{matchID}})

	return nil
}

func (that *Server) handleJoin(ctx context.Context, sess *session, message *Message) error {
	var req MatchRequest
	if err := decodePayload(message, &req); err != nil {
		return err
	}

	sess.track(req.MatchID)
	if err := that.matches.JoinMatch(ctx, req.MatchID, sess.presence); err != nil {
		sess.untrack(req.MatchID)
		return fmt.Errorf("failed to join match: %w", err)
	}

	sess.logger.Info("joined match", "matchID", req.MatchID)
	sess.reply(actionJoin, req)

	return nil
}

func (that *Server) handleLeave(ctx context.Context, sess *session, message *Message) error {
	var req MatchRequest
	if err := decodePayload(message, &req); err != nil {
		return err
	}

	sess.untrack(req.MatchID)
	if err := that.matches.LeaveMatch(ctx, req.MatchID, sess.presence); err != nil {
		return fmt.Errorf("failed to leave match: %w", err)
	}

	sess.reply(actionLeave, req)

	return nil
}

func (that *Server) handleData(ctx context.Context, sess *session, message *Message) error {
	var req MatchData
	if err := decodePayload(message, &req); err != nil {
		return err
	}

	err := that.matches.SendMatchData(ctx, req.MatchID, entity.MatchMessage{
		Sender: sess.presence,
		OpCode: entity.OpCode(req.OpCode),
		Data:   req.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to send match data: %w", err)
	}

	return nil
}
