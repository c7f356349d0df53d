package websocket

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/goblet-backend/internal/apperror"
)

const (
	reasonNotFound       = "not_found"
	reasonNotParticipant = "not_participant"
	reasonServerBusy     = "server_busy"
)

// reasonFor classifies an error for the client: reconnection failures and
// backpressure need a distinct reason so the client reacts differently
// from a plain rule rejection.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, apperror.ErrMatchNotFound):
		return reasonNotFound
	case errors.Is(err, apperror.ErrNotParticipant):
		return reasonNotParticipant
	case errors.Is(err, apperror.ErrServerBusy):
		return reasonServerBusy
	default:
		return ""
	}
}

func (that *Server) handleMatchCreate(ctx context.Context, connectionID string, payload *Payload) error {
	log := that.logger.With("method", "handleMatchCreate", "connection_id", connectionID)

	snap, err := that.gameCase.CreateMatch(ctx, connectionID, payload.Color, payload.identity(), payload.Public, payload.WantsCode, payload.BoardSize)
	if err != nil {
		log.Error("failed to create match", "error", err)
		return that.sendErrorResponse(connectionID, actionMatchCreate, "failed to create match", reasonFor(err))
	}

	log.Info("match created", "match_id", snap.ID)

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleMatchJoin(ctx context.Context, connectionID string, payload *Payload) error {
	log := that.logger.With("method", "handleMatchJoin", "connection_id", connectionID)

	if payload.MatchID == "" {
		return that.sendErrorResponse(connectionID, actionMatchJoin, "match_id is required", "")
	}

	snap, err := that.gameCase.JoinMatch(ctx, connectionID, payload.MatchID, payload.Color, payload.identity())
	if err != nil {
		log.Error("failed to join match", "match_id", payload.MatchID, "error", err)
		return that.sendErrorResponse(connectionID, actionMatchJoin, "failed to join match", reasonFor(err))
	}

	log.Info("player joined match", "match_id", snap.ID)

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleMatchCode(ctx context.Context, connectionID string, payload *Payload) error {
	log := that.logger.With("method", "handleMatchCode", "connection_id", connectionID)

	if payload.Code == "" {
		return that.sendErrorResponse(connectionID, actionMatchCode, "code is required", "")
	}

	snap, err := that.gameCase.JoinByCode(ctx, connectionID, payload.Code, payload.Color, payload.identity())
	if err != nil {
		log.Error("failed to join match by code", "error", err)
		return that.sendErrorResponse(connectionID, actionMatchCode, "failed to join match by code", reasonFor(err))
	}

	log.Info("player joined match by code", "match_id", snap.ID)

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleMatchFind(ctx context.Context, connectionID string, payload *Payload) error {
	log := that.logger.With("method", "handleMatchFind", "connection_id", connectionID)

	snap, err := that.gameCase.FindAndJoin(ctx, connectionID, payload.Color, payload.identity())
	if err != nil {
		log.Error("failed to find match", "error", err)
		return that.sendErrorResponse(connectionID, actionMatchFind, "failed to find match", reasonFor(err))
	}

	log.Info("player matched", "match_id", snap.ID)

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleMatchRejoin(ctx context.Context, connectionID string, payload *Payload) error {
	log := that.logger.With("method", "handleMatchRejoin", "connection_id", connectionID)

	if payload.MatchID == "" {
		return that.sendErrorResponse(connectionID, actionMatchRejoin, "match_id is required", "")
	}

	snap, err := that.gameCase.RejoinMatch(ctx, connectionID, payload.MatchID, payload.UserID, payload.Color)
	if err != nil {
		log.Error("failed to rejoin match", "match_id", payload.MatchID, "error", err)
		return that.sendErrorResponse(connectionID, actionMatchRejoin, "failed to rejoin match", reasonFor(err))
	}

	log.Info("player rejoined match", "match_id", snap.ID)

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleMatchPlace(ctx context.Context, connectionID string, payload *Payload) error {
	log := that.logger.With("method", "handleMatchPlace", "connection_id", connectionID)

	if payload.StackIndex == nil || payload.Row == nil || payload.Col == nil {
		return that.sendErrorResponse(connectionID, actionMatchPlace, "stack_index, row and col are required", "")
	}

	snap, err := that.gameCase.PlacePiece(ctx, connectionID, *payload.StackIndex, *payload.Row, *payload.Col)
	if err != nil {
		log.Info("place rejected", "error", err)
		return that.sendErrorResponse(connectionID, actionMatchPlace, err.Error(), reasonFor(err))
	}

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleMatchMove(ctx context.Context, connectionID string, payload *Payload) error {
	log := that.logger.With("method", "handleMatchMove", "connection_id", connectionID)

	if payload.FromRow == nil || payload.FromCol == nil || payload.ToRow == nil || payload.ToCol == nil {
		return that.sendErrorResponse(connectionID, actionMatchMove, "from and to coordinates are required", "")
	}

	snap, err := that.gameCase.MovePiece(ctx, connectionID, *payload.FromRow, *payload.FromCol, *payload.ToRow, *payload.ToCol)
	if err != nil {
		log.Info("move rejected", "error", err)
		return that.sendErrorResponse(connectionID, actionMatchMove, err.Error(), reasonFor(err))
	}

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleMatchReset(ctx context.Context, connectionID string, _ *Payload) error {
	log := that.logger.With("method", "handleMatchReset", "connection_id", connectionID)

	snap, err := that.gameCase.ResetMatch(ctx, connectionID)
	if err != nil {
		log.Error("failed to reset match", "error", err)
		return that.sendErrorResponse(connectionID, actionMatchReset, "failed to reset match", reasonFor(err))
	}

	log.Info("match reset", "match_id", snap.ID)

	that.broadcastState(snap)

	return nil
}

func (that *Server) handleHeartbeat(_ context.Context, connectionID string, _ *Payload) error {
	that.gameCase.Heartbeat(connectionID)
	return nil
}
