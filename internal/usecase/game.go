package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/goblet-backend/internal/apperror"
	"github.com/rocketscienceinc/goblet-backend/internal/entity"
	"github.com/rocketscienceinc/goblet-backend/internal/repository"
)

const persistQueueSize = 256

type matchRegistry interface {
	ByID(id string) (*entity.Match, bool)
	ByConnection(connectionID string) (*entity.Match, bool)
	ByJoinCode(code string) (*entity.Match, bool)

	FindOrCreateForPlayer(connectionID string, preferred entity.Color, identity *entity.Identity) (*entity.Match, error)
	CreateExplicit(connectionID string, preferred entity.Color, identity *entity.Identity, public, wantsJoinCode bool, boardSize int) (*entity.Match, error)
	Insert(match *entity.Match) *entity.Match
}

type matchRepo interface {
	Save(ctx context.Context, snap *entity.Snapshot) error
	Load(ctx context.Context, id string) (*entity.Snapshot, error)
}

// GameUseCase drives every inbound command against the registry and the
// match aggregates, and hands successful snapshots to the persistence
// worker. The returned snapshot is what the transport broadcasts.
type GameUseCase struct {
	logger    *slog.Logger
	registry  matchRegistry
	matchRepo matchRepo

	persistCh chan *entity.Snapshot
}

func NewGameUseCase(logger *slog.Logger, registry matchRegistry, matchRepo matchRepo) *GameUseCase {
	return &GameUseCase{
		logger:    logger.With("component", "game_usecase"),
		registry:  registry,
		matchRepo: matchRepo,

		persistCh: make(chan *entity.Snapshot, persistQueueSize),
	}
}

// RunPersistence drains the persist queue until the context is canceled.
// Saves are best-effort: failures are logged and swallowed, the in-memory
// state stays authoritative and playable.
func (that *GameUseCase) RunPersistence(ctx context.Context) {
	log := that.logger.With("method", "RunPersistence")

	for {
		select {
		case snap := <-that.persistCh:
			if err := that.matchRepo.Save(ctx, snap); err != nil {
				log.Error("failed to persist snapshot", "match_id", snap.ID, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// enqueuePersist hands a snapshot to the worker without ever blocking the
// command path.
func (that *GameUseCase) enqueuePersist(snap *entity.Snapshot) {
	select {
	case that.persistCh <- snap:
	default:
		that.logger.Warn("persist queue full, dropping snapshot", "match_id", snap.ID)
	}
}

// CreateMatch opens a new match for the connection.
func (that *GameUseCase) CreateMatch(_ context.Context, connectionID string, preferred entity.Color, identity *entity.Identity, public, wantsJoinCode bool, boardSize int) (*entity.Snapshot, error) {
	match, err := that.registry.CreateExplicit(connectionID, preferred, identity, public, wantsJoinCode, boardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// JoinMatch seats the connection in a specific match.
func (that *GameUseCase) JoinMatch(ctx context.Context, connectionID, matchID string, preferred entity.Color, identity *entity.Identity) (*entity.Snapshot, error) {
	match, err := that.resolveMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if err = match.AddPlayer(connectionID, preferred, identity); err != nil {
		return nil, fmt.Errorf("failed to join match %s: %w", matchID, err)
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// JoinByCode seats the connection in the waiting match holding the code.
func (that *GameUseCase) JoinByCode(_ context.Context, connectionID, code string, preferred entity.Color, identity *entity.Identity) (*entity.Snapshot, error) {
	match, ok := that.registry.ByJoinCode(code)
	if !ok {
		return nil, apperror.ErrMatchNotFound
	}

	if err := match.AddPlayer(connectionID, preferred, identity); err != nil {
		return nil, fmt.Errorf("failed to join match by code: %w", err)
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// FindAndJoin is the matchmaking path: rejoin in place, else any waiting
// public match, else a fresh one.
func (that *GameUseCase) FindAndJoin(_ context.Context, connectionID string, preferred entity.Color, identity *entity.Identity) (*entity.Snapshot, error) {
	match, err := that.registry.FindOrCreateForPlayer(connectionID, preferred, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create match: %w", err)
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// RejoinMatch re-attaches a returning player to a remembered match,
// falling back to a persisted snapshot when the live instance is gone.
// Callers can tell "match not found" (discard the remembered id) from
// "not a participant" (keep it) by the returned error.
func (that *GameUseCase) RejoinMatch(ctx context.Context, connectionID, matchID, userID string, color entity.Color) (*entity.Snapshot, error) {
	match, err := that.resolveMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if _, err = match.ReassignConnection(userID, color, connectionID); err != nil {
		return nil, fmt.Errorf("failed to rejoin match %s: %w", matchID, err)
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// resolveMatch finds a match in memory, else reconstructs it from the
// persistence port and inserts it into the registry.
func (that *GameUseCase) resolveMatch(ctx context.Context, matchID string) (*entity.Match, error) {
	if match, ok := that.registry.ByID(matchID); ok {
		return match, nil
	}

	snap, err := that.matchRepo.Load(ctx, matchID)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		return nil, apperror.ErrMatchNotFound
	}
	if err != nil {
		that.logger.Error("failed to load snapshot", "match_id", matchID, "error", err)
		return nil, apperror.ErrMatchNotFound
	}

	match := that.registry.Insert(entity.RestoreMatch(snap))

	that.logger.Info("restored match from persistence", "match_id", matchID)

	return match, nil
}

// PlacePiece plays the top piece of a hand stack onto the board.
func (that *GameUseCase) PlacePiece(_ context.Context, connectionID string, stackIndex, row, col int) (*entity.Snapshot, error) {
	match, ok := that.registry.ByConnection(connectionID)
	if !ok {
		return nil, apperror.ErrMatchNotFound
	}

	if err := match.Place(connectionID, stackIndex, row, col); err != nil {
		return nil, fmt.Errorf("failed to place piece: %w", err)
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// MovePiece relocates a board piece.
func (that *GameUseCase) MovePiece(_ context.Context, connectionID string, fromRow, fromCol, toRow, toCol int) (*entity.Snapshot, error) {
	match, ok := that.registry.ByConnection(connectionID)
	if !ok {
		return nil, apperror.ErrMatchNotFound
	}

	if err := match.Move(connectionID, fromRow, fromCol, toRow, toCol); err != nil {
		return nil, fmt.Errorf("failed to move piece: %w", err)
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// ResetMatch starts a fresh board for the same players.
func (that *GameUseCase) ResetMatch(_ context.Context, connectionID string) (*entity.Snapshot, error) {
	match, ok := that.registry.ByConnection(connectionID)
	if !ok {
		return nil, apperror.ErrMatchNotFound
	}

	match.Reset()

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, nil
}

// Heartbeat refreshes the player's liveness so idle reclamation keeps its
// match alive during a live session. No reply required.
func (that *GameUseCase) Heartbeat(connectionID string) {
	match, ok := that.registry.ByConnection(connectionID)
	if !ok {
		return
	}

	match.SetConnected(connectionID, true)
}

// Disconnect marks the player disconnected but keeps the roster slot, so a
// reconnect within the idle grace period finds the game intact. Returns
// the snapshot so the transport can notify the remaining player.
func (that *GameUseCase) Disconnect(connectionID string) (*entity.Snapshot, bool) {
	match, ok := that.registry.ByConnection(connectionID)
	if !ok {
		return nil, false
	}

	if !match.SetConnected(connectionID, false) {
		return nil, false
	}

	snap := match.Snapshot()
	that.enqueuePersist(snap)

	return snap, true
}
