package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/goblet-backend/internal/entity"
)

// ErrSnapshotNotFound signals that no snapshot exists for the id; callers
// translate it into a reconnection "not found" rejection.
var ErrSnapshotNotFound = errors.New("match snapshot not found")

const (
	matchKeyPrefix = "match:"
	waitingSetKey  = "matches:waiting"
)

// MatchRepository is the persistence port. Writes are best-effort: the
// in-memory match is the authority and a failed save must never affect a
// running game.
type MatchRepository interface {
	Save(ctx context.Context, snap *entity.Snapshot) error
	Load(ctx context.Context, id string) (*entity.Snapshot, error)
	DeleteByID(ctx context.Context, id string) error
	ListWaitingPublic(ctx context.Context) ([]entity.Summary, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

// Save upserts the snapshot by match id and keeps the waiting-set index in
// step so the lobby listing stays cheap.
func (that *dbMatch) Save(ctx context.Context, snap *entity.Snapshot) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("could not marshal snapshot: %w", err)
	}

	matchKey := matchKeyPrefix + snap.ID
	if err = that.client.Set(ctx, matchKey, snapJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}

	if snap.Public && snap.Status == entity.StatusWaiting {
		if err = that.client.SAdd(ctx, waitingSetKey, snap.ID).Err(); err != nil {
			return fmt.Errorf("failed to index waiting match: %w", err)
		}
	} else if err = that.client.SRem(ctx, waitingSetKey, snap.ID).Err(); err != nil {
		return fmt.Errorf("failed to unindex waiting match: %w", err)
	}

	return nil
}

func (that *dbMatch) Load(ctx context.Context, id string) (*entity.Snapshot, error) {
	matchKey := matchKeyPrefix + id

	response, err := that.client.Get(ctx, matchKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap entity.Snapshot
	if err = json.Unmarshal([]byte(response), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

func (that *dbMatch) DeleteByID(ctx context.Context, id string) error {
	if err := that.client.Del(ctx, matchKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	if err := that.client.SRem(ctx, waitingSetKey, id).Err(); err != nil {
		return fmt.Errorf("failed to unindex waiting match: %w", err)
	}

	return nil
}

// ListWaitingPublic resolves the waiting-set index into lobby summaries.
// Stale index entries are skipped and pruned.
func (that *dbMatch) ListWaitingPublic(ctx context.Context) ([]entity.Summary, error) {
	ids, err := that.client.SMembers(ctx, waitingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read waiting set: %w", err)
	}

	summaries := make([]entity.Summary, 0, len(ids))

	for _, id := range ids {
		snap, err := that.Load(ctx, id)
		if errors.Is(err, ErrSnapshotNotFound) {
			_ = that.client.SRem(ctx, waitingSetKey, id).Err()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load waiting match %s: %w", id, err)
		}

		summaries = append(summaries, entity.Summary{
			ID:          snap.ID,
			Status:      snap.Status,
			Public:      snap.Public,
			JoinCode:    snap.JoinCode,
			BoardSize:   snap.BoardSize,
			PlayerCount: len(snap.Players),
			CreatedAt:   snap.CreatedAt,
		})
	}

	return summaries, nil
}
