package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/goblet-backend/internal/entity"
	"github.com/rocketscienceinc/goblet-backend/internal/repository"
	"github.com/rocketscienceinc/goblet-backend/testing/suite"
)

func waitingSnapshot(t *testing.T, id string, public bool) *entity.Snapshot {
	t.Helper()

	match := entity.NewMatch(id, entity.DefaultBoardSize, public)
	require.NoError(t, match.AddPlayer("conn-1", entity.ColorGold, nil))

	return match.Snapshot()
}

func TestMatchRepository_SaveAndLoad(t *testing.T) {
	ctx, s := suite.New(t)

	repo := repository.NewMatchRepository(s.Storage)

	t.Run("Saved snapshot loads back intact", func(t *testing.T) {
		// Given: a snapshot of a game in progress
		match := entity.NewMatch("match-1", entity.DefaultBoardSize, true)
		require.NoError(t, match.AddPlayer("conn-1", entity.ColorGold, &entity.Identity{UserID: "user-1"}))
		require.NoError(t, match.AddPlayer("conn-2", entity.ColorSilver, nil))
		require.NoError(t, match.Place("conn-1", 0, 1, 2))
		snap := match.Snapshot()

		// When: the snapshot is saved and loaded back
		require.NoError(t, repo.Save(ctx, snap))

		loaded, err := repo.Load(ctx, "match-1")

		// Then: the position survives the round trip
		require.NoError(t, err)
		assert.Equal(t, snap.ID, loaded.ID)
		assert.Equal(t, snap.Board, loaded.Board)
		assert.Equal(t, snap.Hands, loaded.Hands)
		assert.Equal(t, snap.Turn, loaded.Turn)
		assert.Equal(t, snap.Status, loaded.Status)
		require.Len(t, loaded.Players, 2)
		assert.Equal(t, "user-1", loaded.Players[0].UserID)
	})

	t.Run("Saving again overwrites the previous snapshot", func(t *testing.T) {
		// Given: a saved waiting snapshot
		snap := waitingSnapshot(t, "match-2", true)
		require.NoError(t, repo.Save(ctx, snap))

		// When: the match progresses and is saved again
		snap.Status = entity.StatusPlaying
		require.NoError(t, repo.Save(ctx, snap))

		loaded, err := repo.Load(ctx, "match-2")

		// Then: the latest state wins
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPlaying, loaded.Status)
	})

	t.Run("Loading a missing match reports not found", func(t *testing.T) {
		_, err := repo.Load(ctx, "no-such-match")

		require.ErrorIs(t, err, repository.ErrSnapshotNotFound)
	})
}

func TestMatchRepository_DeleteByID(t *testing.T) {
	ctx, s := suite.New(t)

	repo := repository.NewMatchRepository(s.Storage)

	// Given: a saved waiting snapshot
	snap := waitingSnapshot(t, "match-1", true)
	require.NoError(t, repo.Save(ctx, snap))

	// When: the match is deleted
	require.NoError(t, repo.DeleteByID(ctx, "match-1"))

	// Then: it is gone from both the store and the lobby index
	_, err := repo.Load(ctx, "match-1")
	require.ErrorIs(t, err, repository.ErrSnapshotNotFound)

	summaries, err := repo.ListWaitingPublic(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestMatchRepository_ListWaitingPublic(t *testing.T) {
	ctx, s := suite.New(t)

	repo := repository.NewMatchRepository(s.Storage)

	t.Run("Only waiting public matches are listed", func(t *testing.T) {
		// Given: a waiting public match, a private one, and a playing one
		require.NoError(t, repo.Save(ctx, waitingSnapshot(t, "match-public", true)))
		require.NoError(t, repo.Save(ctx, waitingSnapshot(t, "match-private", false)))

		playing := waitingSnapshot(t, "match-playing", true)
		playing.Status = entity.StatusPlaying
		require.NoError(t, repo.Save(ctx, playing))

		// When: listing the lobby
		summaries, err := repo.ListWaitingPublic(ctx)

		// Then: only the joinable public match shows up
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "match-public", summaries[0].ID)
		assert.Equal(t, 1, summaries[0].PlayerCount)
	})

	t.Run("A started match drops out of the listing", func(t *testing.T) {
		// Given: the public match from above starts playing
		started := waitingSnapshot(t, "match-public", true)
		started.Status = entity.StatusPlaying
		require.NoError(t, repo.Save(ctx, started))

		// When: listing the lobby again
		summaries, err := repo.ListWaitingPublic(ctx)

		// Then: nothing is waiting anymore
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})
}
