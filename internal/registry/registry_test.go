package registry

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/goblet-backend/internal/apperror"
	"github.com/rocketscienceinc/goblet-backend/internal/entity"
)

func newTestRegistry(t *testing.T, capacity int) *Registry {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := New(logger, capacity, time.Hour)
	t.Cleanup(reg.Stop)

	return reg
}

func disconnectAll(match *entity.Match, lastSeen time.Time) {
	for _, player := range match.Players {
		match.SetConnected(player.ConnectionID, false)
		player.LastSeenAt = lastSeen
	}
}

func TestRegistry_FindOrCreateForPlayer(t *testing.T) {
	t.Run("First player opens a fresh public match", func(t *testing.T) {
		// Given: an empty registry
		reg := newTestRegistry(t, 10)

		// When: a player asks for a game
		match, err := reg.FindOrCreateForPlayer("conn-1", entity.ColorGold, nil)

		// Then: a public waiting match is created with the player seated
		require.NoError(t, err)
		assert.True(t, match.Public)
		assert.Equal(t, entity.StatusWaiting, match.CurrentStatus())
		assert.True(t, match.HasConnection("conn-1"))
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("Second player is seated into the waiting match", func(t *testing.T) {
		// Given: one player is waiting
		reg := newTestRegistry(t, 10)
		first, err := reg.FindOrCreateForPlayer("conn-1", entity.ColorGold, nil)
		require.NoError(t, err)

		// When: another player asks for a game
		second, err := reg.FindOrCreateForPlayer("conn-2", "", nil)

		// Then: both ended up in the same match and it started
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, entity.StatusPlaying, second.CurrentStatus())
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("A player already in a match is returned to it", func(t *testing.T) {
		// Given: a seated player
		reg := newTestRegistry(t, 10)
		first, err := reg.FindOrCreateForPlayer("conn-1", entity.ColorGold, nil)
		require.NoError(t, err)

		// When: the same connection asks again
		again, err := reg.FindOrCreateForPlayer("conn-1", entity.ColorSilver, nil)

		// Then: no new match is created
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("Private matches are invisible to matchmaking", func(t *testing.T) {
		// Given: a private waiting match
		reg := newTestRegistry(t, 10)
		private, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, false, false, entity.DefaultBoardSize)
		require.NoError(t, err)

		// When: a stranger asks for a game
		match, err := reg.FindOrCreateForPlayer("conn-2", "", nil)

		// Then: the stranger got a new match, not the private one
		require.NoError(t, err)
		assert.NotEqual(t, private.ID, match.ID)
		assert.Equal(t, 2, reg.Len())
	})
}

func TestRegistry_JoinCodes(t *testing.T) {
	t.Run("Explicit creation hands out a 3-digit code", func(t *testing.T) {
		// Given: an empty registry
		reg := newTestRegistry(t, 10)

		// When: a player creates a private match with a join code
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, false, true, entity.DefaultBoardSize)

		// Then: the code resolves back to the match
		require.NoError(t, err)
		require.Len(t, match.JoinCode, 3)

		found, ok := reg.ByJoinCode(match.JoinCode)
		require.True(t, ok)
		assert.Equal(t, match.ID, found.ID)
	})

	t.Run("Codes stop resolving once the match started", func(t *testing.T) {
		// Given: a coded match that filled up
		reg := newTestRegistry(t, 10)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, false, true, entity.DefaultBoardSize)
		require.NoError(t, err)
		require.NoError(t, match.AddPlayer("conn-2", "", nil))

		// When: someone tries the code afterwards
		_, ok := reg.ByJoinCode(match.JoinCode)

		// Then: the code is no longer claimable
		assert.False(t, ok)
	})

	t.Run("Matchmaking never creates a coded match", func(t *testing.T) {
		reg := newTestRegistry(t, 10)

		match, err := reg.FindOrCreateForPlayer("conn-1", "", nil)

		require.NoError(t, err)
		assert.Empty(t, match.JoinCode)
	})
}

func TestRegistry_Capacity(t *testing.T) {
	t.Run("Stalest finished match is evicted at the ceiling", func(t *testing.T) {
		// Given: a registry at capacity, holding one finished match
		reg := newTestRegistry(t, 1)
		finished, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)
		finished.Status = entity.StatusFinished

		// When: another player creates a match
		fresh, err := reg.CreateExplicit("conn-2", "", nil, true, false, entity.DefaultBoardSize)

		// Then: the finished match made room for the new one
		require.NoError(t, err)
		assert.Equal(t, 1, reg.Len())
		_, ok := reg.ByID(finished.ID)
		assert.False(t, ok)
		_, ok = reg.ByID(fresh.ID)
		assert.True(t, ok)
	})

	t.Run("Creation is refused when nothing can be evicted", func(t *testing.T) {
		// Given: a full registry with only an unfinished match
		reg := newTestRegistry(t, 1)
		_, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)

		// When: another player creates a match
		_, err = reg.CreateExplicit("conn-2", "", nil, true, false, entity.DefaultBoardSize)

		// Then: the registry signals overload instead of dropping live games
		require.ErrorIs(t, err, apperror.ErrServerBusy)
		assert.Equal(t, 1, reg.Len())
	})
}

func TestRegistry_Cleanup(t *testing.T) {
	t.Run("Abandoned lobbies are reclaimed fast", func(t *testing.T) {
		// Given: a waiting match whose player left 11 seconds ago
		reg := newTestRegistry(t, 10)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)
		disconnectAll(match, time.Now().Add(-11*time.Second))

		// When: the sweep runs
		reg.Cleanup()

		// Then: the lobby is gone
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("Active games survive a short disconnect", func(t *testing.T) {
		// Given: a playing match with both players gone for 30 seconds
		reg := newTestRegistry(t, 10)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)
		require.NoError(t, match.AddPlayer("conn-2", "", nil))
		disconnectAll(match, time.Now().Add(-30*time.Second))

		// When: the sweep runs
		reg.Cleanup()

		// Then: the match is kept for the players to reconnect into
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("Long-abandoned games are reclaimed", func(t *testing.T) {
		// Given: a playing match with both players gone past the threshold
		reg := newTestRegistry(t, 10)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)
		require.NoError(t, match.AddPlayer("conn-2", "", nil))
		disconnectAll(match, time.Now().Add(-6*time.Minute))

		reg.Cleanup()

		assert.Equal(t, 0, reg.Len())
	})

	t.Run("Finished games linger a minute then go", func(t *testing.T) {
		reg := newTestRegistry(t, 10)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)
		require.NoError(t, match.AddPlayer("conn-2", "", nil))
		match.Status = entity.StatusFinished

		disconnectAll(match, time.Now().Add(-30*time.Second))
		reg.Cleanup()
		assert.Equal(t, 1, reg.Len())

		disconnectAll(match, time.Now().Add(-2*time.Minute))
		reg.Cleanup()
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("Connected players pin the match regardless of age", func(t *testing.T) {
		// Given: an old waiting match with its player still connected
		reg := newTestRegistry(t, 10)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)
		match.Players[0].LastSeenAt = time.Now().Add(-time.Hour)

		reg.Cleanup()

		assert.Equal(t, 1, reg.Len())
	})
}

func TestRegistry_Insert(t *testing.T) {
	t.Run("Restored match is tracked", func(t *testing.T) {
		reg := newTestRegistry(t, 10)
		match := entity.NewMatch("match-1", entity.DefaultBoardSize, true)

		got := reg.Insert(match)

		assert.Same(t, match, got)
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("Already-tracked instance wins the race", func(t *testing.T) {
		// Given: a match already in the directory
		reg := newTestRegistry(t, 10)
		original := entity.NewMatch("match-1", entity.DefaultBoardSize, true)
		reg.Insert(original)

		// When: a concurrent restore inserts a second copy of the same id
		duplicate := entity.NewMatch("match-1", entity.DefaultBoardSize, true)
		got := reg.Insert(duplicate)

		// Then: the first instance stays authoritative
		assert.Same(t, original, got)
		assert.Equal(t, 1, reg.Len())
	})
}

func TestRegistry_ListWaitingPublic(t *testing.T) {
	// Given: a waiting public match, a private one, and a playing one
	reg := newTestRegistry(t, 10)

	waiting, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
	require.NoError(t, err)

	_, err = reg.CreateExplicit("conn-2", "", nil, false, false, entity.DefaultBoardSize)
	require.NoError(t, err)

	playing, err := reg.CreateExplicit("conn-3", "", nil, true, false, entity.DefaultBoardSize)
	require.NoError(t, err)
	require.NoError(t, playing.AddPlayer("conn-4", "", nil))

	// When: listing the lobby
	summaries := reg.ListWaitingPublic()

	// Then: only the joinable public match shows up
	require.Len(t, summaries, 1)
	assert.Equal(t, waiting.ID, summaries[0].ID)
}

func TestRegistry_Remove(t *testing.T) {
	reg := newTestRegistry(t, 10)
	match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
	require.NoError(t, err)

	reg.Remove(match.ID)

	_, ok := reg.ByID(match.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}
