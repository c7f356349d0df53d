package rest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/goblet-backend/internal/entity"
	"github.com/rocketscienceinc/goblet-backend/internal/registry"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.New(logger, 100, time.Hour)
	t.Cleanup(reg.Stop)

	return New(logger, reg), reg
}

func doGet(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	server.routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))

	return recorder
}

func TestServer_Ping(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doGet(t, server, "/ping")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "pong", resp.Body.String())
}

func TestServer_ListMatches(t *testing.T) {
	t.Run("Empty lobby returns an empty list", func(t *testing.T) {
		server, _ := newTestServer(t)

		resp := doGet(t, server, "/matches")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, "[]", resp.Body.String())
	})

	t.Run("Waiting public matches show up with player counts", func(t *testing.T) {
		// Given: one waiting public match and one private match
		server, reg := newTestServer(t)

		waiting, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)

		_, err = reg.CreateExplicit("conn-2", "", nil, false, false, entity.DefaultBoardSize)
		require.NoError(t, err)

		// When: listing the lobby
		resp := doGet(t, server, "/matches")

		// Then: only the public match is listed
		require.Equal(t, http.StatusOK, resp.Code)

		var summaries []entity.Summary
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summaries))
		require.Len(t, summaries, 1)
		assert.Equal(t, waiting.ID, summaries[0].ID)
		assert.Equal(t, 1, summaries[0].PlayerCount)
	})
}

func TestServer_GetMatch(t *testing.T) {
	t.Run("Known match returns its summary", func(t *testing.T) {
		server, reg := newTestServer(t)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, true, false, entity.DefaultBoardSize)
		require.NoError(t, err)

		resp := doGet(t, server, "/matches/"+match.ID)

		require.Equal(t, http.StatusOK, resp.Code)

		var summary entity.Summary
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
		assert.Equal(t, match.ID, summary.ID)
		assert.Equal(t, entity.StatusWaiting, summary.Status)
	})

	t.Run("Unknown match returns 404", func(t *testing.T) {
		server, _ := newTestServer(t)

		resp := doGet(t, server, "/matches/no-such-match")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestServer_GetMatchByCode(t *testing.T) {
	t.Run("Join code resolves to the waiting match", func(t *testing.T) {
		server, reg := newTestServer(t)
		match, err := reg.CreateExplicit("conn-1", entity.ColorGold, nil, false, true, entity.DefaultBoardSize)
		require.NoError(t, err)

		resp := doGet(t, server, "/matches/code/"+match.JoinCode)

		require.Equal(t, http.StatusOK, resp.Code)

		var summary entity.Summary
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
		assert.Equal(t, match.ID, summary.ID)
	})

	t.Run("Unknown code returns 404", func(t *testing.T) {
		server, _ := newTestServer(t)

		resp := doGet(t, server, "/matches/code/999")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
