package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/goblet-backend/internal/entity"
)

type matchDirectory interface {
	ListWaitingPublic() []entity.Summary
	ByID(id string) (*entity.Match, bool)
	ByJoinCode(code string) (*entity.Match, bool)
}

// Server exposes the read-only lobby surface: public waiting matches, a
// match summary by id and the join-code lookup. No game mutation happens
// here.
type Server struct {
	logger    *slog.Logger
	directory matchDirectory
}

func New(logger *slog.Logger, directory matchDirectory) *Server {
	return &Server{
		logger:    logger.With("component", "rest"),
		directory: directory,
	}
}

func (that *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.handlePing)
	mux.HandleFunc("GET /matches", that.handleListMatches)
	mux.HandleFunc("GET /matches/{id}", that.handleGetMatch)
	mux.HandleFunc("GET /matches/code/{code}", that.handleGetMatchByCode)

	return mux
}

func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
