package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/goblet-backend/internal/entity"
	"github.com/rocketscienceinc/goblet-backend/internal/pkg"
)

const (
	actionConnect    = "connect"
	actionMatchState = "match:state"

	actionMatchCreate = "match:create"
	actionMatchJoin   = "match:join"
	actionMatchCode   = "match:code"
	actionMatchFind   = "match:find"
	actionMatchRejoin = "match:rejoin"
	actionMatchPlace  = "match:place"
	actionMatchMove   = "match:move"
	actionMatchReset  = "match:reset"
	actionHeartbeat   = "heartbeat"
)

type gameUseCase interface {
	CreateMatch(ctx context.Context, connectionID string, preferred entity.Color, identity *entity.Identity, public, wantsJoinCode bool, boardSize int) (*entity.Snapshot, error)
	JoinMatch(ctx context.Context, connectionID, matchID string, preferred entity.Color, identity *entity.Identity) (*entity.Snapshot, error)
	JoinByCode(ctx context.Context, connectionID, code string, preferred entity.Color, identity *entity.Identity) (*entity.Snapshot, error)
	FindAndJoin(ctx context.Context, connectionID string, preferred entity.Color, identity *entity.Identity) (*entity.Snapshot, error)
	RejoinMatch(ctx context.Context, connectionID, matchID, userID string, color entity.Color) (*entity.Snapshot, error)

	PlacePiece(ctx context.Context, connectionID string, stackIndex, row, col int) (*entity.Snapshot, error)
	MovePiece(ctx context.Context, connectionID string, fromRow, fromCol, toRow, toCol int) (*entity.Snapshot, error)
	ResetMatch(ctx context.Context, connectionID string) (*entity.Snapshot, error)

	Heartbeat(connectionID string)
	Disconnect(connectionID string) (*entity.Snapshot, bool)
}

// connection wraps a websocket connection with a write lock, since command
// responses and broadcasts may target it from different goroutines.
type connection struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (that *connection) writeJSON(v any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

type Server struct {
	logger   *slog.Logger
	gameCase gameUseCase
	upgrader websocket.Upgrader

	connectionsMutex sync.RWMutex
	connections      map[string]*connection

	handlers map[string]func(ctx context.Context, connectionID string, payload *Payload) error
}

func New(logger *slog.Logger, gameCase gameUseCase) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		gameCase: gameCase,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		connections: make(map[string]*connection),
		handlers:    make(map[string]func(context.Context, string, *Payload) error),
	}

	server.handlers[actionMatchCreate] = server.handleMatchCreate
	server.handlers[actionMatchJoin] = server.handleMatchJoin
	server.handlers[actionMatchCode] = server.handleMatchCode
	server.handlers[actionMatchFind] = server.handleMatchFind
	server.handlers[actionMatchRejoin] = server.handleMatchRejoin
	server.handlers[actionMatchPlace] = server.handleMatchPlace
	server.handlers[actionMatchMove] = server.handleMatchMove
	server.handlers[actionMatchReset] = server.handleMatchReset
	server.handlers[actionHeartbeat] = server.handleHeartbeat

	return server
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 0, // connections are long-lived; liveness is app-level heartbeats
		IdleTimeout: 30 * time.Second,
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

// serveConnection upgrades the request, assigns a fresh connection id and
// pumps messages until the peer goes away.
func (that *Server) serveConnection(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveConnection")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connectionID := pkg.GenerateNewSessionID()
	conn := &connection{ws: ws}

	that.connectionsMutex.Lock()
	that.connections[connectionID] = conn
	that.connectionsMutex.Unlock()

	log.Info("WebSocket connection established", "connection_id", connectionID)

	if err = that.sendMessage(conn, actionConnect, Payload{ConnectionID: connectionID}); err != nil {
		log.Error("failed to send connect message", "error", err)
	}

	defer func() {
		_ = ws.Close()
		that.dropConnection(connectionID)
	}()

	that.handleMessages(ctx, connectionID, ws)
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, connectionID string, ws *websocket.Conn) {
	log := that.logger.With("method", "handleMessages", "connection_id", connectionID)

	for {
		_, reqBody, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		var payload Payload
		if len(message.Payload) > 0 {
			if err = json.Unmarshal(message.Payload, &payload); err != nil {
				log.Error("failed to unmarshal payload", "action", message.Action, "error", err)
				continue
			}
		}

		if err = handler(ctx, connectionID, &payload); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// dropConnection unregisters the transport session and marks the player
// disconnected in its match, which starts the idle-reclamation clock. The
// remaining player gets a state update so the UI can show the absence.
func (that *Server) dropConnection(connectionID string) {
	log := that.logger.With("method", "dropConnection")

	that.connectionsMutex.Lock()
	delete(that.connections, connectionID)
	that.connectionsMutex.Unlock()

	log.Info("player disconnected", "connection_id", connectionID)

	snap, ok := that.gameCase.Disconnect(connectionID)
	if !ok {
		return
	}

	that.broadcastState(snap)
}

// broadcastState fans the full snapshot out to every participant that still
// has a live transport session.
func (that *Server) broadcastState(snap *entity.Snapshot) {
	log := that.logger.With("method", "broadcastState", "match_id", snap.ID)

	for _, player := range snap.Players {
		that.connectionsMutex.RLock()
		conn, ok := that.connections[player.ConnectionID]
		that.connectionsMutex.RUnlock()

		if !ok {
			continue
		}

		if err := that.sendMessage(conn, actionMatchState, Payload{Match: snap}); err != nil {
			log.Error("failed to send state update", "connection_id", player.ConnectionID, "error", err)
		}
	}
}

func (that *Server) sendMessage(conn *connection, action string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return conn.writeJSON(Message{
		Action:  action,
		Payload: body,
	})
}

// sendToConnection addresses a single participant by id.
func (that *Server) sendToConnection(connectionID, action string, payload Payload) error {
	that.connectionsMutex.RLock()
	conn, ok := that.connections[connectionID]
	that.connectionsMutex.RUnlock()

	if !ok {
		return fmt.Errorf("connection %s not found", connectionID)
	}

	return that.sendMessage(conn, action, payload)
}

func (that *Server) sendErrorResponse(connectionID, action, errorMsg, reason string) error {
	payload := Payload{Error: errorMsg, Reason: reason}
	if err := that.sendToConnection(connectionID, action, payload); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
