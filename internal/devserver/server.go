// Package devserver is a self-contained backend implementing the REST
// and websocket contract the client speaks, for local development and
// end-to-end tests. It arbitrates tic-tac-toe itself and relays chess
// frames, trusting the clients' rule engine.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"

	_ "github.com/glebarez/go-sqlite"
)

var tracer = otel.Tracer("devserver")

// response is the uniform REST envelope.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func successResponse(c *gin.Context, status int, message string, data any) {
	c.JSON(status, response{Success: true, Message: message, Data: data})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, response{Success: false, Message: message})
}

// Server holds the room manager, the player registry and the HTTP
// engine. One Server instance backs one process.
type Server struct {
	engine   *gin.Engine
	rooms    *roomManager
	db       *sqlx.DB
	upgrader websocket.Upgrader
	baseCtx  context.Context
}

const playerSchema = `
CREATE TABLE IF NOT EXISTS players (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// New builds a ready-to-serve Server. dbPath may be ":memory:" for a
// registry that lives only as long as the process.
func New(dbPath string) (*Server, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open player registry: %w", err)
	}
	// A single connection keeps an in-memory registry coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(playerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create player schema: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: gin.New(),
		rooms:  newRoomManager(),
		db:     db,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		baseCtx: context.Background(),
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.engine.POST("/create/user", s.createUser)
	s.engine.POST("/room/create", s.createRoom)
	s.engine.POST("/room/join", s.joinRoom)
	s.engine.GET("/game/state/:roomId", s.gameState)
	s.engine.GET("/ws", s.handleWebSocket)
}

// Engine exposes the router, mainly so tests can mount it on httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) createUser(c *gin.Context) {
	var req struct {
		PlayerID string `json:"player_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request")
		return
	}

	if _, err := s.db.ExecContext(c.Request.Context(),
		"INSERT INTO players (id) VALUES (?)", req.PlayerID); err != nil {
		errorResponse(c, http.StatusBadRequest, "player already registered")
		return
	}

	successResponse(c, http.StatusCreated, "Success registering player", gin.H{"player_id": req.PlayerID})
}

// playerExists consults the registry; rooms only admit registered ids.
func (s *Server) playerExists(ctx context.Context, playerID string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM players WHERE id = ?", playerID); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Server) createRoom(c *gin.Context) {
	var req struct {
		GameType string `json:"game_type"`
		PlayerID string `json:"player_id"`
		VsBot    bool   `json:"vs_bot"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.GameType == "" {
		errorResponse(c, http.StatusBadRequest, "RoomID and GameType are required")
		return
	}

	ok, err := s.playerExists(c.Request.Context(), req.PlayerID)
	if err != nil || !ok {
		errorResponse(c, http.StatusNotFound, "Player not found")
		return
	}

	r, err := s.rooms.create(req.GameType, req.VsBot)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	_, mark, err := s.rooms.join(r.id, req.GameType, req.PlayerID)
	if err != nil {
		errorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	s.respondWithRoom(c, http.StatusCreated, "Room created successfully", r, req.PlayerID, mark)
}

func (s *Server) joinRoom(c *gin.Context) {
	var req struct {
		RoomID   string `json:"room_id"`
		PlayerID string `json:"player_id"`
		GameType string `json:"game_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request")
		return
	}

	ok, err := s.playerExists(c.Request.Context(), req.PlayerID)
	if err != nil || !ok {
		errorResponse(c, http.StatusNotFound, "Player not found")
		return
	}

	r, mark, err := s.rooms.join(req.RoomID, req.GameType, req.PlayerID)
	if err != nil {
		switch {
		case errors.Is(err, errRoomNotFound):
			errorResponse(c, http.StatusNotFound, err.Error())
		case errors.Is(err, errGameTypeMatch):
			errorResponse(c, http.StatusBadRequest, err.Error())
		default:
			errorResponse(c, http.StatusNotFound, err.Error())
		}
		return
	}

	s.respondWithRoom(c, http.StatusOK, "Player joined room successfully", r, req.PlayerID, mark)
}

func (s *Server) respondWithRoom(c *gin.Context, status int, message string, r *room, playerID, mark string) {
	view, err := r.view()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, status, message, gin.H{
		"player_id":   playerID,
		"player_mark": mark,
		"room":        view,
	})
}

func (s *Server) gameState(c *gin.Context) {
	r, err := s.rooms.get(c.Param("roomId"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, "Room not found")
		return
	}
	view, err := r.view()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, http.StatusOK, "ok", view.GameState)
}

// handleWebSocket upgrades the connection and runs the player's read
// loop. The player must already be a room member via the REST flow.
func (s *Server) handleWebSocket(c *gin.Context) {
	roomID := c.Query("room_id")
	playerID := c.Query("player_id")
	if roomID == "" || playerID == "" {
		errorResponse(c, http.StatusBadRequest, "room_id and player_id are required")
		return
	}

	r, err := s.rooms.get(roomID)
	if err != nil {
		errorResponse(c, http.StatusNotFound, "Room not found")
		return
	}
	r.mu.Lock()
	_, member := r.players[playerID]
	r.mu.Unlock()
	if !member {
		errorResponse(c, http.StatusNotFound, "Player not found")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	p := s.attach(r, playerID, conn)
	s.readLoop(r, p)
}
