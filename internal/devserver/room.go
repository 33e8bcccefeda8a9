package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"minigame/client/pkg/proto"
)

// startFEN is the chess starting position.
const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Supported game types.
const (
	GameTicTacToe = "tictactoe"
	GameChess     = "chess"
)

// botPlayerID is the synthetic opponent in single-player rooms.
const botPlayerID = "bot"

var (
	errRoomNotFound  = errors.New("Room not found")
	errRoomFull      = errors.New("room is full")
	errGameTypeMatch = errors.New("Game type not match")
	errBadGameType   = errors.New("unsupported game type")
)

// roomPlayer is one occupant. conn is nil until the websocket attaches
// and again after it drops; writes are serialized per connection.
type roomPlayer struct {
	id   string
	mark string

	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (p *roomPlayer) send(frame []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.conn == nil {
		return nil
	}
	return p.conn.WriteMessage(websocket.TextMessage, frame)
}

// room is one game in progress. The mutex guards occupancy and game
// state; broadcasts go to every occupant, the sender included, which is
// what lets clients treat their own echoes uniformly.
type room struct {
	id       string
	gameType string

	mu      sync.Mutex
	players map[string]*roomPlayer
	order   []string
	active  bool
	vsBot   bool

	ttt *tictactoeGame
	fen string
}

func (r *room) capacity() int {
	if r.vsBot {
		return 1
	}
	return 2
}

// marks maps every occupant to its assigned mark.
func (r *room) marks() map[string]string {
	out := make(map[string]string, len(r.players))
	for id, p := range r.players {
		out[id] = p.mark
	}
	return out
}

// markFor assigns by arrival order: X/white first, O/black second.
func (r *room) markFor(position int) string {
	if r.gameType == GameChess {
		if position == 0 {
			return "white"
		}
		return "black"
	}
	if position == 0 {
		return string(PlayerX)
	}
	return string(PlayerO)
}

// stateData is the game_state.data payload for REST responses and
// full-state pushes: a board snapshot for tictactoe, a FEN for chess.
func (r *room) stateData() any {
	if r.gameType == GameChess {
		return r.fen
	}
	return proto.TicTacToeState{
		Board:    r.ttt.BoardAsStrings(),
		Turn:     string(r.ttt.CurrentTurn),
		Winner:   r.ttt.Winner,
		IsActive: r.active && r.ttt.Winner == "",
	}
}

// broadcastLocked sends an envelope to every occupant. Callers hold r.mu.
func (r *room) broadcastLocked(action proto.Action, payload any, senderID string) {
	frame, err := proto.Encode(action, payload, senderID)
	if err != nil {
		slog.Error("encoding broadcast", "room.id", r.id, "action", action, "error", err)
		return
	}
	r.relayLocked(frame)
}

// relayLocked forwards a raw frame verbatim to every occupant.
func (r *room) relayLocked(frame []byte) {
	for _, p := range r.players {
		if err := p.send(frame); err != nil {
			slog.Warn("writing to player", "room.id", r.id, "player.id", p.id, "error", err)
		}
	}
}

// pushStateLocked broadcasts the authoritative game state.
func (r *room) pushStateLocked() {
	action := proto.ActionTicTacToeGameState
	if r.gameType == GameChess {
		action = proto.ActionChessGameState
	}
	r.broadcastLocked(action, r.stateData(), "")
}

// resetLocked returns the game to its initial position. Occupancy and
// marks are untouched; the reset handshake only restarts play.
func (r *room) resetLocked() {
	if r.gameType == GameChess {
		r.fen = startFEN
		return
	}
	r.ttt.Reset()
}

// roomManager owns all rooms. Rooms live for the process lifetime; the
// dev server has no expiry sweep.
type roomManager struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func newRoomManager() *roomManager {
	return &roomManager{rooms: make(map[string]*room)}
}

// generateRoomCode returns a short uppercase code, friendlier to type
// than a full UUID.
func generateRoomCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}

func (rm *roomManager) create(gameType string, vsBot bool) (*room, error) {
	if gameType != GameTicTacToe && gameType != GameChess {
		return nil, errBadGameType
	}
	if vsBot && gameType != GameTicTacToe {
		return nil, fmt.Errorf("%w: bot play is tictactoe only", errBadGameType)
	}

	r := &room{
		id:       generateRoomCode(),
		gameType: gameType,
		players:  make(map[string]*roomPlayer),
		vsBot:    vsBot,
	}
	if gameType == GameChess {
		r.fen = startFEN
	} else {
		r.ttt = newTictactoeGame()
	}
	if vsBot {
		r.players[botPlayerID] = &roomPlayer{id: botPlayerID, mark: string(PlayerO)}
		r.order = append(r.order, botPlayerID)
	}

	rm.mu.Lock()
	rm.rooms[r.id] = r
	rm.mu.Unlock()
	return r, nil
}

func (rm *roomManager) get(roomID string) (*room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	r, ok := rm.rooms[roomID]
	if !ok {
		return nil, errRoomNotFound
	}
	return r, nil
}

// join adds a player, or returns the existing membership on rejoin. The
// assigned mark depends on arrival order; the bot always holds O.
func (rm *roomManager) join(roomID, gameType, playerID string) (*room, string, error) {
	r, err := rm.get(roomID)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gameType != "" && gameType != r.gameType {
		return nil, "", errGameTypeMatch
	}
	if existing, ok := r.players[playerID]; ok {
		return r, existing.mark, nil
	}

	humans := len(r.players)
	if r.vsBot {
		humans--
	}
	if humans >= r.capacity() {
		return nil, "", errRoomFull
	}

	var position int
	if r.vsBot {
		position = 0
	} else {
		position = len(r.players)
	}
	p := &roomPlayer{id: playerID, mark: r.markFor(position)}
	r.players[playerID] = p
	r.order = append(r.order, playerID)
	return r, p.mark, nil
}

// roomView is the wire shape of a room in REST responses.
type roomView struct {
	RoomID    string `json:"room_id"`
	IsActive  bool   `json:"is_active"`
	GameState struct {
		GameType string          `json:"game_type"`
		Data     json.RawMessage `json:"data"`
	} `json:"game_state"`
	PlayerCount int `json:"player_count"`
}

// view snapshots the room for a REST response. Callers must not hold r.mu.
func (r *room) view() (roomView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var v roomView
	v.RoomID = r.id
	v.IsActive = r.active
	v.GameState.GameType = r.gameType
	v.PlayerCount = len(r.players)

	data, err := json.Marshal(r.stateData())
	if err != nil {
		return v, fmt.Errorf("marshal game state: %w", err)
	}
	v.GameState.Data = data
	return v, nil
}
