// Package cli is the interactive terminal client. It owns the outer
// shell around the pure session state machines: it reads commands,
// forwards frames, and executes the effects the sessions return.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"minigame/client/internal/config"
	"minigame/client/internal/lobby"
	"minigame/client/internal/session"
	"minigame/client/internal/store"
	"minigame/client/internal/transport"
)

// App wires the lobby client, the local store and one active room.
type App struct {
	cfg   *config.Config
	api   *lobby.Client
	store store.Store

	out   io.Writer
	lines chan string

	playerID string
}

func New(cfg *config.Config, st store.Store, out io.Writer, in io.Reader) *App {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	return &App{
		cfg:   cfg,
		api:   lobby.NewClient(cfg.HTTPBaseURL),
		store: st,
		out:   out,
		lines: lines,
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// Run is the top-level loop: identify the player, resume a persisted
// room if one exists, otherwise sit in the lobby prompt.
func (a *App) Run(ctx context.Context) error {
	if err := a.ensurePlayer(ctx); err != nil {
		return err
	}
	a.printf("playing as %s", a.playerID)

	for {
		resumed, err := a.resumeRoom(ctx)
		if err != nil {
			return err
		}
		if !resumed {
			info, err := a.lobbyPrompt(ctx)
			if err != nil || info == nil {
				return err
			}
			if err := a.enterRoom(ctx, info); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// ensurePlayer loads or mints the player identity and registers it. A
// registration failure for an already-known id is fine; the id is the
// source of truth, the backend registry is advisory.
func (a *App) ensurePlayer(ctx context.Context) error {
	id, err := a.store.Get(ctx, session.KeyPlayerID)
	if err != nil {
		return err
	}
	fresh := id == ""
	if fresh {
		id = uuid.NewString()
	}
	a.playerID = id

	if err := a.api.RegisterPlayer(ctx, id); err != nil {
		if fresh {
			return fmt.Errorf("register player: %w", err)
		}
		slog.Debug("re-registration rejected, keeping stored identity", "player.id", id, "error", err)
	}
	if fresh {
		return a.store.Set(ctx, session.KeyPlayerID, id)
	}
	return nil
}

// resumeRoom rejoins a persisted room, mirroring a browser reload
// landing back on the game page. Stale room state is cleared.
func (a *App) resumeRoom(ctx context.Context) (bool, error) {
	roomID, err := a.store.Get(ctx, session.KeyRoomID)
	if err != nil || roomID == "" {
		return false, err
	}

	info, err := a.api.JoinRoom(ctx, roomID, "", a.playerID)
	if err != nil {
		a.printf("stored room %s is gone (%v)", roomID, err)
		if err := a.store.Delete(ctx, session.KeyRoomID, session.KeyPlayerMark); err != nil {
			return false, err
		}
		return false, nil
	}
	a.printf("resuming room %s", roomID)
	return true, a.enterRoom(ctx, info)
}

// lobbyPrompt handles the pre-room commands. It returns nil on quit.
func (a *App) lobbyPrompt(ctx context.Context) (*lobby.RoomInfo, error) {
	a.printf("commands: create <tictactoe|chess> | join <room> <tictactoe|chess> | theme <name> | quit")
	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case line, ok := <-a.lines:
			if !ok {
				return nil, nil
			}
			args := strings.Fields(line)
			if len(args) == 0 {
				continue
			}
			switch args[0] {
			case "create":
				if len(args) != 2 {
					a.printf("usage: create <tictactoe|chess>")
					continue
				}
				info, err := a.api.CreateRoom(ctx, args[1], a.playerID)
				if err != nil {
					a.printf("create failed: %v", err)
					continue
				}
				a.printf("room %s created, share the code with your opponent", info.RoomID)
				return info, nil
			case "join":
				if len(args) != 3 {
					a.printf("usage: join <room> <tictactoe|chess>")
					continue
				}
				info, err := a.api.JoinRoom(ctx, args[1], args[2], a.playerID)
				if err != nil {
					a.printf("join failed: %v", err)
					continue
				}
				return info, nil
			case "theme":
				if len(args) != 2 {
					a.printf("usage: theme <name>")
					continue
				}
				if err := a.store.Set(ctx, session.KeyTheme, args[1]); err != nil {
					a.printf("saving theme: %v", err)
					continue
				}
				a.printf("theme set to %s", args[1])
			case "quit":
				return nil, nil
			default:
				a.printf("unknown command %q", args[0])
			}
		}
	}
}

// roomGame is what the in-room loop needs from either session kind.
type roomGame interface {
	HandleFrame(raw []byte) []session.Effect
	SendChat(text string) []session.Effect
	RequestReset() []session.Effect
	AcceptReset() []session.Effect
	Leave() []session.Effect
	OpenChat()
	CloseChat()
	Transcript() []session.ChatEntry
	Phase() session.Phase
	Mark() string
}

// enterRoom builds the session for the room's game type, connects the
// socket and runs the in-room loop until the player leaves.
func (a *App) enterRoom(ctx context.Context, info *lobby.RoomInfo) error {
	if err := a.store.Set(ctx, session.KeyRoomID, info.RoomID); err != nil {
		return err
	}
	if err := a.store.Set(ctx, session.KeyPlayerMark, info.PlayerMark); err != nil {
		return err
	}

	var game roomGame
	var render func() string
	switch info.GameType {
	case "chess":
		fen := ""
		if len(info.InitialState) > 0 {
			if err := json.Unmarshal(info.InitialState, &fen); err != nil {
				fen = ""
			}
		}
		g, err := session.NewChess(info.RoomID, a.playerID, info.PlayerMark, fen)
		if err != nil {
			return fmt.Errorf("bootstrap chess session: %w", err)
		}
		game = g
		render = func() string { return renderChess(g) }
	default:
		g := session.NewTicTacToe(info.RoomID, a.playerID, info.PlayerMark)
		if len(info.InitialState) > 0 {
			frame, err := json.Marshal(map[string]any{
				"action":  "TICTACTOE_GAME_STATE",
				"message": json.RawMessage(info.InitialState),
			})
			if err == nil {
				g.HandleFrame(frame)
			}
		}
		game = g
		render = func() string { return renderTicTacToe(g) }
	}

	frames := make(chan []byte, 64)
	mgr, err := transport.Dial(ctx, a.cfg.WSBaseURL, info.RoomID, a.playerID, func(frame []byte) {
		frames <- frame
	})
	if err != nil {
		a.runEffects(ctx, nil, session.TerminalFailure())
		return nil
	}
	defer mgr.Close()

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go mgr.Run(pumpCtx)

	a.printf("%s", render())
	return a.roomLoop(ctx, game, render, mgr, frames)
}

// roomLoop multiplexes inbound frames and user commands until leave.
func (a *App) roomLoop(ctx context.Context, game roomGame, render func() string, mgr *transport.Manager, frames chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case frame := <-frames:
			effects := game.HandleFrame(frame)
			a.runEffects(ctx, mgr, effects)
			a.printf("%s", render())

		case line, ok := <-a.lines:
			if !ok {
				a.runEffects(ctx, mgr, game.Leave())
				return nil
			}
			leave, effects := a.command(game, line)
			a.runEffects(ctx, mgr, effects)
			if leave {
				return nil
			}
			a.printf("%s", render())
		}
	}
}

// command parses one in-room line into session intents.
func (a *App) command(game roomGame, line string) (leave bool, effects []session.Effect) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "move":
		return false, a.moveCommand(game, args[1:])

	case "chat":
		if len(args) == 1 {
			game.OpenChat()
			for _, entry := range game.Transcript() {
				a.printf("  [%s] %s: %s", entry.Timestamp, entry.Sender, entry.Message)
			}
			game.CloseChat()
			return false, nil
		}
		return false, game.SendChat(strings.Join(args[1:], " "))

	case "reset":
		effects := game.RequestReset()
		if effects == nil && game.Phase() != session.PhaseOver {
			a.printf("reset is only available after the game ends")
		}
		return false, effects

	case "accept":
		return false, game.AcceptReset()

	case "leave":
		return true, game.Leave()

	case "help":
		a.printf("commands: move | chat [text] | reset | accept | leave")
		return false, nil

	default:
		a.printf("unknown command %q (try 'help')", args[0])
		return false, nil
	}
}

// moveCommand accepts "move <row> <col>" for tic-tac-toe and
// "move <from> <to> [piece]" (or "move e2e4") for chess.
func (a *App) moveCommand(game roomGame, args []string) []session.Effect {
	switch g := game.(type) {
	case *session.TicTacToe:
		if len(args) != 2 {
			a.printf("usage: move <row> <col>")
			return nil
		}
		var row, col int
		if _, err := fmt.Sscanf(args[0]+" "+args[1], "%d %d", &row, &col); err != nil {
			a.printf("usage: move <row> <col>")
			return nil
		}
		return g.Click(row, col)

	case *session.Chess:
		from, to, promotion := parseChessMove(args)
		if from == "" {
			a.printf("usage: move <from> <to> [qrbn], e.g. move e2 e4")
			return nil
		}
		return g.Drop(from, to, promotion)
	}
	return nil
}

// parseChessMove handles "e2 e4", "e2e4" and an optional promotion piece.
func parseChessMove(args []string) (from, to, promotion string) {
	switch len(args) {
	case 1:
		if len(args[0]) == 4 || len(args[0]) == 5 {
			from, to = args[0][:2], args[0][2:4]
			if len(args[0]) == 5 {
				promotion = args[0][4:]
			}
			return from, to, promotion
		}
	case 2:
		if len(args[1]) == 2 {
			return args[0], args[1], ""
		}
	case 3:
		return args[0], args[1], args[2]
	}
	return "", "", ""
}

// runEffects executes a session's effect list against the real world.
func (a *App) runEffects(ctx context.Context, mgr *transport.Manager, effects []session.Effect) {
	for _, e := range effects {
		switch eff := e.(type) {
		case session.PlaySound:
			// The terminal bell stands in for the browser's audio cues.
			fmt.Fprint(a.out, "\a")

		case session.ShowAlert:
			if eff.Title != "" {
				a.printf("[%s] %s: %s", eff.Kind, eff.Title, eff.Text)
			} else {
				a.printf("[%s] %s", eff.Kind, eff.Text)
			}

		case session.Send:
			if mgr == nil {
				continue
			}
			if err := mgr.Send(eff.Frame); err != nil {
				slog.Warn("sending frame", "error", err)
			}

		case session.Persist:
			if err := a.store.Set(ctx, eff.Key, eff.Value); err != nil {
				slog.Warn("persisting value", "key", eff.Key, "error", err)
			}

		case session.ClearPersisted:
			if err := a.store.Delete(ctx, eff.Keys...); err != nil {
				slog.Warn("clearing persisted keys", "error", err)
			}

		case session.Reload:
			a.printf("returning to the lobby...")
			select {
			case <-time.After(eff.After):
			case <-ctx.Done():
			}

		case session.PromptResetConfirm:
			a.printf("your opponent wants a rematch, type 'accept' to restart")

		case session.PromptPromotion:
			a.printf("promotion: repeat the move with a piece, e.g. move %s %s q", eff.From, eff.To)
		}
	}
}
