package proto

// Action identifies the kind of message carried by an Envelope. The set is
// closed: every frame on the room socket carries exactly one of these values.
type Action string

const (
	// Server -> client state pushes.
	ActionTicTacToeGameState Action = "TICTACTOE_GAME_STATE"
	ActionChessGameState     Action = "CHESS_GAME_STATE"

	// Moves. CHESS_MOVE flows in both directions.
	ActionTicTacToeMove Action = "TICTACTOE_MOVE"
	ActionChessMove     Action = "CHESS_MOVE"

	// Room lifecycle and presence.
	ActionStartGame         Action = "START_GAME"
	ActionConnectedOnServer Action = "CONNECTED_ON_SERVER"
	ActionUserLeftRoom      Action = "USER_LEFT_ROOM"
	ActionMarkUpdate        Action = "MARK_UPDATE"

	// Chat and game outcomes.
	ActionChatMessage   Action = "CHAT_MESSAGE"
	ActionGameCheckmate Action = "GAME_CHECKMATE"
	ActionGameDraw      Action = "GAME_DRAW"

	// Two-phase reset handshake.
	ActionRequestReset Action = "REQUEST_RESET"
	ActionConfirmReset Action = "CONFIRM_RESET"
)

var knownActions = map[Action]struct{}{
	ActionTicTacToeGameState: {},
	ActionChessGameState:     {},
	ActionTicTacToeMove:      {},
	ActionChessMove:          {},
	ActionStartGame:          {},
	ActionConnectedOnServer:  {},
	ActionUserLeftRoom:       {},
	ActionMarkUpdate:         {},
	ActionChatMessage:        {},
	ActionGameCheckmate:      {},
	ActionGameDraw:           {},
	ActionRequestReset:       {},
	ActionConfirmReset:       {},
}

// Known reports whether a is one of the recognized action values.
func (a Action) Known() bool {
	_, ok := knownActions[a]
	return ok
}
