package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minigame/client/pkg/proto"
)

// serverFrame builds a raw inbound frame the way the backend emits it.
func serverFrame(t *testing.T, action proto.Action, payload any, sender string) []byte {
	t.Helper()
	env := proto.Envelope{Action: action}
	if payload != nil {
		msg, err := json.Marshal(payload)
		require.NoError(t, err)
		env.Message = msg
	}
	if sender != "" {
		env.Sender = &proto.Sender{PlayerID: sender}
	}
	raw, err := json.Marshal(&env)
	require.NoError(t, err)
	return raw
}

// sentEnvelopes decodes every Send effect in the list.
func sentEnvelopes(t *testing.T, effects []Effect) []*proto.Envelope {
	t.Helper()
	var out []*proto.Envelope
	for _, e := range effects {
		if send, ok := e.(Send); ok {
			var env proto.Envelope
			require.NoError(t, json.Unmarshal(send.Frame, &env))
			out = append(out, &env)
		}
	}
	return out
}

func activeTTTState(board [3][3]string, turn string) *proto.TicTacToeState {
	return &proto.TicTacToeState{Board: board, Turn: turn, IsActive: true}
}

func TestTicTacToeStateReplacesBoardWholesale(t *testing.T) {
	g := NewTicTacToe("r1", "p1", "X")

	first := activeTTTState([3][3]string{{"X", "", ""}, {"", "", ""}, {"", "", ""}}, "O")
	g.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, first, ""))
	assert.Equal(t, first.Board, g.Board())
	assert.Equal(t, "O", g.Turn())
	assert.True(t, g.Active())

	// The next snapshot replaces everything, including cells the previous
	// one had set.
	second := activeTTTState([3][3]string{{"", "", ""}, {"", "O", ""}, {"", "", ""}}, "X")
	g.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, second, ""))
	assert.Equal(t, second.Board, g.Board())
	assert.Equal(t, "X", g.Turn())
}

func TestTicTacToeDuplicateFrameAppliedOnce(t *testing.T) {
	g := NewTicTacToe("r1", "p1", "X")
	raw := serverFrame(t, proto.ActionChatMessage, "hi", "p2")

	g.HandleFrame(raw)
	g.HandleFrame(raw)

	assert.Len(t, g.Transcript(), 1)
}

func TestTicTacToeClickWhileInactiveSendsNothing(t *testing.T) {
	g := NewTicTacToe("r1", "p1", "X")

	effects := g.Click(0, 0)

	assert.Empty(t, sentEnvelopes(t, effects))
	require.Len(t, effects, 1)
	alert, ok := effects[0].(ShowAlert)
	require.True(t, ok)
	assert.Equal(t, AlertWarning, alert.Kind)
}

func TestTicTacToeClickOutOfTurnSendsNothing(t *testing.T) {
	for _, mark := range []string{"X", "O"} {
		t.Run(mark, func(t *testing.T) {
			g := NewTicTacToe("r1", "p1", mark)
			other := "O"
			if mark == "O" {
				other = "X"
			}
			g.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, activeTTTState([3][3]string{}, other), ""))

			effects := g.Click(1, 1)

			assert.Empty(t, sentEnvelopes(t, effects))
		})
	}
}

func TestTicTacToeClickOnTurnEmitsMove(t *testing.T) {
	g := NewTicTacToe("r1", "p1", "X")
	g.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, activeTTTState([3][3]string{}, "X"), ""))

	effects := g.Click(0, 2)

	sent := sentEnvelopes(t, effects)
	require.Len(t, sent, 1)
	assert.Equal(t, proto.ActionTicTacToeMove, sent[0].Action)

	mv := proto.TicTacToeMove{}
	require.NoError(t, json.Unmarshal(sent[0].Message, &mv))
	assert.Equal(t, proto.TicTacToeMove{RoomID: "r1", PlayerID: "p1", Row: 0, Col: 2}, mv)
	assert.Equal(t, "p1", sent[0].From())
}

func TestTicTacToeTwoSessionsRenderIdenticalState(t *testing.T) {
	x := NewTicTacToe("r1", "px", "X")
	o := NewTicTacToe("r1", "po", "O")

	// Session X moves; the server later pushes the same snapshot to both.
	moveEffects := x.Click(0, 0)
	assert.Empty(t, sentEnvelopes(t, moveEffects)) // not active yet

	start := activeTTTState([3][3]string{}, "X")
	x.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, start, ""))
	o.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, start, ""))

	moveEffects = x.Click(0, 0)
	require.Len(t, sentEnvelopes(t, moveEffects), 1)

	after := activeTTTState([3][3]string{{"X", "", ""}, {"", "", ""}, {"", "", ""}}, "O")
	x.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, after, ""))
	o.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, after, ""))

	assert.Equal(t, x.Board(), o.Board())
	assert.Equal(t, "X", x.Board()[0][0])
	assert.Equal(t, "O", x.Turn())
	assert.Equal(t, "O", o.Turn())
	assert.Empty(t, x.Winner())
}

func TestTicTacToeWinnerStopsPlay(t *testing.T) {
	g := NewTicTacToe("r1", "p1", "X")
	final := &proto.TicTacToeState{
		Board:  [3][3]string{{"X", "X", "X"}, {"O", "O", ""}, {"", "", ""}},
		Turn:   "O",
		Winner: "X",
	}
	g.HandleFrame(serverFrame(t, proto.ActionTicTacToeGameState, final, ""))

	assert.Equal(t, PhaseOver, g.Phase())
	assert.Equal(t, "X", g.Winner())
	assert.Empty(t, sentEnvelopes(t, g.Click(2, 2)))
}

func TestMarkUpdateForLocalPlayer(t *testing.T) {
	g := NewTicTacToe("r1", "p1", "X")

	effects := g.HandleFrame(serverFrame(t, proto.ActionMarkUpdate, proto.MarkUpdate{Marks: map[string]string{"p1": "O"}}, ""))

	assert.Equal(t, "O", g.Mark())
	require.Len(t, effects, 1)
	persist, ok := effects[0].(Persist)
	require.True(t, ok)
	assert.Equal(t, KeyPlayerMark, persist.Key)
	assert.Equal(t, "O", persist.Value)
}

func TestMarkUpdateWithoutLocalEntryIsIgnored(t *testing.T) {
	g := NewTicTacToe("r1", "p1", "X")

	effects := g.HandleFrame(serverFrame(t, proto.ActionMarkUpdate, proto.MarkUpdate{Marks: map[string]string{"p2": "O"}}, ""))

	assert.Equal(t, "X", g.Mark())
	assert.Empty(t, effects)
}
