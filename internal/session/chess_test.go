package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minigame/client/internal/chess"
	"minigame/client/pkg/proto"
)

const promotionFEN = "8/P7/8/8/8/4k3/8/4K3 w - - 0 1"

// foolsMateFEN is a position where white has just been checkmated.
const foolsMateFEN = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"

func newActiveChess(t *testing.T, mark, initialFEN string) *Chess {
	t.Helper()
	g, err := NewChess("r1", "p1", mark, initialFEN)
	require.NoError(t, err)
	g.HandleFrame(serverFrame(t, proto.ActionStartGame, nil, ""))
	require.True(t, g.Active())
	return g
}

func TestChessDropOutOfTurnAlertsWithoutSending(t *testing.T) {
	g := newActiveChess(t, chess.MarkBlack, "")

	effects := g.Drop("e7", "e5", "")

	require.Len(t, effects, 1)
	alert, ok := effects[0].(ShowAlert)
	require.True(t, ok)
	assert.Equal(t, AlertWarning, alert.Kind)
	assert.Equal(t, chess.New().FEN(), g.FEN())
}

func TestChessDropEmitsMoveWithSound(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, "")

	effects := g.Drop("e2", "e4", "")

	require.Len(t, effects, 2)
	sound, ok := effects[0].(PlaySound)
	require.True(t, ok)
	assert.Equal(t, SoundMove, sound.Sound)

	sent := sentEnvelopes(t, effects)
	require.Len(t, sent, 1)
	assert.Equal(t, proto.ActionChessMove, sent[0].Action)

	var mv proto.ChessMove
	require.NoError(t, json.Unmarshal(sent[0].Message, &mv))
	assert.Equal(t, g.FEN(), mv.FEN)
	require.NotNil(t, mv.LastMove)
	assert.Equal(t, proto.SquarePair{From: "e2", To: "e4"}, *mv.LastMove)
	assert.Empty(t, mv.Promotion)
}

func TestChessDropCaptureUsesCaptureSound(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, "")
	g.Drop("e2", "e4", "")
	g.HandleFrame(serverFrame(t, proto.ActionChessMove, proto.ChessMove{
		FEN: mustApply(t, g.FEN(), "d7", "d5"),
	}, "p2"))

	effects := g.Drop("e4", "d5", "")

	require.NotEmpty(t, effects)
	sound, ok := effects[0].(PlaySound)
	require.True(t, ok)
	assert.Equal(t, SoundCapture, sound.Sound)
}

// mustApply plays a move on a scratch board to produce the opponent's
// echoed FEN.
func mustApply(t *testing.T, fen, from, to string) string {
	t.Helper()
	b := chess.New()
	require.NoError(t, b.Load(fen))
	res, err := b.Play(chess.Move{From: from, To: to}, b.SideToMove())
	require.NoError(t, err)
	return res.FEN
}

func TestChessPromotionDeferredUntilPieceSupplied(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, promotionFEN)

	effects := g.Drop("a7", "a8", "")

	require.Len(t, effects, 1)
	prompt, ok := effects[0].(PromptPromotion)
	require.True(t, ok)
	assert.Equal(t, PromptPromotion{From: "a7", To: "a8"}, prompt)
	assert.Equal(t, promotionFEN, g.FEN())

	effects = g.Drop("a7", "a8", "q")

	sent := sentEnvelopes(t, effects)
	require.Len(t, sent, 1)
	var mv proto.ChessMove
	require.NoError(t, json.Unmarshal(sent[0].Message, &mv))
	assert.Equal(t, "q", mv.Promotion)
	assert.NotEqual(t, promotionFEN, g.FEN())
}

func TestChessInboundMoveEchoUpdatesPositionAndHighlight(t *testing.T) {
	g := newActiveChess(t, chess.MarkBlack, "")
	echoFEN := mustApply(t, chess.New().FEN(), "e2", "e4")

	g.HandleFrame(serverFrame(t, proto.ActionChessMove, proto.ChessMove{
		FEN:      echoFEN,
		LastMove: &proto.SquarePair{From: "e2", To: "e4"},
	}, "p2"))

	assert.Equal(t, echoFEN, g.FEN())
	require.NotNil(t, g.LastMove())
	assert.Equal(t, proto.SquarePair{From: "e2", To: "e4"}, *g.LastMove())
}

func TestChessInboundCheckmateAnnouncedOnce(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, "")

	effects := g.HandleFrame(serverFrame(t, proto.ActionChessMove, proto.ChessMove{
		FEN:      foolsMateFEN,
		LastMove: &proto.SquarePair{From: "d8", To: "h4"},
	}, "p2"))

	sent := sentEnvelopes(t, effects)
	require.Len(t, sent, 1)
	assert.Equal(t, proto.ActionGameCheckmate, sent[0].Action)
	assert.Equal(t, PhaseOver, g.Phase())
	assert.Equal(t, chess.BlackWinsMessage, g.Winner())

	// A replay of the same position (different raw bytes, so it passes the
	// duplicate guard) must not re-announce.
	effects = g.HandleFrame(serverFrame(t, proto.ActionChessMove, proto.ChessMove{
		FEN: foolsMateFEN,
	}, "p2"))
	assert.Empty(t, sentEnvelopes(t, effects))
}

func TestChessStateSyncRunsTerminalEvaluation(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, "")

	effects := g.HandleFrame(serverFrame(t, proto.ActionChessGameState, foolsMateFEN, ""))

	sent := sentEnvelopes(t, effects)
	require.Len(t, sent, 1)
	assert.Equal(t, proto.ActionGameCheckmate, sent[0].Action)
	assert.Nil(t, g.LastMove())
}

func TestChessDrawSetsSentinelWinner(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, "")

	effects := g.HandleFrame(serverFrame(t, proto.ActionChessGameState, "7k/5Q2/5K2/8/8/8/8/8 b - - 0 1", ""))

	sent := sentEnvelopes(t, effects)
	require.Len(t, sent, 1)
	assert.Equal(t, proto.ActionGameDraw, sent[0].Action)
	assert.Equal(t, "Draw", g.Winner())
}

func TestChessNoMovesAcceptedUntilResetHandshakeCompletes(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, "")
	g.HandleFrame(serverFrame(t, proto.ActionGameCheckmate, chess.BlackWinsMessage, "p2"))
	require.Equal(t, PhaseOver, g.Phase())

	// Locked out while the result is displayed.
	assert.Empty(t, sentEnvelopes(t, g.Drop("e2", "e4", "")))

	// Requester side: one outstanding request, no auto-retry.
	effects := g.RequestReset()
	require.Len(t, sentEnvelopes(t, effects), 1)
	assert.True(t, g.ResetRequested())
	assert.Empty(t, g.RequestReset())

	// The accepting peer's confirmation is echoed to both; receiving it
	// completes the handshake.
	g.HandleFrame(serverFrame(t, proto.ActionConfirmReset, nil, "p2"))

	assert.True(t, g.Active())
	assert.Empty(t, g.Winner())
	assert.False(t, g.ResetRequested())
	assert.Equal(t, chess.New().FEN(), g.FEN())
	assert.NotEmpty(t, sentEnvelopes(t, g.Drop("e2", "e4", "")))
}

func TestChessPeerResetRequestPromptsConfirmation(t *testing.T) {
	g := newActiveChess(t, chess.MarkWhite, "")
	g.HandleFrame(serverFrame(t, proto.ActionGameDraw, chess.DrawMessage, "p2"))

	effects := g.HandleFrame(serverFrame(t, proto.ActionRequestReset, nil, "p2"))
	require.Len(t, effects, 1)
	_, ok := effects[0].(PromptResetConfirm)
	assert.True(t, ok)

	// Our own echoed request must not prompt us.
	assert.Empty(t, g.HandleFrame(serverFrame(t, proto.ActionRequestReset, nil, "p1")))

	effects = g.AcceptReset()
	sent := sentEnvelopes(t, effects)
	require.Len(t, sent, 1)
	assert.Equal(t, proto.ActionConfirmReset, sent[0].Action)
}
