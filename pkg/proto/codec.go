package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"minigame/client/internal/validator"
)

// ErrDuplicateFrame is returned by Decoder.Decode when the raw frame is
// byte-identical to the immediately preceding one. Duplicate delivery is
// expected over the upstream channel; callers drop such frames without
// side effects.
var ErrDuplicateFrame = errors.New("duplicate frame")

// DecodeError wraps any failure to parse or validate an inbound frame.
// Callers log it and drop the frame; it must never propagate into session
// state.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder parses inbound frames into envelopes and suppresses duplicate
// deliveries. One Decoder serves one session; the duplicate guard compares
// against the last raw frame seen and is reset with the session.
type Decoder struct {
	lastRaw string
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses a raw inbound frame. A frame identical to the previous one
// yields ErrDuplicateFrame; any parse or validation failure yields a
// *DecodeError. Decode never panics on malformed input.
func (d *Decoder) Decode(raw []byte) (*Envelope, error) {
	// The guard tracks the raw bytes, not the parsed result, so repeats of
	// a malformed frame are suppressed too.
	if d.lastRaw != "" && d.lastRaw == string(raw) {
		return nil, ErrDuplicateFrame
	}
	d.lastRaw = string(raw)

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}
	if err := validator.Struct(&env); err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}
	if !env.Action.Known() {
		return nil, &DecodeError{Raw: raw, Err: fmt.Errorf("unknown action %q", env.Action)}
	}
	return &env, nil
}

// Reset clears the duplicate guard. Called when a session is discarded or
// the connection is re-established against a fresh room.
func (d *Decoder) Reset() {
	d.lastRaw = ""
}

// Encode serializes a client-originated envelope, stamping the sender and
// a timestamp. A nil payload produces a frame with no message field, as
// used by the reset handshake.
func Encode(action Action, payload any, senderID string) ([]byte, error) {
	env := Envelope{
		Action:    action,
		Sender:    &Sender{PlayerID: senderID},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload != nil {
		msg, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", action, err)
		}
		env.Message = msg
	}
	return json.Marshal(&env)
}
