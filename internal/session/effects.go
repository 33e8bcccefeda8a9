package session

import "time"

// Effect is a side effect requested by the state machine. The core never
// touches the network, storage or UI itself; an outer shell executes the
// effects it returns.
type Effect interface {
	effect()
}

// Sound kinds requested by PlaySound.
type Sound int

const (
	SoundMove Sound = iota
	SoundCapture
	SoundNotification
)

// AlertKind selects the alert styling.
type AlertKind int

const (
	AlertInfo AlertKind = iota
	AlertWarning
	AlertError
)

func (k AlertKind) String() string {
	switch k {
	case AlertWarning:
		return "warning"
	case AlertError:
		return "error"
	default:
		return "info"
	}
}

// PlaySound asks the shell to play a sound. Capture and quiet-move sounds
// are mutually exclusive per move.
type PlaySound struct {
	Sound Sound
}

// ShowAlert asks the shell to surface a dismissible alert.
type ShowAlert struct {
	Kind  AlertKind
	Title string
	Text  string
}

// Send asks the shell to transmit an encoded frame over the room socket.
type Send struct {
	Frame []byte
}

// Persist asks the shell to mirror a key into local storage.
type Persist struct {
	Key   string
	Value string
}

// ClearPersisted asks the shell to drop keys from local storage.
type ClearPersisted struct {
	Keys []string
}

// Reload asks the shell to tear the session down and restart from the
// lobby after a delay.
type Reload struct {
	After time.Duration
}

// PromptResetConfirm asks the shell to show the reset confirmation dialog.
// The shell reports acceptance by calling AcceptReset.
type PromptResetConfirm struct{}

// PromptPromotion asks the shell for a promotion piece. The shell retries
// the drop with the chosen piece.
type PromptPromotion struct {
	From string
	To   string
}

func (PlaySound) effect()          {}
func (ShowAlert) effect()          {}
func (Send) effect()               {}
func (Persist) effect()            {}
func (ClearPersisted) effect()     {}
func (Reload) effect()             {}
func (PromptResetConfirm) effect() {}
func (PromptPromotion) effect()    {}

// Persisted-state keys mirrored in local storage.
const (
	KeyPlayerID   = "playerId"
	KeyRoomID     = "roomId"
	KeyPlayerMark = "playerMark"
	KeyTheme      = "theme"
)

// RoomGoneMessage is shown when the room socket fails terminally.
const RoomGoneMessage = "Room expired or no longer available. Please create or join a new room."

// TerminalFailure is the effect sequence for an unrecoverable transport
// error: a blocking alert, cleared room state and a full restart after a
// short delay.
func TerminalFailure() []Effect {
	return []Effect{
		ShowAlert{Kind: AlertError, Title: "Uppsss...", Text: RoomGoneMessage},
		ClearPersisted{Keys: []string{KeyRoomID, KeyPlayerMark}},
		Reload{After: time.Second},
	}
}
