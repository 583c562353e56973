package conversation

import "github.com/getmetherapy/mochat/internal/chatlog"

// State is the classified conversational mode for an incoming message.
type State string

const (
	// StateNewUser means no turn was ever recorded for the user.
	StateNewUser State = "new_user"
	// StateReturning means the user has history, but none inside the
	// trailing window.
	StateReturning State = "returning_user"
	// StateOngoing means at least one turn sits inside the trailing window.
	StateOngoing State = "ongoing"
)

// PromptContext is the ephemeral classification result handed to the prompt
// assembler. It is never persisted.
type PromptContext struct {
	State State
	// PriorSummary is set only for StateReturning, and only when a rolling
	// summary exists for the user.
	PriorSummary *chatlog.UserSummary
	// TrailingTurns is set only for StateOngoing: the trailing-window turns
	// in ascending chronological order.
	TrailingTurns []chatlog.Turn
}
