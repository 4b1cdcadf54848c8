package session

import (
	"time"
)

// InstructionRefreshSessionTimer announces that the backend is ending the session.
const InstructionRefreshSessionTimer = "refresh_session_timer"

// Instruction is a server-pushed directive received over the real-time channel.
type Instruction struct {
	Type       string  `json:"type"`
	GoodbyeMsg string  `json:"goodbye_msg,omitempty"`
	Timer      float64 `json:"timer,omitempty"`
}

// Countdown converts the Timer field, expressed in units, into a duration.
func (i Instruction) Countdown(unit time.Duration) time.Duration {
	if i.Timer <= 0 {
		return 0
	}
	return time.Duration(i.Timer * float64(unit))
}
