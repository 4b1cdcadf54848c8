package session

import (
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "session"

// DefaultIdleTimeout ends a session after three minutes without interaction.
const DefaultIdleTimeout = 3 * time.Minute

// Settings holds the session lifecycle configuration.
type Settings struct {
	IdleTimeoutSeconds int `glazed:"idle-timeout-seconds"`
}

// NewSection returns the section definition for session settings.
func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Chat session lifecycle",
		schema.WithFields(
			fields.New(
				"idle-timeout-seconds",
				fields.TypeInteger,
				fields.WithDefault(int(DefaultIdleTimeout/time.Second)),
				fields.WithHelp("End the session after this many seconds without user interaction"),
			),
		),
	)
}

func (s Settings) IdleTimeout() time.Duration {
	if s.IdleTimeoutSeconds <= 0 {
		return DefaultIdleTimeout
	}
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}
