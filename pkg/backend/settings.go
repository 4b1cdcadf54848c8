package backend

import (
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "backend"

// Settings configures how the chat client reaches the backend.
type Settings struct {
	BaseURL               string `glazed:"backend-url"`
	RequestTimeoutSeconds int    `glazed:"backend-timeout-seconds"`
}

func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Chat backend connection",
		schema.WithFields(
			fields.New("backend-url", fields.TypeString,
				fields.WithDefault("http://localhost:5000"),
				fields.WithHelp("Base URL of the chat backend (HTTP endpoints and /ws)")),
			fields.New("backend-timeout-seconds", fields.TypeInteger,
				fields.WithDefault(30),
				fields.WithHelp("Timeout for a single backend request")),
		),
	)
}

func (s Settings) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}
