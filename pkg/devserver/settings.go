package devserver

import (
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "devserver"

const DefaultGoodbyeMessage = "It was lovely talking to you. Enjoy the rest of the party!"

// Settings controls the reference backend.
type Settings struct {
	Addr                 string `glazed:"addr"`
	RecordsDB            string `glazed:"records-db"`
	RecordsFolder        string `glazed:"records-folder"`
	GoodbyeMessage       string `glazed:"goodbye-message"`
	GoodbyeTimerSeconds  int    `glazed:"goodbye-timer-seconds"`
	SocketIdleTimeoutSec int    `glazed:"socket-idle-timeout-seconds"`
}

func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Reference chat backend",
		schema.WithFields(
			fields.New("addr", fields.TypeString,
				fields.WithDefault(":5000"),
				fields.WithHelp("Address to listen on")),
			fields.New("records-db", fields.TypeString,
				fields.WithDefault("partygpt-records.db"),
				fields.WithHelp("SQLite file for saved conversations (empty disables the database)")),
			fields.New("records-folder", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Folder receiving one YAML file per saved conversation")),
			fields.New("goodbye-message", fields.TypeString,
				fields.WithDefault(DefaultGoodbyeMessage),
				fields.WithHelp("Farewell sent to the client when the guest says goodbye")),
			fields.New("goodbye-timer-seconds", fields.TypeInteger,
				fields.WithDefault(10),
				fields.WithHelp("Seconds the client waits after the farewell before starting a new session")),
			fields.New("socket-idle-timeout-seconds", fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Reset the conversation when no client has been connected for this long (0 disables)")),
		),
	)
}

func (s Settings) SocketIdleTimeout() time.Duration {
	if s.SocketIdleTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(s.SocketIdleTimeoutSec) * time.Second
}
