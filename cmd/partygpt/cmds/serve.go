package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/partygpt/pkg/devserver"
	"github.com/go-go-golems/partygpt/pkg/redisstream"
)

// ServeCommand runs the reference backend the chat client talks to.
type ServeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*ServeCommand)(nil)

func NewServeCommand() (*ServeCommand, error) {
	serverSection, err := devserver.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build devserver section")
	}
	redisSection, err := redisstream.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build redis section")
	}

	desc := cmds.NewCommandDescription(
		"serve",
		cmds.WithShort("Run the reference chat backend"),
		cmds.WithLong("Serve the HTTP endpoints and the instruction socket used by partygpt chat. "+
			"Replies echo the guest, farewells end the session, and saved conversations go to SQLite and YAML."),
		cmds.WithSections(serverSection, redisSection),
	)
	return &ServeCommand{CommandDescription: desc}, nil
}

func (c *ServeCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	var (
		s     devserver.Settings
		redis redisstream.Settings
	)
	if err := parsedLayers.DecodeSectionInto(devserver.SectionSlug, &s); err != nil {
		return errors.Wrap(err, "init devserver settings")
	}
	if err := parsedLayers.DecodeSectionInto(redisstream.SectionSlug, &redis); err != nil {
		return errors.Wrap(err, "init redis settings")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := devserver.NewServer(s, redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Error().Err(err).Msg("closing reference backend")
		}
	}()

	log.Info().Bool("redis", redis.Enabled).Str("addr", s.Addr).Msg("reference backend configured")
	return srv.Run(ctx)
}
