package records

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
)

type ListCommand struct {
	*cmds.CommandDescription
}

type ListSettings struct {
	RecordsDB string `glazed:"records-db"`
	Limit     int    `glazed:"limit"`
}

func NewListCommand() (*ListCommand, error) {
	glazedLayer, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsLayer, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"list",
		cmds.WithShort("List saved conversations"),
		cmds.WithLong("List saved conversations, newest first, with their message counts."),
		cmds.WithFlags(
			fields.New(
				"records-db",
				fields.TypeString,
				fields.WithDefault(defaultRecordsDB),
				fields.WithHelp("SQLite file written by partygpt serve"),
			),
			fields.New(
				"limit",
				fields.TypeInteger,
				fields.WithDefault(50),
				fields.WithHelp("Limit number of conversations (0 = no limit)"),
			),
		),
		cmds.WithSections(glazedLayer, commandSettingsLayer),
	)

	return &ListCommand{CommandDescription: desc}, nil
}

func (c *ListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *values.Values,
	gp middlewares.Processor,
) error {
	s := &ListSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	store, err := openStore(s.RecordsDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.List(ctx, s.Limit)
	if err != nil {
		return errors.Wrap(err, "records list failed")
	}
	for _, sum := range summaries {
		row := types.NewRow(
			types.MRP("id", sum.ID),
			types.MRP("session_id", sum.SessionID),
			types.MRP("saved_at", sum.SavedAt.Format("2006-01-02 15:04:05")),
			types.MRP("messages", sum.MessageCount),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

var _ cmds.GlazeCommand = &ListCommand{}
