package records

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"

	"github.com/go-go-golems/partygpt/pkg/records"
	"github.com/go-go-golems/partygpt/pkg/ui"
)

type BrowseCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*BrowseCommand)(nil)

type BrowseSettings struct {
	RecordsDB string `glazed:"records-db"`
	Limit     int    `glazed:"limit"`
}

func NewBrowseCommand() (*BrowseCommand, error) {
	desc := cmds.NewCommandDescription(
		"browse",
		cmds.WithShort("Browse saved conversations in a terminal UI"),
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
				fields.WithDefault(200),
				fields.WithHelp("Load at most this many conversations (0 = all)"),
			),
		),
	)
	return &BrowseCommand{CommandDescription: desc}, nil
}

func (c *BrowseCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	s := &BrowseSettings{}
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
		return errors.Wrap(err, "records browse failed")
	}
	rs := make([]records.Record, 0, len(summaries))
	for _, sum := range summaries {
		r, ok, err := store.Get(ctx, sum.ID)
		if err != nil {
			return err
		}
		if ok {
			rs = append(rs, r)
		}
	}

	p := tea.NewProgram(ui.NewRecordBrowser(rs), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "error running program")
	}
	return nil
}
