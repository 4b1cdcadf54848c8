package records

import (
	"context"
	"io"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ShowCommand prints one saved conversation in the same YAML layout the
// backend writes to its records folder.
type ShowCommand struct {
	*cmds.CommandDescription
}

type ShowSettings struct {
	RecordsDB string `glazed:"records-db"`
	ID        int    `glazed:"id"`
}

func NewShowCommand() (*ShowCommand, error) {
	desc := cmds.NewCommandDescription(
		"show",
		cmds.WithShort("Print a saved conversation as YAML"),
		cmds.WithArguments(
			fields.New("id", fields.TypeInteger, fields.WithHelp("Record id, as printed by records list")),
		),
		cmds.WithFlags(
			fields.New(
				"records-db",
				fields.TypeString,
				fields.WithDefault(defaultRecordsDB),
				fields.WithHelp("SQLite file written by partygpt serve"),
			),
		),
	)
	return &ShowCommand{CommandDescription: desc}, nil
}

func (c *ShowCommand) RunIntoWriter(ctx context.Context, parsedLayers *values.Values, w io.Writer) error {
	s := &ShowSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	store, err := openStore(s.RecordsDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	r, ok, err := store.Get(ctx, int64(s.ID))
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("no record with id %d", s.ID)
	}
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return errors.Wrap(enc.Encode(r), "encode record")
}

var _ cmds.WriterCommand = &ShowCommand{}
