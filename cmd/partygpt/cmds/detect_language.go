package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"

	"github.com/go-go-golems/partygpt/pkg/speech"
)

// DetectLanguageCommand shows which voice the chat would pick to read a text aloud.
type DetectLanguageCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*DetectLanguageCommand)(nil)

type DetectLanguageSettings struct {
	Text            string `glazed:"text"`
	RequireReliable bool   `glazed:"require-reliable"`
}

func NewDetectLanguageCommand() (*DetectLanguageCommand, error) {
	desc := cmds.NewCommandDescription(
		"detect-language",
		cmds.WithShort("Detect the language of a text and the speech locale used for it"),
		cmds.WithArguments(
			fields.New("text", fields.TypeString, fields.WithHelp("Text to inspect")),
		),
		cmds.WithFlags(
			fields.New("require-reliable", fields.TypeBool,
				fields.WithDefault(false),
				fields.WithHelp("Fall back to the default locale when the guess is unreliable")),
		),
	)
	return &DetectLanguageCommand{CommandDescription: desc}, nil
}

func (c *DetectLanguageCommand) RunIntoWriter(ctx context.Context, parsedLayers *values.Values, w io.Writer) error {
	s := &DetectLanguageSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init default settings")
	}

	detector := speech.TrigramDetector{RequireReliable: s.RequireReliable}
	code, ok := detector.DetectLanguage(s.Text)
	if !ok {
		code = "unknown"
	}
	locale := speech.LocaleOf(detector, s.Text)

	_, err := fmt.Fprintf(w, "language: %s\nlocale: %s\nespeak-voice: %s\n", code, locale, speech.EspeakVoice(locale))
	return err
}
