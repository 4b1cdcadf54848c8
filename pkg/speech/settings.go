package speech

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "speech"

const (
	EngineAuto = "auto"
	EngineNone = "none"
)

// DefaultRatePercent is the utterance speed relative to the engine default.
const DefaultRatePercent = 130

// Settings selects the speech engines and the initial interaction mode.
type Settings struct {
	Engine              string `glazed:"speech-engine"`
	RatePercent         int    `glazed:"speech-rate"`
	RecognizerCommand   string `glazed:"recognizer-command"`
	RecognitionLanguage string `glazed:"recognition-language"`
	SpeakMode           bool   `glazed:"speak-mode"`
}

func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Speech output and recognition",
		schema.WithFields(
			fields.New("speech-engine", fields.TypeChoice,
				fields.WithChoices(EngineAuto, "espeak-ng", "espeak", "say", EngineNone),
				fields.WithDefault(EngineAuto),
				fields.WithHelp("Text-to-speech engine binary")),
			fields.New("speech-rate", fields.TypeInteger,
				fields.WithDefault(DefaultRatePercent),
				fields.WithHelp("Speaking rate in percent of the engine default")),
			fields.New("recognizer-command", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Speech recognizer helper; it gets the language as argument and prints JSON lines")),
			fields.New("recognition-language", fields.TypeString,
				fields.WithDefault(DefaultLocale),
				fields.WithHelp("Language used for speech recognition")),
			fields.New("speak-mode", fields.TypeBool,
				fields.WithDefault(false),
				fields.WithHelp("Start in speak mode: replies are read aloud and input comes from the microphone")),
		),
	)
}

// Rate returns the speaking rate as a factor of the engine default.
func (s Settings) Rate() float64 {
	if s.RatePercent <= 0 {
		return float64(DefaultRatePercent) / 100
	}
	return float64(s.RatePercent) / 100
}
