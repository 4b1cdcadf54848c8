package speech

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DefaultLocale is used whenever the language of a text cannot be determined.
const DefaultLocale = "en-US"

// LanguageDetector identifies the language of a text as an ISO 639-3 code.
type LanguageDetector interface {
	DetectLanguage(text string) (iso6393 string, ok bool)
}

// TrigramDetector uses whatlanggo's trigram statistics.
type TrigramDetector struct {
	// RequireReliable rejects guesses whatlanggo itself considers unreliable.
	RequireReliable bool
}

func (d TrigramDetector) DetectLanguage(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	info := whatlanggo.Detect(text)
	if d.RequireReliable && !info.IsReliable() {
		return "", false
	}
	code := info.Lang.Iso6393()
	if code == "" {
		return "", false
	}
	return code, true
}

// iso6393To1 maps the languages whatlanggo can detect to two-letter speech locales.
var iso6393To1 = map[string]string{
	"afr": "af",
	"aka": "ak",
	"amh": "am",
	"arb": "ar",
	"azj": "az",
	"bel": "be",
	"ben": "bn",
	"bul": "bg",
	"cat": "ca",
	"ces": "cs",
	"cmn": "zh",
	"dan": "da",
	"deu": "de",
	"ell": "el",
	"eng": "en",
	"epo": "eo",
	"est": "et",
	"fin": "fi",
	"fra": "fr",
	"guj": "gu",
	"hau": "ha",
	"heb": "he",
	"hin": "hi",
	"hrv": "hr",
	"hun": "hu",
	"hye": "hy",
	"ibo": "ig",
	"ind": "id",
	"ita": "it",
	"jav": "jv",
	"jpn": "ja",
	"kan": "kn",
	"kat": "ka",
	"khm": "km",
	"kin": "rw",
	"kor": "ko",
	"lat": "la",
	"lav": "lv",
	"lit": "lt",
	"mal": "ml",
	"mar": "mr",
	"mkd": "mk",
	"mya": "my",
	"nep": "ne",
	"nld": "nl",
	"nob": "nb",
	"ori": "or",
	"pan": "pa",
	"pes": "fa",
	"pol": "pl",
	"por": "pt",
	"ron": "ro",
	"rus": "ru",
	"sin": "si",
	"slk": "sk",
	"slv": "sl",
	"sna": "sn",
	"som": "so",
	"spa": "es",
	"srp": "sr",
	"swe": "sv",
	"tam": "ta",
	"tel": "te",
	"tgl": "tl",
	"tha": "th",
	"tuk": "tk",
	"tur": "tr",
	"ukr": "uk",
	"urd": "ur",
	"uzb": "uz",
	"vie": "vi",
	"yid": "yi",
	"yor": "yo",
	"zul": "zu",
}

// LocaleFor maps an ISO 639-3 code to a speech locale.
func LocaleFor(iso6393 string) (string, bool) {
	l, ok := iso6393To1[strings.ToLower(iso6393)]
	return l, ok
}

// LocaleOf picks the speech locale for text, falling back to DefaultLocale.
func LocaleOf(d LanguageDetector, text string) string {
	if d == nil {
		return DefaultLocale
	}
	code, ok := d.DetectLanguage(text)
	if !ok {
		return DefaultLocale
	}
	if l, ok := LocaleFor(code); ok {
		return l
	}
	return DefaultLocale
}

// EspeakVoice turns a locale like "en-US" into an espeak voice name.
func EspeakVoice(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}

// RecognitionLanguages are offered in the language picker.
var RecognitionLanguages = []string{
	"en-US", "en-GB", "de-DE", "fr-FR", "es-ES", "it-IT", "pt-PT", "nl-NL",
	"pl-PL", "ru-RU", "uk-UA", "tr-TR", "ja-JP", "zh-CN", "ko-KR",
}
