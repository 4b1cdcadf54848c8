package devserver

import (
	"strings"
	"unicode"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

// Responder produces the assistant side of the conversation.
type Responder interface {
	// Respond returns the reply to input, or farewell=true when the guest is
	// leaving and the session should end.
	Respond(history []chat.Message, input string) (reply string, farewell bool)
}

var farewellPhrases = []string{
	"bye", "bye bye", "goodbye", "good bye", "ciao", "farewell", "see you",
	"see ya", "adieu", "au revoir", "tschüss", "tschau", "auf wiedersehen",
	"adios", "adiós", "hasta luego", "arrivederci",
}

// IsFarewell reports whether text contains one of the known farewell phrases
// as whole words.
func IsFarewell(text string) bool {
	normalized := " " + normalize(text) + " "
	for _, p := range farewellPhrases {
		if strings.Contains(normalized, " "+p+" ") {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// EchoResponder repeats what the guest said. It exists to exercise the client
// without a language model.
type EchoResponder struct{}

func (EchoResponder) Respond(history []chat.Message, input string) (string, bool) {
	if IsFarewell(input) {
		return "", true
	}
	turns := 0
	for _, m := range history {
		if m.Sender == chat.SenderUser {
			turns++
		}
	}
	if turns <= 1 {
		return "Nice to meet you! You said: " + input, false
	}
	return "You said: " + input, false
}
