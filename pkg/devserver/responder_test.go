package devserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

func TestIsFarewell(t *testing.T) {
	for _, text := range []string{"Bye!", "ok, goodbye then", "Tschüss", "see you later", "CIAO.", "Auf Wiedersehen!"} {
		require.True(t, IsFarewell(text), text)
	}
	for _, text := range []string{"", "hello", "byelaw reform", "maybe", "nice to see your dog"} {
		require.False(t, IsFarewell(text), text)
	}
}

func TestEchoResponder(t *testing.T) {
	r := EchoResponder{}
	first := []chat.Message{chat.NewMessage(chat.SenderUser, "hi")}

	reply, farewell := r.Respond(first, "hi")
	require.False(t, farewell)
	require.Equal(t, "Nice to meet you! You said: hi", reply)

	later := append(first, chat.NewMessage(chat.SenderAssistant, "..."), chat.NewMessage(chat.SenderUser, "cake?"))
	reply, _ = r.Respond(later, "cake?")
	require.Equal(t, "You said: cake?", reply)

	reply, farewell = r.Respond(later, "bye bye")
	require.True(t, farewell)
	require.Empty(t, reply)
}
