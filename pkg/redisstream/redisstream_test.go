package redisstream

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildPubSubInProcess(t *testing.T) {
	ps, err := BuildPubSub(Settings{Enabled: false})
	require.NoError(t, err)
	defer func() { _ = ps.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msgs, err := ps.Subscriber.Subscribe(ctx, "instructions")
	require.NoError(t, err)

	require.NoError(t, ps.Publisher.Publish("instructions", message.NewMessage(watermill.NewUUID(), []byte(`{"type":"x"}`))))

	select {
	case m := <-msgs:
		require.JSONEq(t, `{"type":"x"}`, string(m.Payload))
		m.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestWatermillLoggerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := NewWatermillLogger(zerolog.New(&buf)).With(watermill.LogFields{"topic": "instructions"})

	l.Info("subscribed", watermill.LogFields{"consumer": "c1"})
	l.Error("publish failed", errors.New("boom"), nil)

	out := buf.String()
	require.Contains(t, out, `"component":"watermill"`)
	require.Contains(t, out, `"topic":"instructions"`)
	require.Contains(t, out, `"consumer":"c1"`)
	require.Contains(t, out, `"error":"boom"`)
}
