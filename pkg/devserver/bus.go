package devserver

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/partygpt/pkg/session"
)

// InstructionTopic is where the backend publishes session instructions.
const InstructionTopic = "partygpt.instructions"

// instructionBus decouples deciding to end a session from delivering the
// instruction to connected sockets.
type instructionBus struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

func newInstructionBus(pub message.Publisher, sub message.Subscriber, logger zerolog.Logger) *instructionBus {
	return &instructionBus{pub: pub, sub: sub, logger: logger, ready: make(chan struct{})}
}

func (b *instructionBus) Publish(in session.Instruction) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encode instruction")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pub.Publish(InstructionTopic, msg); err != nil {
		return errors.Wrap(err, "publish instruction")
	}
	b.logger.Debug().Str("type", in.Type).Str("message_id", msg.UUID).Msg("instruction published")
	return nil
}

// Run delivers every instruction to fn until ctx is cancelled.
func (b *instructionBus) Run(ctx context.Context, fn func(session.Instruction)) error {
	msgs, err := b.sub.Subscribe(ctx, InstructionTopic)
	if err != nil {
		return errors.Wrap(err, "subscribe to instructions")
	}
	b.readyOnce.Do(func() { close(b.ready) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var in session.Instruction
			if err := json.Unmarshal(msg.Payload, &in); err != nil {
				b.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed instruction")
				msg.Ack()
				continue
			}
			fn(in)
			msg.Ack()
		}
	}
}
