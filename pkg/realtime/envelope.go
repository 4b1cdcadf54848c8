package realtime

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/go-go-golems/partygpt/pkg/session"
)

const (
	// EventConnection is sent by the client once the socket is open.
	EventConnection = "connection"
	// EventInstruction carries a session.Instruction from the server.
	EventInstruction = "instruction"
)

// Envelope is a single socket frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ConnectionData struct {
	State string `json:"state"`
}

func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "encode %s payload", event)
	}
	return Envelope{Event: event, Data: raw}, nil
}

// EncodeInstruction builds the frame the server broadcasts for an instruction.
func EncodeInstruction(in session.Instruction) ([]byte, error) {
	env, err := NewEnvelope(EventInstruction, in)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decode socket frame")
	}
	if env.Event == "" {
		return Envelope{}, errors.New("socket frame without event name")
	}
	return env, nil
}

func (e Envelope) Instruction() (session.Instruction, error) {
	if e.Event != EventInstruction {
		return session.Instruction{}, errors.Errorf("event %q is not an instruction", e.Event)
	}
	var in session.Instruction
	if err := json.Unmarshal(e.Data, &in); err != nil {
		return session.Instruction{}, errors.Wrap(err, "decode instruction")
	}
	return in, nil
}
