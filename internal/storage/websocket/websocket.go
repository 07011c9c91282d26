// Package websocket streams session data to a recording server as JSON
// envelopes over a single WebSocket connection.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/trackworks/railcore/pkg/core"
	"github.com/trackworks/railcore/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams session data over WebSocket to the recording server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	link   *link
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	l, err := newLink(b.cfg.URL, b.cfg.Secret, b.logger)
	if err != nil {
		return err
	}
	if err := l.open(); err != nil {
		return err
	}
	b.link = l
	return nil
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	if b.link == nil {
		return nil
	}
	if n := b.link.dropped.Load(); n > 0 {
		b.logger.Warn("WebSocket messages dropped", "count", n)
	}
	return b.link.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// send queues an envelope without waiting for the server.
func (b *Backend) send(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.link.push(data)
	return nil
}

// StartSession sends the session and layout and waits for the server ack.
// The message is replayed if the connection has to be re-established.
func (b *Backend) StartSession(session *core.Session, layout *core.Layout) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: session, Layout: layout})
	if err != nil {
		return err
	}
	b.link.setHello(data)
	return b.link.request(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	defer b.link.setHello(nil)
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	return b.link.request(data, streaming.TypeEndSession, ackTimeout)
}

func (b *Backend) AddTrain(t *core.Train) error {
	return b.send(streaming.TypeAddTrain, t)
}

func (b *Backend) RecordTrainState(s *core.TrainState) error {
	return b.send(streaming.TypeTrainState, s)
}

func (b *Backend) RecordTickStats(s *core.TickStats) error {
	return b.send(streaming.TypeTickStats, s)
}

func (b *Backend) RecordEvent(e *core.Event) error {
	return b.send(streaming.TypeSimEvent, e)
}

func (b *Backend) RecordCrash(c *core.CrashEvent) error {
	return b.send(streaming.TypeCrashEvent, c)
}
