package streaming

import (
	"encoding/json"

	"github.com/trackworks/railcore/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeAddTrain     = "add_train"
	TypeTrainState   = "train_state"
	TypeSimEvent     = "sim_event"
	TypeCrashEvent   = "crash_event"
	TypeTickStats    = "tick_stats"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries session and layout data.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
	Layout  *core.Layout  `json:"layout"`
}
