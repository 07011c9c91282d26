package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/storage"
	"github.com/trackworks/railcore/pkg/core"
	"github.com/trackworks/railcore/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_session/end_session.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			// Ack start_session and end_session.
			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"})
	require.NoError(t, b.Init())
	defer b.Close()

	session := &core.Session{ID: "s-1", Name: "loop run", Tag: "ci"}
	layout := &core.Layout{Width: 64, Height: 32}
	require.NoError(t, b.StartSession(session, layout))
	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[len(msgs)-1].Type)

	var payload streaming.StartSessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, "loop run", payload.Session.Name)
	assert.Equal(t, uint32(64), payload.Layout.Width)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()

	b.link.mu.Lock()
	assert.Nil(t, b.link.hello)
	b.link.mu.Unlock()
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{ID: "s-2"}, nil))

	require.NoError(t, b.AddTrain(&core.Train{ID: 1, Engine: "kirby"}))
	require.NoError(t, b.RecordTrainState(&core.TrainState{TrainID: 1, Tick: 74}))
	require.NoError(t, b.RecordEvent(&core.Event{Tick: 74, Kind: core.EventSound, Key: "train_horn"}))
	require.NoError(t, b.RecordCrash(&core.CrashEvent{Tick: 75, TrainID: 1, OtherID: 2}))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 75}))

	require.NoError(t, b.EndSession())

	// Give a moment for all messages to arrive at server.
	time.Sleep(50 * time.Millisecond)

	types := make(map[string]int)
	for _, m := range ml.all() {
		types[m.Type]++
	}

	assert.Equal(t, 1, types[streaming.TypeStartSession])
	assert.Equal(t, 1, types[streaming.TypeEndSession])
	assert.Equal(t, 1, types[streaming.TypeAddTrain])
	assert.Equal(t, 1, types[streaming.TypeTrainState])
	assert.Equal(t, 1, types[streaming.TypeSimEvent])
	assert.Equal(t, 1, types[streaming.TypeCrashEvent])
	assert.Equal(t, 1, types[streaming.TypeTickStats])
}

func TestStartSession_AckTimeoutWhenServerSilent(t *testing.T) {
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())

	data, err := marshalEnvelope(streaming.TypeStartSession, nil)
	require.NoError(t, err)
	err = b.link.request(data, streaming.TypeStartSession, 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout waiting for ack")

	require.NoError(t, b.Close())
	// closing twice is fine
	require.NoError(t, b.Close())
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/none"})
	assert.ErrorContains(t, b.Init(), "dial failed")
	assert.NoError(t, b.Close())

	b = New(Config{URL: "ws://bad host/%zz"})
	assert.ErrorContains(t, b.Init(), "invalid websocket URL")
}

func TestReconnectReplaysSessionStart(t *testing.T) {
	var (
		mu    sync.Mutex
		conns []*ws.Conn
		seen  []string
	)
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, c)
		mu.Unlock()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if json.Unmarshal(msg, &env) != nil {
				continue
			}
			mu.Lock()
			seen = append(seen, env.Type)
			mu.Unlock()
			if env.Type == streaming.TypeStartSession {
				ack, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				_ = c.WriteMessage(ws.TextMessage, ack)
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	defer b.Close()
	require.NoError(t, b.StartSession(&core.Session{ID: "s-3"}, nil))

	// the server drops the first connection
	mu.Lock()
	_ = conns[0].Close()
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(conns) == 2
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 9}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{streaming.TypeStartSession, streaming.TypeStartSession, streaming.TypeTickStats}, seen)
	mu.Unlock()
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeTrainState, &core.TrainState{TrainID: 7, Tick: 42, Direction: "NE"})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeTrainState, decoded.Type)

	var state core.TrainState
	require.NoError(t, json.Unmarshal(decoded.Payload, &state))
	assert.Equal(t, uint32(7), state.TrainID)
	assert.Equal(t, "NE", state.Direction)
}

func TestMarshalEnvelope_BadPayload(t *testing.T) {
	_, err := marshalEnvelope(streaming.TypeSimEvent, map[string]any{"bad": make(chan int)})
	assert.ErrorContains(t, err, "marshal sim_event payload")
}
