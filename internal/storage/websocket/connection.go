package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/trackworks/railcore/pkg/streaming"
)

const (
	outboxSize = 10_000
	ackBuffer  = 16
	maxRedials = 10
	maxBackoff = 30 * time.Second
	writeWait  = 10 * time.Second
	ackTimeout = 10 * time.Second
)

var errLinkClosed = errors.New("websocket link closed")

// link is one logical connection to the recording server. A single
// goroutine owns the socket for writing and redials it when it breaks;
// messages queue in the outbox meanwhile.
type link struct {
	target string
	logger *slog.Logger

	outbox chan []byte
	acks   chan streaming.AckMessage
	quit   chan struct{}
	done   sync.WaitGroup
	once   sync.Once

	mu    sync.Mutex
	conn  *ws.Conn
	hello []byte // written first on every redial

	dropped atomic.Uint64
}

// newLink prepares a link to rawURL, passing secret as a query parameter.
func newLink(rawURL, secret string, logger *slog.Logger) (*link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()

	return &link{
		target: u.String(),
		logger: logger,
		outbox: make(chan []byte, outboxSize),
		acks:   make(chan streaming.AckMessage, ackBuffer),
		quit:   make(chan struct{}),
	}, nil
}

// open dials once and starts the writer.
func (l *link) open() error {
	conn, _, err := ws.DefaultDialer.Dial(l.target, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	l.done.Add(1)
	go l.run(conn)
	return nil
}

func (l *link) run(conn *ws.Conn) {
	defer l.done.Done()
	broken := l.listen(conn)
	for {
		var retry []byte
		select {
		case <-l.quit:
			return
		case <-broken:
			l.logger.Warn("WebSocket connection lost")
		case msg := <-l.outbox:
			err := write(conn, msg)
			if err == nil {
				continue
			}
			l.logger.Warn("WebSocket write failed", "error", err)
			retry = msg
		}

		if conn = l.redial(conn); conn == nil {
			return
		}
		broken = l.listen(conn)
		if retry != nil {
			if err := write(conn, retry); err != nil {
				l.logger.Warn("WebSocket write failed after reconnect", "error", err)
			}
		}
	}
}

// listen reads acks from conn until it fails, then closes the returned
// channel.
func (l *link) listen(conn *ws.Conn) <-chan struct{} {
	broken := make(chan struct{})
	go func() {
		defer close(broken)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ack streaming.AckMessage
			if json.Unmarshal(raw, &ack) != nil || ack.Type != "ack" {
				l.logger.Debug("Ignoring server message", "raw", string(raw))
				continue
			}
			select {
			case l.acks <- ack:
			default:
				l.logger.Debug("Ack buffer full, dropping", "for", ack.For)
			}
		}
	}()
	return broken
}

// redial replaces a broken conn, backing off between attempts, and writes
// the hello message first. It returns nil on shutdown or when it gives up.
func (l *link) redial(old *ws.Conn) *ws.Conn {
	l.mu.Lock()
	if l.conn == old {
		l.conn = nil
	}
	l.mu.Unlock()
	_ = old.Close()
	backoff := time.Second
	for attempt := 1; attempt <= maxRedials; attempt++ {
		l.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-l.quit:
			return nil
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, maxBackoff)

		conn, _, err := ws.DefaultDialer.Dial(l.target, nil)
		if err != nil {
			l.logger.Warn("Reconnect failed", "attempt", attempt, "error", err)
			continue
		}
		l.mu.Lock()
		hello := l.hello
		l.conn = conn
		l.mu.Unlock()
		if hello != nil {
			if err := write(conn, hello); err != nil {
				l.logger.Warn("Replaying session start failed", "error", err)
				_ = conn.Close()
				continue
			}
		}
		l.logger.Info("WebSocket reconnected", "attempt", attempt)
		return conn
	}
	l.logger.Error("Giving up on WebSocket", "attempts", maxRedials)
	return nil
}

func write(conn *ws.Conn, msg []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, msg)
}

// push queues msg without blocking; it is dropped when the outbox is full.
func (l *link) push(msg []byte) {
	select {
	case l.outbox <- msg:
	default:
		if l.dropped.Add(1) == 1 {
			l.logger.Warn("WebSocket outbox full, dropping messages")
		}
	}
}

// setHello sets the message replayed after a reconnect; nil clears it.
func (l *link) setHello(msg []byte) {
	l.mu.Lock()
	l.hello = msg
	l.mu.Unlock()
}

// request queues msg and waits for the server to ack its type.
func (l *link) request(msg []byte, msgType string, timeout time.Duration) error {
	l.push(msg)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.For == msgType {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", msgType)
		case <-l.quit:
			return fmt.Errorf("waiting for ack of %q: %w", msgType, errLinkClosed)
		}
	}
}

// close stops the writer and says goodbye to the server. Safe to call
// more than once.
func (l *link) close() error {
	var err error
	l.once.Do(func() {
		close(l.quit)
		l.done.Wait()

		l.mu.Lock()
		conn := l.conn
		l.conn = nil
		l.mu.Unlock()
		if conn == nil {
			return
		}
		_ = conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = conn.Close()
	})
	return err
}
