package defect

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/config"
	"github.com/trackworks/railcore/internal/train"
)

var _ train.Reporter = (*Reporter)(nil)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captured) all() []*sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*sentry.Event(nil), c.events...)
}

func TestNew_NoDSNLogsOnly(t *testing.T) {
	logger, buf := bufferLogger()
	r, err := New(config.SentryConfig{}, logger)
	require.NoError(t, err)
	assert.Nil(t, r.hub)

	r.Report(context.Background(), errors.New("train disconnected"), map[string]string{"train": "7", "tick": "300"})

	out := buf.String()
	assert.Contains(t, out, "Simulation defect")
	assert.Contains(t, out, "train disconnected")
	assert.Contains(t, out, "tick=300 train=7")
	assert.Equal(t, uint64(1), r.Count())
	assert.True(t, r.Flush())
}

func TestNew_BadDSN(t *testing.T) {
	_, err := New(config.SentryConfig{DSN: "::not a dsn"}, nil)
	assert.ErrorContains(t, err, "sentry client")
}

func TestReport_ForwardsToSentryWithTags(t *testing.T) {
	c := &captured{}
	client, err := sentry.NewClient(sentry.ClientOptions{BeforeSend: c.beforeSend})
	require.NoError(t, err)

	logger, _ := bufferLogger()
	r := NewWithClient(client, logger)
	r.Report(context.Background(), errors.New("units out of contact"), map[string]string{"train": "3"})

	events := c.all()
	require.Len(t, events, 1)
	assert.Equal(t, "3", events[0].Tags["train"])
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "units out of contact", events[0].Exception[len(events[0].Exception)-1].Value)
}

func TestRecover_ReportsAndRepanics(t *testing.T) {
	logger, buf := bufferLogger()
	r := NewWithClient(nil, logger)

	assert.PanicsWithValue(t, "boom", func() {
		defer r.Recover(map[string]string{"phase": "tick"})
		panic("boom")
	})
	assert.Contains(t, buf.String(), "panic: boom")
	assert.Equal(t, uint64(1), r.Count())
}

func TestRecover_NoPanic(t *testing.T) {
	r := NewWithClient(nil, nil)
	func() {
		defer r.Recover(nil)
	}()
	assert.Zero(t, r.Count())
}
