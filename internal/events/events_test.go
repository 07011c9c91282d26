package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trackworks/railcore/pkg/core"
)

func TestBuffer_DrainKeepsOrder(t *testing.T) {
	b := NewBuffer(0)
	b.Emit(core.Event{Tick: 1, Kind: core.EventSound, Key: SoundTrainHorn})
	b.Emit(core.Event{Tick: 1, Kind: core.EventNews, Key: NewsFirstArrival})

	assert.Equal(t, 2, b.Len())
	got := b.Drain()
	assert.Equal(t, []string{SoundTrainHorn, NewsFirstArrival}, []string{got[0].Key, got[1].Key})
	assert.Zero(t, b.Len())
}

func TestBuffer_Limit(t *testing.T) {
	b := NewBuffer(2)
	for i := 0; i < 5; i++ {
		b.Emit(core.Event{Tick: uint64(i)})
	}
	got := b.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].Tick)
	assert.Equal(t, uint64(3), b.Dropped())
}

func TestRecorder_Keys(t *testing.T) {
	var r Recorder
	Discard{}.Emit(core.Event{Key: "ignored"})
	r.Emit(core.Event{Kind: core.EventSound, Key: SoundBigCrash})
	r.Emit(core.Event{Kind: core.EventNews, Key: NewsTrainCrash})
	r.Emit(core.Event{Kind: core.EventSound, Key: SoundBreakdown})

	assert.Equal(t, []string{SoundBigCrash, SoundBreakdown}, r.Keys(core.EventSound))
	r.Reset()
	assert.Empty(t, r.Events)
}
