// Package cache remembers which trains have been registered with storage,
// so that states are only recorded for known trains and a pool index
// reused by a new train registers it again.
package cache

import (
	"slices"
	"sync"

	"github.com/trackworks/railcore/pkg/core"
)

// TrainCache caches the trains registered in the running session.
type TrainCache struct {
	m      sync.Mutex
	Trains map[uint32]core.Train
}

func NewTrainCache() *TrainCache {
	return &TrainCache{
		Trains: make(map[uint32]core.Train),
	}
}

func (c *TrainCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Trains = make(map[uint32]core.Train)
}

func (c *TrainCache) Get(id uint32) (core.Train, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	t, ok := c.Trains[id]
	return t, ok
}

func (c *TrainCache) Add(t core.Train) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Trains[t.ID] = t
}

func (c *TrainCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Trains)
}

// Sweep forgets every train for which alive reports false and returns
// their IDs in ascending order.
func (c *TrainCache) Sweep(alive func(id uint32) bool) []uint32 {
	c.m.Lock()
	defer c.m.Unlock()
	var gone []uint32
	for id := range c.Trains {
		if !alive(id) {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		delete(c.Trains, id)
	}
	slices.Sort(gone)
	return gone
}
