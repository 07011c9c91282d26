// pkg/core/train.go
package core

import "time"

// Position is a world position in sixteenths of a tile.
type Position struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z uint8 `json:"z"`
}

// Train is a consist as registered with storage. ID is the pool index of
// its front engine.
type Train struct {
	ID         uint32    `json:"id"`
	UnitNumber uint16    `json:"unitNumber"`
	Owner      uint8     `json:"owner"`
	Engine     string    `json:"engine"`
	Units      int       `json:"units"`
	JoinTick   uint64    `json:"joinTick"`
	JoinTime   time.Time `json:"joinTime"`
}

// TrainState is the state of a train's head at one tick.
type TrainState struct {
	TrainID   uint32    `json:"trainId"`
	Tick      uint64    `json:"tick"`
	Time      time.Time `json:"time"`
	Tile      uint32    `json:"tile"`
	Position  Position  `json:"position"`
	Direction string    `json:"direction"`
	Track     uint8     `json:"track"`
	Speed     uint16    `json:"speed"`
	MaxSpeed  uint16    `json:"maxSpeed"`
	Units     int       `json:"units"`
	Order     string    `json:"order"`
	Stopped   bool      `json:"stopped"`
	Crashed   bool      `json:"crashed"`
	InDepot   bool      `json:"inDepot"`
}
