package influx

import (
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/trackworks/railcore/internal/geo"
	"github.com/trackworks/railcore/pkg/core"
)

// Measurement names written by the simulator.
const (
	MeasurementTrainState = "train_state"
	MeasurementTick       = "sim_tick"
)

// TrainStatePoint turns the state of a train into a point tagged with the
// session and train. With a frame the point carries lon and lat as well.
func TrainStatePoint(session string, s core.TrainState, frame *geo.Frame) *influxdb2_write.Point {
	p := influxdb2.NewPoint(MeasurementTrainState,
		map[string]string{
			"session": session,
			"train":   strconv.FormatUint(uint64(s.TrainID), 10),
		},
		map[string]any{
			"tick":      int64(s.Tick),
			"tile":      int64(s.Tile),
			"x":         int64(s.Position.X),
			"y":         int64(s.Position.Y),
			"z":         int64(s.Position.Z),
			"direction": s.Direction,
			"speed":     int64(s.Speed),
			"max_speed": int64(s.MaxSpeed),
			"units":     int64(s.Units),
			"order":     s.Order,
			"stopped":   s.Stopped,
			"crashed":   s.Crashed,
			"in_depot":  s.InDepot,
		},
		s.Time)
	if frame != nil {
		// a position the frame cannot place goes out without lon and lat
		if lon, lat, err := frame.LonLat(s.Position); err == nil {
			p.AddField("lon", lon).AddField("lat", lat)
		}
	}
	return p
}

// TickPoint turns a tick sample into a point tagged with the session.
func TickPoint(session string, st core.TickStats) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementTick,
		map[string]string{"session": session},
		map[string]any{
			"tick":        int64(st.Tick),
			"duration_us": st.Duration.Microseconds(),
			"trains":      int64(st.Trains),
			"vehicles":    int64(st.Vehicles),
			"crashed":     int64(st.Crashed),
			"reversals":   int64(st.Reversals),
			"checksum":    strconv.FormatUint(st.Checksum, 16),
		},
		st.Time)
}
