// Package scenario loads JSON scenario files: the rail layout, the engine
// table, the trains standing in their depots at tick zero and the commands
// to dispatch at later ticks.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/geo"
)

var ErrInvalid = errors.New("invalid scenario")

// Point is a tile coordinate.
type Point struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

// Rail lays the same track pieces on every tile of the rectangle spanned
// by From and To. To defaults to From.
type Rail struct {
	From     Point    `json:"from"`
	To       *Point   `json:"to,omitempty"`
	Tracks   []string `json:"tracks"`
	RailType string   `json:"railType,omitempty"`
	Owner    *uint8   `json:"owner,omitempty"`
}

type Depot struct {
	At       Point  `json:"at"`
	Exit     string `json:"exit"`
	RailType string `json:"railType,omitempty"`
	Owner    *uint8 `json:"owner,omitempty"`
}

// Signal places one signal per named trackdir; two-way signals list both
// directions.
type Signal struct {
	At        Point    `json:"at"`
	Trackdirs []string `json:"trackdirs"`
}

// Station is a platform of Length tiles starting at At and running along
// Axis towards the south.
type Station struct {
	ID       uint16 `json:"id"`
	Name     string `json:"name"`
	At       Point  `json:"at"`
	Axis     string `json:"axis"`
	Length   uint32 `json:"length,omitempty"`
	RailType string `json:"railType,omitempty"`
	Owner    *uint8 `json:"owner,omitempty"`
}

// Tunnel joins two portals. Into is the edge the first portal leads into
// the hill over.
type Tunnel struct {
	A        Point  `json:"a"`
	B        Point  `json:"b"`
	Into     string `json:"into"`
	RailType string `json:"railType,omitempty"`
	Owner    *uint8 `json:"owner,omitempty"`
}

type Crossing struct {
	At       Point  `json:"at"`
	Axis     string `json:"axis"`
	RailType string `json:"railType,omitempty"`
	Owner    *uint8 `json:"owner,omitempty"`
}

type Slope struct {
	At     Point  `json:"at"`
	Height uint8  `json:"height"`
	Rise   string `json:"rise,omitempty"`
}

// Order is one schedule entry. Type is station, depot or waypoint.
type Order struct {
	Type     string `json:"type"`
	Station  uint16 `json:"station,omitempty"`
	Depot    uint16 `json:"depot,omitempty"`
	At       *Point `json:"at,omitempty"`
	NonStop  bool   `json:"nonStop,omitempty"`
	FullLoad bool   `json:"fullLoad,omitempty"`
	Unload   bool   `json:"unload,omitempty"`
	Transfer bool   `json:"transfer,omitempty"`
	Service  bool   `json:"serviceIfNeeded,omitempty"`
	Halt     bool   `json:"halt,omitempty"`
}

// Train is built in the depot at Depot, front unit first.
type Train struct {
	Depot           Point    `json:"depot"`
	Units           []string `json:"units"`
	Owner           *uint8   `json:"owner,omitempty"`
	Start           bool     `json:"start,omitempty"`
	ServiceInterval uint16   `json:"serviceInterval,omitempty"`
	Orders          []Order  `json:"orders,omitempty"`
}

// GeoRef anchors the grid on the map; see geo.NewFrame.
type GeoRef struct {
	Anchor     string  `json:"anchor"`
	TileMeters float64 `json:"tileMeters,omitempty"`
}

// Command is dispatched once the simulation has run Tick ticks.
type Command struct {
	Tick    uint64   `json:"tick"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Scenario is the decoded scenario file.
type Scenario struct {
	Name   string `json:"name"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	// Owner is the default owner of rails, depots and trains.
	Owner uint8   `json:"owner"`
	Geo   *GeoRef `json:"geo,omitempty"`

	Slopes    []Slope    `json:"slopes,omitempty"`
	Rails     []Rail     `json:"rails"`
	Depots    []Depot    `json:"depots,omitempty"`
	Stations  []Station  `json:"stations,omitempty"`
	Tunnels   []Tunnel   `json:"tunnels,omitempty"`
	Crossings []Crossing `json:"crossings,omitempty"`
	Signals   []Signal   `json:"signals,omitempty"`

	Engines  []consist.EngineInfo `json:"engines"`
	Trains   []Train              `json:"trains,omitempty"`
	Commands []Command            `json:"commands,omitempty"`
}

// Load reads and validates the scenario at path. A scenario without a
// name is named after its file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks what can be checked without building the world: the
// grid size, engine references and command ticks.
func (sc *Scenario) Validate() error {
	if sc.Width == 0 || sc.Height == 0 {
		return fmt.Errorf("grid %dx%d: %w", sc.Width, sc.Height, ErrInvalid)
	}
	if _, err := sc.Frame(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(sc.Engines) == 0 {
		return fmt.Errorf("no engines: %w", ErrInvalid)
	}
	for i, tr := range sc.Trains {
		if len(tr.Units) == 0 {
			return fmt.Errorf("train %d has no units: %w", i, ErrInvalid)
		}
		for _, name := range tr.Units {
			if _, ok := sc.EngineID(name); !ok {
				return fmt.Errorf("train %d: unknown engine %q: %w", i, name, ErrInvalid)
			}
		}
	}
	for i, c := range sc.Commands {
		if c.Command == "" {
			return fmt.Errorf("command %d has no name: %w", i, ErrInvalid)
		}
		if i > 0 && c.Tick < sc.Commands[i-1].Tick {
			return fmt.Errorf("command %d at tick %d runs before its predecessor: %w", i, c.Tick, ErrInvalid)
		}
	}
	return nil
}

// Frame returns the map frame of the grid, nil when it is not anchored.
func (sc *Scenario) Frame() (*geo.Frame, error) {
	if sc.Geo == nil {
		return nil, nil
	}
	f, err := geo.NewFrame(sc.Geo.Anchor, sc.Geo.TileMeters)
	if err != nil {
		return nil, fmt.Errorf("geo anchor: %w", err)
	}
	return f, nil
}

// EngineID resolves an engine by name.
func (sc *Scenario) EngineID(name string) (consist.EngineID, bool) {
	for i := range sc.Engines {
		if strings.EqualFold(sc.Engines[i].Name, name) {
			return consist.EngineID(i), true
		}
	}
	return consist.InvalidEngine, false
}

// CommandsAt returns the commands due at tick, given that cmds before
// next have already run, and the index of the first command left.
func (sc *Scenario) CommandsAt(tick uint64, next int) ([]Command, int) {
	end := next
	for end < len(sc.Commands) && sc.Commands[end].Tick <= tick {
		end++
	}
	return sc.Commands[next:end], end
}

func (sc *Scenario) owner(o *uint8) uint8 {
	if o != nil {
		return *o
	}
	return sc.Owner
}
