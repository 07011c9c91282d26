package consist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trackworks/railcore/internal/rail"
)

// EngineID indexes an EngineTable.
type EngineID uint16

// InvalidEngine marks "no engine", e.g. the FirstEngine of a head.
const InvalidEngine EngineID = 0xFFFF

// EngineClass is the locomotion type, used for smoke and sounds.
type EngineClass uint8

const (
	ClassSteam EngineClass = iota
	ClassDiesel
	ClassElectric
)

var classNames = []string{"steam", "diesel", "electric"}

func (c EngineClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

func (c EngineClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *EngineClass) UnmarshalText(b []byte) error {
	for i, n := range classNames {
		if strings.EqualFold(n, string(b)) {
			*c = EngineClass(i)
			return nil
		}
	}
	return fmt.Errorf("unknown engine class %q", b)
}

// EngineFlags are static properties of an engine type.
type EngineFlags uint8

const (
	EngineMultihead EngineFlags = 1 << iota
	EngineWagon
	EngineNoSmoke
)

// EngineInfo is the immutable description of one vehicle type.
type EngineInfo struct {
	Name          string        `json:"name"`
	Power         uint16        `json:"power"`
	Weight        uint16        `json:"weight"`
	MaxSpeed      uint16        `json:"maxSpeed"`
	PowWagPower   uint16        `json:"powWagPower"`
	PowWagWeight  uint16        `json:"powWagWeight"`
	ShortenFactor uint8         `json:"shortenFactor"`
	VisualEffect  uint8         `json:"visualEffect"`
	Capacity      uint16        `json:"capacity"`
	CargoType     CargoType     `json:"cargoType"`
	RailType      rail.RailType `json:"railType"`
	Class         EngineClass   `json:"class"`
	Flags         EngineFlags   `json:"flags"`
	WagonOverride bool          `json:"wagonOverride"`
	Refittable    bool          `json:"refittable"`
	Reliability   uint16        `json:"reliability"`
	MaxAgeDays    int32         `json:"maxAgeDays"`

	// RunningCost is charged per year while the unit's train runs.
	RunningCost int32 `json:"runningCost"`

	// PowerCallback and LengthCallback replace VisualEffect and
	// ShortenFactor when set and reporting success.
	PowerCallback  func(*Vehicle) (uint16, bool) `json:"-"`
	LengthCallback func(*Vehicle) (uint16, bool) `json:"-"`
}

func (e *EngineInfo) IsWagon() bool     { return e.Flags&EngineWagon != 0 }
func (e *EngineInfo) IsMultihead() bool { return e.Flags&EngineMultihead != 0 }

// EngineTable holds every engine type of a scenario.
type EngineTable struct {
	engines []EngineInfo
	unknown EngineInfo
}

// NewEngineTable copies infos into a table; EngineID i names infos[i].
func NewEngineTable(infos []EngineInfo) *EngineTable {
	return &EngineTable{engines: append([]EngineInfo(nil), infos...)}
}

// ParseEngineTable decodes a JSON array of engine descriptions.
func ParseEngineTable(data []byte) (*EngineTable, error) {
	var infos []EngineInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("decode engines: %w", err)
	}
	return NewEngineTable(infos), nil
}

func (t *EngineTable) Len() int { return len(t.engines) }

// Get returns the info for id.
func (t *EngineTable) Get(id EngineID) (*EngineInfo, bool) {
	if int(id) >= len(t.engines) {
		return nil, false
	}
	return &t.engines[id], true
}

// Info returns the info for id, or an all-zero description for unknown ids.
func (t *EngineTable) Info(id EngineID) *EngineInfo {
	if e, ok := t.Get(id); ok {
		return e
	}
	return &t.unknown
}
