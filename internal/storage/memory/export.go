package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/trackworks/railcore/pkg/core"
)

// FormatVersion is the version of the exported document.
const FormatVersion = 1

// SessionExport is the root JSON structure
type SessionExport struct {
	FormatVersion int               `json:"formatVersion"`
	Session       core.Session      `json:"session"`
	Layout        core.Layout       `json:"layout"`
	EndTick       uint64            `json:"endTick"`
	Trains        []TrainJSON       `json:"trains"`
	Events        [][]any           `json:"events"`
	Crashes       []core.CrashEvent `json:"crashes"`
	Checksums     [][]any           `json:"checksums"`
	Summary       Summary           `json:"summary"`
}

// TrainJSON represents a train and its sampled states
type TrainJSON struct {
	ID         uint32  `json:"id"`
	UnitNumber uint16  `json:"unitNumber"`
	Owner      uint8   `json:"owner"`
	Engine     string  `json:"engine"`
	Units      int     `json:"units"`
	StartTick  uint64  `json:"startTick"`
	States     [][]any `json:"states"`
}

// Summary holds counts over the whole session.
type Summary struct {
	Trains       int            `json:"trains"`
	Crashes      int            `json:"crashes"`
	Casualties   int            `json:"casualties"`
	EventsByKind map[string]int `json:"eventsByKind"`
	MaxSpeed     uint16         `json:"maxSpeed"`
}

// stateFlags packs the boolean state of a train into one number:
// bit 0 stopped, bit 1 crashed, bit 2 in depot.
func stateFlags(s core.TrainState) int {
	flags := 0
	if s.Stopped {
		flags |= 1
	}
	if s.Crashed {
		flags |= 2
	}
	if s.InDepot {
		flags |= 4
	}
	return flags
}

// exportJSON writes the session data to a JSON file, gzipped when configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	name := b.session.Name
	if name == "" {
		name = b.session.Scenario
	}
	name = strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(name)
	timestamp := b.session.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		FormatVersion: FormatVersion,
		Session:       *b.session,
		EndTick:       b.endTick,
		Trains:        make([]TrainJSON, 0, len(b.trains)),
		Events:        make([][]any, 0, len(b.events)),
		Crashes:       make([]core.CrashEvent, 0, len(b.crashes)),
		Checksums:     make([][]any, 0, len(b.ticks)),
	}
	if b.layout != nil {
		export.Layout = *b.layout
	}

	// Format: [tick, x, y, z, direction, speed, maxSpeed, units, order, flags]
	for _, record := range b.trains {
		train := TrainJSON{
			ID:         record.Train.ID,
			UnitNumber: record.Train.UnitNumber,
			Owner:      record.Train.Owner,
			Engine:     record.Train.Engine,
			Units:      record.Train.Units,
			StartTick:  record.Train.JoinTick,
			States:     make([][]any, 0, len(record.States)),
		}
		for _, s := range record.States {
			train.States = append(train.States, []any{
				s.Tick,
				s.Position.X,
				s.Position.Y,
				s.Position.Z,
				s.Direction,
				s.Speed,
				s.MaxSpeed,
				s.Units,
				s.Order,
				stateFlags(s),
			})
		}
		export.Trains = append(export.Trains, train)
	}

	// Format: [tick, kind, key, vehicleId, tile, params]
	for _, e := range b.events {
		export.Events = append(export.Events, []any{
			e.Tick,
			e.Kind,
			e.Key,
			e.VehicleID,
			e.Tile,
			e.Params,
		})
	}

	export.Crashes = append(export.Crashes, b.crashes...)

	// Format: [tick, checksum as hex]
	for _, s := range b.ticks {
		export.Checksums = append(export.Checksums, []any{s.Tick, fmt.Sprintf("%016x", s.Checksum)})
	}

	export.Summary = Summary{
		Trains:     len(b.trains),
		Crashes:    len(b.crashes),
		Casualties: lo.SumBy(b.crashes, func(c core.CrashEvent) int { return c.Casualties }),
		EventsByKind: lo.CountValuesBy(b.events, func(e core.Event) string {
			return string(e.Kind)
		}),
		MaxSpeed: lo.Max(lo.FlatMap(b.trains, func(r *TrainRecord, _ int) []uint16 {
			return lo.Map(r.States, func(s core.TrainState, _ int) uint16 { return s.Speed })
		})),
	}

	return export
}

func (b *Backend) writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// GetExportedFilePath returns the path of the last export, empty before
// the first session ended.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.session == nil {
		return core.UploadMetadata{}
	}
	return b.session.Metadata(b.endTick)
}
