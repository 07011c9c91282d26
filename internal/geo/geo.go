// Package geo places the tile grid on a map. A grid anchored at a
// longitude and latitude gets web mercator (EPSG:3857) and WGS84
// coordinates for every position on it, with x running east and y south.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/trackworks/railcore/pkg/core"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

const (
	// SubTiles is the number of position units along a tile edge.
	SubTiles = 16
	// DefaultTileMeters is the tile edge used when none is configured.
	DefaultTileMeters = 50.0
	// heightUnit is the number of z units per height level.
	heightUnit = 8
	// maxLatitude is where web mercator stops.
	maxLatitude = 85.05112878
)

// ParseLonLat parses a string in the format "long,lat" or "long,lat,elev".
// The elevation is returned as well, zero when missing.
func ParseLonLat(coords string) (lon, lat, elev float64, err error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	vals := make([]float64, len(parts))
	for i, s := range parts {
		if vals[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0, 0, 0, ErrInvalidCoordinates
		}
	}
	lon, lat = vals[0], vals[1]
	if len(vals) == 3 {
		elev = vals[2]
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, ErrInvalidCoordinates
		}
	}
	if math.Abs(lon) > 180 || math.Abs(lat) > maxLatitude {
		return 0, 0, 0, fmt.Errorf("%g,%g out of range: %w", lon, lat, ErrInvalidCoordinates)
	}
	return lon, lat, elev, nil
}

// Frame maps grid positions onto the map. The north corner of tile 0 sits
// at the anchor.
type Frame struct {
	origin     geom.XY
	elevation  float64
	tileMeters float64
	// 3857 units per ground metre at the anchor latitude
	scale float64

	toMercator   transform
	fromMercator transform
}

type transform = func(a, b, c float64) (float64, float64, float64)

// NewFrame anchors a grid at anchor ("long,lat" or "long,lat,elev"). A
// non-positive tileMeters uses DefaultTileMeters.
func NewFrame(anchor string, tileMeters float64) (*Frame, error) {
	lon, lat, elev, err := ParseLonLat(anchor)
	if err != nil {
		return nil, err
	}
	if tileMeters <= 0 {
		tileMeters = DefaultTileMeters
	}
	epsg := wgs84.EPSG()
	f := &Frame{
		elevation:    elev,
		tileMeters:   tileMeters,
		scale:        1 / math.Cos(lat*math.Pi/180),
		toMercator:   epsg.Transform(4326, 3857),
		fromMercator: epsg.Transform(3857, 4326),
	}
	x, y, _ := f.toMercator(lon, lat, 0)
	f.origin = geom.XY{X: x, Y: y}
	return f, nil
}

// TileMeters returns the edge length of a tile.
func (f *Frame) TileMeters() float64 { return f.tileMeters }

// Mercator returns the EPSG:3857 point of p with its elevation in metres.
func (f *Frame) Mercator(p core.Position) (geom.Point, error) {
	unit := f.tileMeters / SubTiles
	pt, err := geom.NewPoint(geom.Coordinates{
		XY: geom.XY{
			X: f.origin.X + float64(p.X)*unit*f.scale,
			Y: f.origin.Y - float64(p.Y)*unit*f.scale,
		},
		Z:    f.elevation + float64(p.Z)/heightUnit*unit,
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("%d,%d,%d: %w", p.X, p.Y, p.Z, err)
	}
	return pt, nil
}

// LonLat returns the WGS84 longitude and latitude of p.
func (f *Frame) LonLat(p core.Position) (lon, lat float64, err error) {
	pt, err := f.Mercator(p)
	if err != nil {
		return 0, 0, err
	}
	c, _ := pt.Coordinates()
	lon, lat, _ = f.fromMercator(c.X, c.Y, 0)
	return lon, lat, nil
}
