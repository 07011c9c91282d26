// Package parser turns the string arguments of dispatched commands into
// typed requests.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/world"
)

// whole parses a whole number in [lo, hi]. Scenario scripts and JSON front
// ends may write whole numbers as floats ("32.00"), which are accepted.
func whole(s, what string, lo, hi int64) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, fmt.Errorf("error converting %s: %q is not a whole number", what, s)
		}
		v = int64(f)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s %d out of range", what, v)
	}
	return v, nil
}

// unquote strips surrounding double quotes and collapses doubled ones, the
// way quoted arguments arrive from script front ends.
func unquote(s string) string {
	return strings.ReplaceAll(strings.Trim(s, `"`), `""`, `"`)
}

// Parser provides pure []string -> request conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// clean unquotes every argument in place and checks there are at least n.
func clean(data []string, n int) error {
	if len(data) < n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(data))
	}
	for i, v := range data {
		data[i] = unquote(v)
	}
	return nil
}

func parseOwner(s string) (world.Owner, error) {
	v, err := whole(s, "owner", 0, math.MaxUint8)
	return world.Owner(v), err
}

func parseVehicle(s string) (consist.VehicleID, error) {
	v, err := whole(s, "vehicle id", 0, math.MaxUint32)
	return consist.VehicleID(v), err
}

func parseRef(data []string) (VehicleRef, error) {
	var ref VehicleRef
	owner, err := parseOwner(data[0])
	if err != nil {
		return ref, err
	}
	id, err := parseVehicle(data[1])
	if err != nil {
		return ref, err
	}
	return VehicleRef{Owner: owner, Vehicle: id}, nil
}

// ParseBuildVehicle reads [owner, depot tile, engine].
func (p *Parser) ParseBuildVehicle(data []string) (BuildVehicle, error) {
	var req BuildVehicle
	if err := clean(data, 3); err != nil {
		return req, err
	}
	owner, err := parseOwner(data[0])
	if err != nil {
		return req, err
	}
	tile, err := whole(data[1], "tile", 0, math.MaxUint32)
	if err != nil {
		return req, err
	}
	engine, err := whole(data[2], "engine", 0, int64(consist.InvalidEngine)-1)
	if err != nil {
		return req, err
	}
	req = BuildVehicle{Owner: owner, Tile: world.TileIndex(tile), Engine: consist.EngineID(engine)}

	p.logger.Debug("Parsed build request", "owner", req.Owner, "tile", req.Tile, "engine", req.Engine)
	return req, nil
}

// ParseMoveVehicle reads [owner, src, dst, chain]. A negative dst starts
// a new line.
func (p *Parser) ParseMoveVehicle(data []string) (MoveVehicle, error) {
	var req MoveVehicle
	if err := clean(data, 3); err != nil {
		return req, err
	}
	ref, err := parseRef(data)
	if err != nil {
		return req, err
	}
	req.Owner, req.Src = ref.Owner, ref.Vehicle

	dst, err := whole(data[2], "destination", math.MinInt32, math.MaxUint32)
	if err != nil {
		return req, err
	}
	if dst >= 0 {
		req.Dst, req.HasDst = consist.VehicleID(dst), true
	}
	if len(data) > 3 {
		if req.Chain, err = strconv.ParseBool(data[3]); err != nil {
			return req, fmt.Errorf("error converting chain flag: %w", err)
		}
	}
	return req, nil
}

// ParseSellVehicle reads [owner, vehicle, chain].
func (p *Parser) ParseSellVehicle(data []string) (SellVehicle, error) {
	var req SellVehicle
	if err := clean(data, 2); err != nil {
		return req, err
	}
	ref, err := parseRef(data)
	if err != nil {
		return req, err
	}
	req.Owner, req.Vehicle = ref.Owner, ref.Vehicle
	if len(data) > 2 {
		if req.Chain, err = strconv.ParseBool(data[2]); err != nil {
			return req, fmt.Errorf("error converting chain flag: %w", err)
		}
	}
	return req, nil
}

// ParseVehicleRef reads [owner, vehicle].
func (p *Parser) ParseVehicleRef(data []string) (VehicleRef, error) {
	if err := clean(data, 2); err != nil {
		return VehicleRef{}, err
	}
	return parseRef(data)
}

// ParseRefit reads [owner, vehicle, cargo]; cargo is a name or a number.
func (p *Parser) ParseRefit(data []string) (Refit, error) {
	var req Refit
	if err := clean(data, 3); err != nil {
		return req, err
	}
	ref, err := parseRef(data)
	if err != nil {
		return req, err
	}
	req.Owner, req.Vehicle = ref.Owner, ref.Vehicle

	if _, err := strconv.ParseFloat(data[2], 64); err == nil {
		n, err := whole(data[2], "cargo", 0, math.MaxUint8)
		req.Cargo = consist.CargoType(n)
		return req, err
	}
	if req.Cargo, err = consist.ParseCargo(data[2]); err != nil {
		return req, err
	}
	return req, nil
}

// ParseServiceInterval reads [owner, vehicle, days].
func (p *Parser) ParseServiceInterval(data []string) (ServiceInterval, error) {
	var req ServiceInterval
	if err := clean(data, 3); err != nil {
		return req, err
	}
	ref, err := parseRef(data)
	if err != nil {
		return req, err
	}
	days, err := whole(data[2], "interval", 0, math.MaxUint16)
	if err != nil {
		return req, err
	}
	return ServiceInterval{Owner: ref.Owner, Vehicle: ref.Vehicle, Days: uint16(days)}, nil
}

// ParseSendToDepot reads [owner, vehicle, service].
func (p *Parser) ParseSendToDepot(data []string) (SendToDepot, error) {
	var req SendToDepot
	if err := clean(data, 2); err != nil {
		return req, err
	}
	ref, err := parseRef(data)
	if err != nil {
		return req, err
	}
	req.Owner, req.Vehicle = ref.Owner, ref.Vehicle
	if len(data) > 2 {
		if req.Service, err = strconv.ParseBool(data[2]); err != nil {
			return req, fmt.Errorf("error converting service flag: %w", err)
		}
	}
	return req, nil
}

// ParseSetOrders reads [owner, vehicle, orders] where orders is a JSON
// array of orders.
func (p *Parser) ParseSetOrders(data []string) (SetOrders, error) {
	var req SetOrders
	if err := clean(data, 3); err != nil {
		return req, err
	}
	ref, err := parseRef(data)
	if err != nil {
		return req, err
	}
	req.Owner, req.Vehicle = ref.Owner, ref.Vehicle
	if err := json.Unmarshal([]byte(data[2]), &req.Orders); err != nil {
		return req, fmt.Errorf("error unmarshalling orders: %w", err)
	}

	p.logger.Debug("Parsed orders", "vehicle", req.Vehicle, "count", len(req.Orders))
	return req, nil
}
