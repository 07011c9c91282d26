package command

import (
	"fmt"
	"time"

	"github.com/trackworks/railcore/internal/dispatcher"
	"github.com/trackworks/railcore/internal/parser"
)

// RegisterHandlers registers every consist command with the dispatcher.
// The handlers run synchronously: commands must land between two ticks,
// on the goroutine that runs the simulation.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher, p *parser.Parser) {
	opts := []dispatcher.Option{dispatcher.Logged(), dispatcher.Stamped(time.Now)}

	d.Register(":BUILD:VEHICLE:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseBuildVehicle(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse build: %w", err)
		}
		v, err := m.Build(req.Owner, req.Tile, req.Engine)
		if err != nil {
			return nil, err
		}
		return v.Index, nil
	}, opts...)

	d.Register(":MOVE:VEHICLE:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseMoveVehicle(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse move: %w", err)
		}
		return nil, m.Move(req.Owner, req.Src, req.Dst, req.HasDst, req.Chain)
	}, opts...)

	d.Register(":SELL:VEHICLE:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseSellVehicle(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sell: %w", err)
		}
		return nil, m.Sell(req.Owner, req.Vehicle, req.Chain)
	}, opts...)

	d.Register(":START:STOP:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseVehicleRef(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start/stop: %w", err)
		}
		return m.StartStop(req.Owner, req.Vehicle)
	}, opts...)

	d.Register(":REVERSE:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseVehicleRef(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reverse: %w", err)
		}
		return nil, m.Reverse(req.Owner, req.Vehicle)
	}, opts...)

	d.Register(":FORCE:PROCEED:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseVehicleRef(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse force proceed: %w", err)
		}
		return nil, m.ForceProceed(req.Owner, req.Vehicle)
	}, opts...)

	d.Register(":REFIT:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseRefit(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse refit: %w", err)
		}
		return m.Refit(req.Owner, req.Vehicle, req.Cargo)
	}, opts...)

	d.Register(":SERVICE:INTERVAL:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseServiceInterval(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service interval: %w", err)
		}
		return nil, m.ServiceInterval(req.Owner, req.Vehicle, req.Days)
	}, opts...)

	d.Register(":SEND:TO:DEPOT:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseSendToDepot(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse send to depot: %w", err)
		}
		return m.SendToDepot(req.Owner, req.Vehicle, req.Service)
	}, opts...)

	d.Register(":ORDERS:SET:", func(e dispatcher.Event) (any, error) {
		req, err := p.ParseSetOrders(e.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to parse orders: %w", err)
		}
		return nil, m.SetOrders(req.Owner, req.Vehicle, req.Orders)
	}, opts...)
}
