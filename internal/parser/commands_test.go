package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackworks/railcore/internal/consist"
	"github.com/trackworks/railcore/internal/world"
)

func TestParseBuildVehicle(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		data    []string
		want    BuildVehicle
		wantErr bool
	}{
		{"plain", []string{"1", "34", "0"}, BuildVehicle{Owner: 1, Tile: 34, Engine: 0}, false},
		{"quoted floats", []string{`"2.00"`, `"17.0"`, `"3"`}, BuildVehicle{Owner: 2, Tile: 17, Engine: 3}, false},
		{"missing engine", []string{"1", "34"}, BuildVehicle{}, true},
		{"owner out of range", []string{"300", "34", "0"}, BuildVehicle{}, true},
		{"invalid engine", []string{"1", "34", "65535"}, BuildVehicle{}, true},
		{"bad tile", []string{"1", "x", "0"}, BuildVehicle{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseBuildVehicle(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMoveVehicle(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseMoveVehicle([]string{"1", "7", "-1"})
	require.NoError(t, err)
	assert.Equal(t, MoveVehicle{Owner: 1, Src: 7}, got)

	got, err = p.ParseMoveVehicle([]string{"1", "7", "3", "true"})
	require.NoError(t, err)
	assert.Equal(t, MoveVehicle{Owner: 1, Src: 7, Dst: 3, HasDst: true, Chain: true}, got)

	_, err = p.ParseMoveVehicle([]string{"1", "7", "3", "maybe"})
	assert.Error(t, err)
}

func TestParseSellVehicle(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseSellVehicle([]string{"1", "4"})
	require.NoError(t, err)
	assert.Equal(t, SellVehicle{Owner: 1, Vehicle: 4}, got)

	got, err = p.ParseSellVehicle([]string{"1", "4", "1"})
	require.NoError(t, err)
	assert.True(t, got.Chain)
}

func TestParseRefit(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		cargo   string
		want    consist.CargoType
		wantErr bool
	}{
		{"by name", "coal", consist.CargoCoal, false},
		{"case folded", "Mail", consist.CargoMail, false},
		{"by number", "5", consist.CargoGoods, false},
		{"unknown name", "cheese", 0, true},
		{"number out of range", "256", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseRefit([]string{"1", "9", tt.cargo})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Cargo)
			assert.Equal(t, consist.VehicleID(9), got.Vehicle)
		})
	}
}

func TestParseServiceInterval(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseServiceInterval([]string{"1", "9", "150"})
	require.NoError(t, err)
	assert.Equal(t, uint16(150), got.Days)

	_, err = p.ParseServiceInterval([]string{"1", "9", "70000"})
	assert.Error(t, err)
}

func TestParseSendToDepot(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseSendToDepot([]string{"1", "9"})
	require.NoError(t, err)
	assert.False(t, got.Service)

	got, err = p.ParseSendToDepot([]string{"1", "9", "true"})
	require.NoError(t, err)
	assert.True(t, got.Service)
}

func TestParseSetOrders(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseSetOrders([]string{"1", "9", `[{"type":1,"station":3},{"type":2,"flags":16,"depot":1}]`})
	require.NoError(t, err)
	require.Len(t, got.Orders, 2)
	assert.Equal(t, consist.OrderGotoStation, got.Orders[0].Type)
	assert.Equal(t, world.StationID(3), got.Orders[0].Station)
	assert.True(t, got.Orders[1].Has(consist.OrderPartOfOrders))
	assert.Equal(t, world.DepotID(1), got.Orders[1].Depot)

	_, err = p.ParseSetOrders([]string{"1", "9", `{"type":1}`})
	assert.Error(t, err)
}

func TestParseVehicleRef_EscapedQuotes(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseVehicleRef([]string{`"1"`, `"12"`})
	require.NoError(t, err)
	assert.Equal(t, VehicleRef{Owner: 1, Vehicle: 12}, got)
}
