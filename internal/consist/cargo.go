package consist

import (
	"fmt"
	"strings"
)

// CargoType identifies what a unit carries.
type CargoType uint8

const (
	CargoPassengers CargoType = iota
	CargoCoal
	CargoMail
	CargoOil
	CargoLivestock
	CargoGoods
	CargoGrain
	CargoWood
	CargoIronOre
	CargoSteel
	CargoValuables
)

var cargoNames = []string{
	"passengers", "coal", "mail", "oil", "livestock", "goods",
	"grain", "wood", "iron_ore", "steel", "valuables",
}

// cargoWeights is the weight of one unit of cargo in sixteenths of a ton.
var cargoWeights = []uint16{1, 16, 4, 16, 3, 8, 16, 16, 16, 16, 2}

func (c CargoType) String() string {
	if int(c) < len(cargoNames) {
		return cargoNames[c]
	}
	return "unknown"
}

// Weight returns the weight per unit in sixteenths of a ton.
func (c CargoType) Weight() uint16 {
	if int(c) < len(cargoWeights) {
		return cargoWeights[c]
	}
	return 16
}

// RefitMultiplier returns how many capacity units one unit of c takes:
// passengers 1, mail and goods 2, bulk 4.
func (c CargoType) RefitMultiplier() uint16 {
	switch c {
	case CargoPassengers:
		return 1
	case CargoMail, CargoGoods:
		return 2
	}
	return 4
}

func (c CargoType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CargoType) UnmarshalText(b []byte) error {
	for i, n := range cargoNames {
		if strings.EqualFold(n, string(b)) {
			*c = CargoType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown cargo %q", b)
}

// ParseCargo resolves a cargo name.
func ParseCargo(s string) (CargoType, error) {
	var c CargoType
	err := c.UnmarshalText([]byte(s))
	return c, err
}
