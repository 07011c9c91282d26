// Package physics computes train acceleration, braking and speed updates.
package physics

// Params are the constants of the realistic acceleration model. Speeds are
// in internal units, forces in newtons, masses in tons.
type Params struct {
	StartCap         int `mapstructure:"startCap" json:"startCap"`
	Area             int `mapstructure:"area" json:"area"`
	Friction         int `mapstructure:"friction" json:"friction"`
	Drag             int `mapstructure:"drag" json:"drag"`
	DragPerUnit      int `mapstructure:"dragPerUnit" json:"dragPerUnit"`
	AdjacentCurveCap int `mapstructure:"adjacentCurveCap" json:"adjacentCurveCap"`
	SharpCurveCap    int `mapstructure:"sharpCurveCap" json:"sharpCurveCap"`
	CurveBase        int `mapstructure:"curveBase" json:"curveBase"`
	StationCap       int `mapstructure:"stationCap" json:"stationCap"`
	StationTileCap   int `mapstructure:"stationTileCap" json:"stationTileCap"`
	DepotCap         int `mapstructure:"depotCap" json:"depotCap"`
	InclinePerWeight int `mapstructure:"inclinePerWeight" json:"inclinePerWeight"`
	RollingNum       int `mapstructure:"rollingNum" json:"rollingNum"`
	RollingDen       int `mapstructure:"rollingDen" json:"rollingDen"`
	PerUnit          int `mapstructure:"perUnit" json:"perUnit"`
	ResistanceScale  int `mapstructure:"resistanceScale" json:"resistanceScale"`
	Kickoff          int `mapstructure:"kickoff" json:"kickoff"`
	ForceFloor       int `mapstructure:"forceFloor" json:"forceFloor"`
	ForcePerMass     int `mapstructure:"forcePerMass" json:"forcePerMass"`
	WattsPerHP       int `mapstructure:"wattsPerHP" json:"wattsPerHP"`
}

// DefaultParams returns the stock constants.
func DefaultParams() Params {
	return Params{
		StartCap:         2000,
		Area:             120,
		Friction:         35,
		Drag:             20,
		DragPerUnit:      3,
		AdjacentCurveCap: 88,
		SharpCurveCap:    61,
		CurveBase:        232,
		StationCap:       120,
		StationTileCap:   25,
		DepotCap:         61,
		InclinePerWeight: 60,
		RollingNum:       13,
		RollingDen:       10,
		PerUnit:          60,
		ResistanceScale:  4,
		Kickoff:          10,
		ForceFloor:       10000,
		ForcePerMass:     2000,
		WattsPerHP:       746,
	}
}
