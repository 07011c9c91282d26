package train

// Params are the tunables of train movement and the daily loops.
type Params struct {
	// WaitOneway and WaitTwoway scale how long a head waits in front of a
	// red one-way (x20 ticks) or two-way (x73 ticks) signal before it
	// turns around.
	WaitOneway int `mapstructure:"waitOnewaySignal" json:"waitOnewaySignal"`
	WaitTwoway int `mapstructure:"waitTwowaySignal" json:"waitTwowaySignal"`

	// LostTrainDays is how long a train may go without order progress
	// before it is reported lost; zero disables the report.
	LostTrainDays int `mapstructure:"lostTrainDays" json:"lostTrainDays"`
	// ServintTrains is the default service interval in days; zero
	// disables automatic servicing.
	ServintTrains   int  `mapstructure:"servintTrains" json:"servintTrains"`
	TrainIncomeWarn bool `mapstructure:"trainIncomeWarn" json:"trainIncomeWarn"`
	// GotoDepot leaves servicing to trains that have depot orders.
	GotoDepot  bool `mapstructure:"gotoDepot" json:"gotoDepot"`
	NewNonstop bool `mapstructure:"newNonstop" json:"newNonstop"`

	TicksPerDay int `mapstructure:"ticksPerDay" json:"ticksPerDay"`
	DaysPerYear int `mapstructure:"daysPerYear" json:"daysPerYear"`

	// Breakdowns is the breakdown difficulty: 0 none, 1 reduced, 2 normal.
	Breakdowns int `mapstructure:"breakdowns" json:"breakdowns"`
	// ReliabilityDecay is subtracted from every head's reliability daily.
	ReliabilityDecay int `mapstructure:"reliabilityDecay" json:"reliabilityDecay"`

	// EmitMoves sends a dirty event for every unit step.
	EmitMoves bool `mapstructure:"emitMoves" json:"emitMoves"`
}

// DefaultParams returns the stock settings.
func DefaultParams() Params {
	return Params{
		WaitOneway:       15,
		WaitTwoway:       41,
		LostTrainDays:    150,
		ServintTrains:    150,
		TrainIncomeWarn:  true,
		TicksPerDay:      74,
		DaysPerYear:      365,
		Breakdowns:       2,
		ReliabilityDecay: 20,
	}
}
