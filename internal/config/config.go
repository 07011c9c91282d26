package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/trackworks/railcore/internal/command"
	"github.com/trackworks/railcore/internal/physics"
	"github.com/trackworks/railcore/internal/train"
)

// FileName is the name of the config file looked up in the config dir.
const FileName = "railcore.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the settings of the in-memory SQLite backend.
type SQLiteConfig struct {
	OutputPath   string        `json:"outputPath" mapstructure:"outputPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds the settings of the streaming backend.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type string `json:"type" mapstructure:"type"`
	// StateInterval is how many ticks apart train states are recorded.
	StateInterval int             `json:"stateInterval" mapstructure:"stateInterval"`
	Memory        MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket     WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// SimConfig holds the run settings that are not train tunables.
type SimConfig struct {
	Ticks           int    `json:"ticks" mapstructure:"ticks"`
	Seed            uint64 `json:"seed" mapstructure:"seed"`
	Pathfinder      string `json:"pathfinder" mapstructure:"pathfinder"`
	SearchLimit     int    `json:"searchLimit" mapstructure:"searchLimit"`
	Forbid90        bool   `json:"forbid90deg" mapstructure:"forbid90deg"`
	LineReverseMode int    `json:"lineReverseMode" mapstructure:"lineReverseMode"`
	MaxVehicles     int    `json:"maxVehicles" mapstructure:"maxVehicles"`
}

// OTelConfig configures the OpenTelemetry providers.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig configures the train state time series.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// SentryConfig configures defect reporting. An empty DSN reports to the
// log only.
type SentryConfig struct {
	DSN         string `json:"dsn" mapstructure:"dsn"`
	Environment string `json:"environment" mapstructure:"environment"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default of every known key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./railcore-logs")
	viper.SetDefault("statusDir", "")
	viper.SetDefault("tag", "")

	viper.SetDefault("sim.ticks", 7400)
	viper.SetDefault("sim.seed", 1)
	viper.SetDefault("sim.pathfinder", "legacy")
	viper.SetDefault("sim.searchLimit", 10000)
	viper.SetDefault("sim.forbid90deg", false)
	viper.SetDefault("sim.lineReverseMode", 0)
	viper.SetDefault("sim.maxVehicles", 5000)
	viper.SetDefault("sim.eventLimit", 10000)

	tp := train.DefaultParams()
	viper.SetDefault("sim.waitOnewaySignal", tp.WaitOneway)
	viper.SetDefault("sim.waitTwowaySignal", tp.WaitTwoway)
	viper.SetDefault("sim.lostTrainDays", tp.LostTrainDays)
	viper.SetDefault("sim.servintTrains", tp.ServintTrains)
	viper.SetDefault("sim.trainIncomeWarn", tp.TrainIncomeWarn)
	viper.SetDefault("sim.gotoDepot", tp.GotoDepot)
	viper.SetDefault("sim.newNonstop", tp.NewNonstop)
	viper.SetDefault("sim.ticksPerDay", tp.TicksPerDay)
	viper.SetDefault("sim.daysPerYear", tp.DaysPerYear)
	viper.SetDefault("sim.breakdowns", tp.Breakdowns)
	viper.SetDefault("sim.reliabilityDecay", tp.ReliabilityDecay)
	viper.SetDefault("sim.emitMoves", tp.EmitMoves)

	cp := command.DefaultParams()
	viper.SetDefault("sim.maxTrains", cp.MaxTrains)
	viper.SetDefault("sim.mammothTrains", cp.MammothTrains)
	viper.SetDefault("sim.realisticAcceleration", cp.Realistic)

	pp := physics.DefaultParams()
	viper.SetDefault("physics.startCap", pp.StartCap)
	viper.SetDefault("physics.area", pp.Area)
	viper.SetDefault("physics.friction", pp.Friction)
	viper.SetDefault("physics.drag", pp.Drag)
	viper.SetDefault("physics.dragPerUnit", pp.DragPerUnit)
	viper.SetDefault("physics.adjacentCurveCap", pp.AdjacentCurveCap)
	viper.SetDefault("physics.sharpCurveCap", pp.SharpCurveCap)
	viper.SetDefault("physics.curveBase", pp.CurveBase)
	viper.SetDefault("physics.stationCap", pp.StationCap)
	viper.SetDefault("physics.stationTileCap", pp.StationTileCap)
	viper.SetDefault("physics.depotCap", pp.DepotCap)
	viper.SetDefault("physics.inclinePerWeight", pp.InclinePerWeight)
	viper.SetDefault("physics.rollingNum", pp.RollingNum)
	viper.SetDefault("physics.rollingDen", pp.RollingDen)
	viper.SetDefault("physics.perUnit", pp.PerUnit)
	viper.SetDefault("physics.resistanceScale", pp.ResistanceScale)
	viper.SetDefault("physics.kickoff", pp.Kickoff)
	viper.SetDefault("physics.forceFloor", pp.ForceFloor)
	viper.SetDefault("physics.forcePerMass", pp.ForcePerMass)
	viper.SetDefault("physics.wattsPerHP", pp.WattsPerHP)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.stateInterval", 74)
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputPath", "./recordings/railcore.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "railcore")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "railcore")
	viper.SetDefault("influx.bucket", "train_state")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "railcore")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "development")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimConfig returns the run settings under "sim".
func GetSimConfig() (SimConfig, error) {
	var cfg SimConfig
	if err := viper.UnmarshalKey("sim", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling sim config: %w", err)
	}
	return cfg, nil
}

// GetTrainParams returns the train tunables under "sim", starting from
// the stock values.
func GetTrainParams() (train.Params, error) {
	p := train.DefaultParams()
	if err := viper.UnmarshalKey("sim", &p); err != nil {
		return p, fmt.Errorf("error unmarshalling train params: %w", err)
	}
	return p, nil
}

// GetCommandParams returns the company limits under "sim".
func GetCommandParams() (command.Params, error) {
	p := command.DefaultParams()
	if err := viper.UnmarshalKey("sim", &p); err != nil {
		return p, fmt.Errorf("error unmarshalling command params: %w", err)
	}
	return p, nil
}

// GetPhysicsParams returns the acceleration model constants under
// "physics".
func GetPhysicsParams() (physics.Params, error) {
	p := physics.DefaultParams()
	if err := viper.UnmarshalKey("physics", &p); err != nil {
		return p, fmt.Errorf("error unmarshalling physics params: %w", err)
	}
	return p, nil
}

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() (StorageConfig, error) {
	var cfg StorageConfig
	if err := viper.UnmarshalKey("storage", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling storage config: %w", err)
	}
	return cfg, nil
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() (OTelConfig, error) {
	var cfg OTelConfig
	if err := viper.UnmarshalKey("otel", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling otel config: %w", err)
	}
	return cfg, nil
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() (InfluxConfig, error) {
	var cfg InfluxConfig
	if err := viper.UnmarshalKey("influx", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling influx config: %w", err)
	}
	return cfg, nil
}

// GetSentryConfig returns the defect reporting settings.
func GetSentryConfig() (SentryConfig, error) {
	var cfg SentryConfig
	if err := viper.UnmarshalKey("sentry", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling sentry config: %w", err)
	}
	return cfg, nil
}
