package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/trackworks/railcore/internal/config"
)

// cliOptions are the flags that are not config keys.
type cliOptions struct {
	ConfigDir string
	Scenario  string
	Session   string
	Version   bool
}

// flagKeys maps flags onto the config keys they override.
var flagKeys = map[string]string{
	"ticks":       "sim.ticks",
	"seed":        "sim.seed",
	"pathfinder":  "sim.pathfinder",
	"storage":     "storage.type",
	"log-level":   "logLevel",
	"logs-dir":    "logsDir",
	"status-dir":  "statusDir",
	"tag":         "tag",
	"upload":      "api.upload",
	"state-every": "storage.stateInterval",
}

func newFlagSet(out io.Writer) (*pflag.FlagSet, *cliOptions) {
	opts := &cliOptions{}
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s --scenario FILE [flags]\n\n", AppName)
		fs.PrintDefaults()
	}

	fs.StringVarP(&opts.ConfigDir, "config-dir", "c", ".", "directory holding "+config.FileName)
	fs.StringVarP(&opts.Scenario, "scenario", "s", "", "scenario file to run")
	fs.StringVar(&opts.Session, "session", "", "session name, defaults to the scenario name")
	fs.BoolVar(&opts.Version, "version", false, "print the version and exit")

	fs.IntP("ticks", "t", 0, "ticks to run, 0 runs until interrupted")
	fs.Uint64("seed", 1, "random seed")
	fs.String("pathfinder", "legacy", "pathfinder: legacy, new or npf")
	fs.String("storage", "memory", "recording backend: memory, sqlite, postgres or websocket")
	fs.String("log-level", "info", "log level")
	fs.String("logs-dir", "", "directory for log files")
	fs.String("status-dir", "", "directory for the status file, empty disables it")
	fs.String("tag", "", "tag stored with the session")
	fs.Bool("upload", false, "upload the exported session when the run ends")
	fs.Int("state-every", 0, "ticks between recorded train states")
	return fs, opts
}

// parseFlags parses args and binds every config flag into viper, so that
// a flag given on the command line wins over the config file.
func parseFlags(args []string, out io.Writer) (*cliOptions, error) {
	fs, opts := newFlagSet(out)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if opts.Scenario == "" && !opts.Version {
		if rest := fs.Args(); len(rest) > 0 {
			opts.Scenario = rest[0]
		} else {
			return nil, fmt.Errorf("no scenario given")
		}
	}
	return opts, nil
}
