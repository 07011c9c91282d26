// Command railsim runs a rail scenario and records the trains, events and
// per-tick samples to the configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/trackworks/railcore/internal/api"
	"github.com/trackworks/railcore/internal/cache"
	"github.com/trackworks/railcore/internal/config"
	"github.com/trackworks/railcore/internal/defect"
	"github.com/trackworks/railcore/internal/influx"
	"github.com/trackworks/railcore/internal/logging"
	"github.com/trackworks/railcore/internal/monitor"
	intOtel "github.com/trackworks/railcore/internal/otel"
	"github.com/trackworks/railcore/internal/runner"
	"github.com/trackworks/railcore/internal/scenario"
	"github.com/trackworks/railcore/internal/session"
	"github.com/trackworks/railcore/internal/storage"
	"github.com/trackworks/railcore/internal/worker"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "railsim"
)

// shutdownTimeout bounds flushing telemetry on the way out.
const shutdownTimeout = 10 * time.Second

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.Version {
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)
		return
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// app holds what run sets up and tears down.
type app struct {
	started    time.Time
	logFile    *os.File
	slogs      *logging.SlogManager
	logger     *slog.Logger
	otel       *intOtel.Provider
	gelf       *gelf.Writer
	reporter   *defect.Reporter
	sessionCtx *session.Context
}

func run(opts *cliOptions) error {
	a := &app{started: time.Now(), sessionCtx: session.NewContext()}
	defer a.close()

	if err := config.Load(opts.ConfigDir); err != nil {
		// defaults are in place, the file is optional
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}
	if err := a.setupLogging(); err != nil {
		return err
	}

	sentryCfg, err := config.GetSentryConfig()
	if err != nil {
		return err
	}
	if a.reporter, err = defect.New(sentryCfg, a.logger.With("component", "defect")); err != nil {
		return err
	}
	defer a.reporter.Recover(map[string]string{"component": "main"})

	sc, err := scenario.Load(opts.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.simulate(ctx, opts, sc)
}

func (a *app) setupLogging() error {
	level := viper.GetString("logLevel")
	logsDir := viper.GetString("logsDir")
	if logsDir != "" {
		f, err := logging.OpenLogFile(logsDir, AppName, a.started)
		if err != nil {
			return err
		}
		a.logFile = f
	}

	a.slogs = logging.NewSlogManager()
	a.slogs.Attrs = a.sessionCtx.LogAttrs

	otelCfg, err := config.GetOTelConfig()
	if err != nil {
		return err
	}
	var provider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		a.otel, err = intOtel.New(otelCfg, a.logWriter())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		} else {
			provider = a.otel.LoggerProvider()
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		h, w, err := logging.NewGelfHandler(viper.GetString("graylog.address"), level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to graylog: %v\n", err)
		} else {
			a.gelf = w
			extra = append(extra, h)
		}
	}

	a.slogs.Setup(a.logWriter(), level, provider, extra...)
	a.logger = a.slogs.Logger()
	a.logger.Info("Starting up", "version", Version, "build", BuildDate, "otel", a.otel != nil, "graylog", a.gelf != nil)
	return nil
}

// logWriter returns the log file, or nil for console logging.
func (a *app) logWriter() io.Writer {
	if a.logFile == nil {
		return nil
	}
	return a.logFile
}

func (a *app) simulate(ctx context.Context, opts *cliOptions, sc *scenario.Scenario) error {
	simCfg, err := config.GetSimConfig()
	if err != nil {
		return err
	}
	trainParams, err := config.GetTrainParams()
	if err != nil {
		return err
	}
	cmdParams, err := config.GetCommandParams()
	if err != nil {
		return err
	}
	physParams, err := config.GetPhysicsParams()
	if err != nil {
		return err
	}
	storageCfg, err := config.GetStorageConfig()
	if err != nil {
		return err
	}

	backend, err := createStorageBackend(storageCfg, storageDeps{
		LogManager: a.slogs,
		LogWriter:  a.logWriter(),
		LogLevel:   viper.GetString("logLevel"),
		Started:    a.started,
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	im := a.connectInflux(ctx)
	if im != nil {
		defer func() {
			if err := im.Close(); err != nil {
				a.logger.Error("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	frame, err := sc.Frame()
	if err != nil {
		return err
	}
	recorder := worker.NewManager(worker.Dependencies{
		TrainCache: cache.NewTrainCache(),
		LogManager: a.slogs,
		Session:    a.sessionCtx,
		Influx:     im,
		Frame:      frame,
	}, backend)

	r, err := runner.New(runner.Options{
		Scenario:      sc,
		Sim:           simCfg,
		Train:         trainParams,
		Command:       cmdParams,
		Physics:       physParams,
		StateInterval: storageCfg.StateInterval,
		EventLimit:    viper.GetInt("sim.eventLimit"),
		Session:       a.sessionCtx,
		Recorder:      recorder,
		Reporter:      a.reporter,
		Logger:        a.logger,
	})
	if err != nil {
		return err
	}

	sess := r.NewSession(opts.Session, viper.GetString("tag"))
	a.sessionCtx.SetSession(sess, r.Layout())
	if err := backend.StartSession(sess, r.Layout()); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	a.logger.Info("Session started", "storage", storageCfg.Type, "ticks", simCfg.Ticks, "seed", simCfg.Seed)

	recorder.Start(context.WithoutCancel(ctx))

	var mon *monitor.Service
	if dir := viper.GetString("statusDir"); dir != "" {
		mon = monitor.NewService(monitor.Dependencies{
			LogManager:     a.slogs,
			SessionContext: a.sessionCtx,
			Source:         r,
			StatusDir:      dir,
		})
		if err := mon.Start(); err != nil {
			a.logger.Error("Failed to start status monitor", "error", err)
			mon = nil
		}
	}

	runErr := r.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		a.logger.Info("Interrupted", "tick", r.Simulator().Ticks())
		runErr = nil
	}

	recorder.Close()
	if mon != nil {
		mon.Stop()
	}
	if err := backend.EndSession(); err != nil {
		a.logger.Error("Failed to end session", "error", err)
	}
	a.logger.Info("Session ended",
		"ticks", r.Simulator().Ticks(),
		"recorded", recorder.Recorded(),
		"recordFailures", recorder.Failures(),
		"commandErrors", r.CommandErrors(),
		"defects", a.reporter.Count())

	if viper.GetBool("api.upload") {
		a.upload(backend)
	}
	return runErr
}

// connectInflux returns nil when influx is disabled or broken; the run
// goes on without time series.
func (a *app) connectInflux(ctx context.Context) *influx.Manager {
	cfg, err := config.GetInfluxConfig()
	if err != nil {
		a.logger.Error("Bad influx config", "error", err)
		return nil
	}
	if !cfg.Enabled {
		return nil
	}
	backup := filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_influx_%s.gz", AppName, a.started.Format("20060102_150405")))
	im := influx.NewManager(cfg, logging.NewZerolog(a.logWriter(), viper.GetString("logLevel")), backup)
	if err := im.Connect(ctx); err != nil {
		a.logger.Error("Failed to connect to InfluxDB", "error", err)
		_ = im.Close()
		return nil
	}
	return im
}

func (a *app) upload(backend storage.Backend) {
	up, ok := backend.(storage.Uploadable)
	if !ok {
		a.logger.Warn("Storage backend has nothing to upload")
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		a.logger.Warn("No exported session to upload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		a.logger.Error("Recording server is not reachable", "error", err)
		return
	}
	if err := client.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		a.logger.Error("Failed to upload session", "path", path, "error", err)
		return
	}
	a.logger.Info("Uploaded session", "path", path)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.reporter != nil {
		a.reporter.Flush()
	}
	if a.slogs != nil {
		if err := a.slogs.Flush(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down OTel: %v\n", err)
		}
	}
	if a.gelf != nil {
		_ = a.gelf.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
