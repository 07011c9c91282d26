package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/trackworks/railcore/internal/config"
	"github.com/trackworks/railcore/internal/database"
	"github.com/trackworks/railcore/internal/logging"
	"github.com/trackworks/railcore/internal/storage"
	"github.com/trackworks/railcore/internal/storage/memory"
	pgstorage "github.com/trackworks/railcore/internal/storage/postgres"
	sqlitestorage "github.com/trackworks/railcore/internal/storage/sqlite"
	wsstorage "github.com/trackworks/railcore/internal/storage/websocket"
)

// storageDeps are what the backends need from main.
type storageDeps struct {
	LogManager *logging.SlogManager
	LogWriter  io.Writer
	LogLevel   string
	Started    time.Time
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	logger := deps.LogManager.Logger()
	switch storageCfg.Type {
	case "postgres":
		// falls back to an in-memory SQLite database when postgres is down
		dbm := database.NewManager(logging.NewZerolog(deps.LogWriter, deps.LogLevel))
		if err := dbm.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Postgres storage backend initialized", "dialect", dbm.DB.Dialector.Name(), "local", dbm.ShouldSaveLocal)
		return pgstorage.New(pgstorage.Dependencies{
			DB:           dbm.DB,
			LogManager:   deps.LogManager,
			SQLiteSchema: dbm.ShouldSaveLocal,
		}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.OutputPath
		if dumpPath == "" || strings.HasSuffix(dumpPath, string(filepath.Separator)) {
			dumpPath = filepath.Join(dumpPath, fmt.Sprintf("%s_%s.db", AppName, deps.Started.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, deps.LogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", dumpPath)
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(viper.GetString("api.serverUrl")) + "/api"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = viper.GetString("api.apiKey")
		}
		logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
			Logger: logger.With(slog.String("backend", "websocket")),
		}), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
