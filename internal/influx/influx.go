// Package influx writes train states and tick samples to InfluxDB. When the
// server cannot be reached the points go to a gzipped line protocol file
// instead, ready to be imported later.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/trackworks/railcore/internal/config"
)

const (
	performanceBucket  = "sim_performance"
	defaultStateBucket = "train_state"
	retention          = 90 * 24 * time.Hour
	pingTimeout        = 5 * time.Second
)

// ErrDisabled is returned by Connect when influx is switched off.
var ErrDisabled = errors.New("influx is disabled")

// Manager owns the client and one write API per bucket.
type Manager struct {
	cfg        config.InfluxConfig
	logger     zerolog.Logger
	backupPath string

	client  influxdb2.Client
	writers map[string]influxdb2_api.WriteAPI
	online  bool

	mu         sync.Mutex
	backup     *gzip.Writer
	backupFile *os.File
}

// NewManager prepares a manager; nothing is contacted before Connect.
// backupPath is where points go when the server is down.
func NewManager(cfg config.InfluxConfig, logger zerolog.Logger, backupPath string) *Manager {
	if cfg.Bucket == "" {
		cfg.Bucket = defaultStateBucket
	}
	return &Manager{
		cfg:        cfg,
		logger:     logger,
		backupPath: backupPath,
		writers:    make(map[string]influxdb2_api.WriteAPI),
	}
}

// StateBucket receives train states.
func (m *Manager) StateBucket() string { return m.cfg.Bucket }

// PerformanceBucket receives tick samples.
func (m *Manager) PerformanceBucket() string { return performanceBucket }

// Online reports whether points go to the server rather than the backup.
func (m *Manager) Online() bool { return m.online }

// Connect pings the server and makes sure the organisation and buckets
// exist. An unreachable server is not an error: the backup file is opened
// instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	url := fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
	m.client = influxdb2.NewClientWithOptions(url, m.cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(2500).SetFlushInterval(1000))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if up, err := m.client.Ping(pingCtx); err != nil || !up {
		m.logger.Warn().Err(err).Str("url", url).Str("backup", m.backupPath).
			Msg("InfluxDB unreachable, writing points to backup file")
		return m.openBackup()
	}

	if err := m.ensureBuckets(ctx); err != nil {
		return err
	}
	for _, bucket := range []string{m.StateBucket(), m.PerformanceBucket()} {
		m.writers[bucket] = m.client.WriteAPI(m.cfg.Org, bucket)
		go m.logErrors(bucket, m.writers[bucket].Errors())
	}
	m.online = true
	m.logger.Info().Str("url", url).Msg("InfluxDB connected")
	return nil
}

func (m *Manager) logErrors(bucket string, errs <-chan error) {
	for err := range errs {
		m.logger.Error().Err(err).Str("bucket", bucket).Msg("InfluxDB write failed")
	}
}

func (m *Manager) openBackup() error {
	f, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open influx backup: %w", err)
	}
	m.backupFile = f
	m.backup = gzip.NewWriter(f)
	return nil
}

func (m *Manager) ensureBuckets(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Creating InfluxDB organization")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org); err != nil {
			return fmt.Errorf("create organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := m.client.BucketsAPI()
	expire := domain.RetentionRuleTypeExpire
	rule := domain.RetentionRule{Type: &expire, EverySeconds: int64(retention.Seconds())}
	for _, name := range []string{m.StateBucket(), m.PerformanceBucket()} {
		if _, err := buckets.FindBucketByName(ctx, name); err == nil {
			continue
		}
		m.logger.Info().Str("bucket", name).Msg("Creating InfluxDB bucket")
		if _, err := buckets.CreateBucketWithName(ctx, org, name, rule); err != nil {
			return fmt.Errorf("create bucket %s: %w", name, err)
		}
	}
	return nil
}

// WritePoint queues p for bucket, or appends it to the backup file.
func (m *Manager) WritePoint(bucket string, p *influxdb2_write.Point) error {
	if m.online {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influx bucket %q not registered", bucket)
		}
		w.WritePoint(p)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup == nil {
		return errors.New("influx not connected and no backup file")
	}
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	if _, err := m.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write influx backup: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the client and the backup.
func (m *Manager) Close() error {
	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
	}
	return errors.Join(errs...)
}
