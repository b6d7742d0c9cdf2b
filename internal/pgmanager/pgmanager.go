// Package pgmanager runs a managed embedded PostgreSQL for the settings
// store when no database URL is configured and database.embedded is set.
package pgmanager

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
)

const (
	defaultPort = 15433
	dbName      = "tripnest"
	dbUser      = "tripnest"
	dbPassword  = "tripnest"
)

// Config configures the managed instance. Zero values use defaults under
// ~/.tripnest.
type Config struct {
	Port    uint32
	DataDir string
	Logger  *slog.Logger
}

// Manager starts and stops one embedded PostgreSQL.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	mu      sync.Mutex
	db      *embeddedpostgres.EmbeddedPostgres
	connURL string
	pidPath string
}

// New creates a Manager. Nothing starts until Start.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Start launches PostgreSQL and returns its connection URL. The first run
// downloads the server binary into ~/.tripnest/pg.
func (m *Manager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return m.connURL, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	home, err := tripnestHome()
	if err != nil {
		return "", err
	}
	dataDir := m.cfg.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(home, "data")
	}
	runtimeDir := filepath.Join(home, "pg", "run")
	for _, dir := range []string{dataDir, runtimeDir, filepath.Join(home, "pg")} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	m.pidPath = filepath.Join(home, "pg", "postgres.pid")
	cleanupOrphan(m.pidPath, m.logger)
	// A crashed previous run leaves postmaster.pid behind and blocks startup.
	if pid, err := readPostmasterPID(filepath.Join(dataDir, "postmaster.pid")); err == nil && pid > 0 && !alive(pid) {
		os.Remove(filepath.Join(dataDir, "postmaster.pid")) //nolint:errcheck
	}

	db := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(m.cfg.Port).
		DataPath(dataDir).
		RuntimePath(runtimeDir).
		CachePath(filepath.Join(home, "pg")).
		Version(embeddedpostgres.V16).
		Username(dbUser).
		Password(dbPassword).
		Database(dbName).
		StartTimeout(60 * time.Second).
		Logger(newLogWriter(m.logger)))

	m.logger.Info("starting managed postgres", "port", m.cfg.Port, "data_dir", dataDir)
	started := make(chan error, 1)
	go func() { started <- db.Start() }()
	select {
	case err := <-started:
		if err != nil {
			return "", fmt.Errorf("starting embedded postgres: %w", err)
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if pid, err := readPostmasterPID(filepath.Join(dataDir, "postmaster.pid")); err == nil {
		if err := writePID(m.pidPath, pid); err != nil {
			m.logger.Warn("could not record postgres pid", "error", err)
		}
	}

	m.db = db
	m.connURL = URL(m.cfg.Port)
	return m.connURL, nil
}

// Stop shuts PostgreSQL down. It is a no-op when not running.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	m.logger.Info("stopping managed postgres")
	err := m.db.Stop()
	m.db = nil
	m.connURL = ""
	if rmErr := removePID(m.pidPath); rmErr != nil {
		m.logger.Warn("could not remove postgres pid file", "error", rmErr)
	}
	return err
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db != nil
}

// ConnURL returns the connection URL, or "" when not running.
func (m *Manager) ConnURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connURL
}

// URL returns the connection URL of a managed instance on port.
func URL(port uint32) string {
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("postgresql://%s:%s@127.0.0.1:%d/%s?sslmode=disable", dbUser, dbPassword, port, dbName)
}

// tripnestHome returns ~/.tripnest, creating it if needed.
func tripnestHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".tripnest")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// readPID returns 0 without error when the file does not exist.
func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// readPostmasterPID reads the PID from the first line of postmaster.pid.
func readPostmasterPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(string(data), "\n")
	return strconv.Atoi(strings.TrimSpace(first))
}

// cleanupOrphan stops a postgres left running by a previous process that
// exited without calling Stop, then removes the stale PID file.
func cleanupOrphan(pidPath string, logger *slog.Logger) {
	pid, err := readPID(pidPath)
	if err != nil || pid == 0 {
		return
	}
	if alive(pid) {
		logger.Warn("stopping orphaned managed postgres", "pid", pid)
		if proc, err := os.FindProcess(pid); err == nil {
			_ = proc.Signal(syscall.SIGTERM)
			for i := 0; i < 50 && alive(pid); i++ {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
	if err := removePID(pidPath); err != nil {
		logger.Warn("could not remove stale postgres pid file", "error", err)
	}
}

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// logWriter forwards postgres output to slog at debug level, one record
// per line.
type logWriter struct {
	logger *slog.Logger
}

func newLogWriter(logger *slog.Logger) *logWriter {
	return &logWriter{logger: logger.With("component", "postgres")}
}

func (w *logWriter) Write(p []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(p))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			w.logger.Debug(line)
		}
	}
	return len(p), nil
}
