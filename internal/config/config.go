// Package config loads server settings from CONFIGMONKEY_* environment
// variables, optionally seeded from .env files.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting name.
const EnvPrefix = "configmonkey"

type Config struct {
	DatabaseURL string // CONFIGMONKEY_DATABASE_URL (required; postgres://... or sqlite:<path>)
	HTTPAddr    string // CONFIGMONKEY_HTTP_ADDR (default ":8080")
	GRPCAddr    string // CONFIGMONKEY_GRPC_ADDR (default ":9090")
	NATSURL     string // CONFIGMONKEY_NATS_URL (optional, empty = no events)
	AuthToken   string // CONFIGMONKEY_AUTH_TOKEN (optional, empty = auth disabled)
	LogLevel    slog.Level

	// Snapshot settings
	SnapshotInterval   time.Duration // CONFIGMONKEY_SNAPSHOT_INTERVAL (default 0 = disabled)
	SnapshotS3Bucket   string        // CONFIGMONKEY_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Key      string        // CONFIGMONKEY_SNAPSHOT_S3_KEY (default "configmonkey/snapshot.jsonl")
	SnapshotS3Region   string        // CONFIGMONKEY_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Endpoint string        // CONFIGMONKEY_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotFile       string        // CONFIGMONKEY_SNAPSHOT_FILE (enables a local file copy when set)
	SnapshotGitRepo    string        // CONFIGMONKEY_SNAPSHOT_GIT_REPO (enables git when set; path to clone)
	SnapshotGitFile    string        // CONFIGMONKEY_SNAPSHOT_GIT_FILE (default "configmonkey.jsonl")
	SnapshotGitBranch  string        // CONFIGMONKEY_SNAPSHOT_GIT_BRANCH (default "main")

	// Tracing settings
	TracingExporter string // CONFIGMONKEY_TRACING_EXPORTER (none, stdout or otlp)
	OTLPEndpoint    string // CONFIGMONKEY_OTLP_ENDPOINT
}

var defaults = map[string]any{
	"http_addr":           ":8080",
	"grpc_addr":           ":9090",
	"log_level":           "info",
	"snapshot_interval":   "0",
	"snapshot_s3_key":     "configmonkey/snapshot.jsonl",
	"snapshot_s3_region":  "us-east-1",
	"snapshot_git_file":   "configmonkey.jsonl",
	"snapshot_git_branch": "main",
	"tracing_exporter":    "none",
}

// LoadEnvFiles loads .env and .env.local from the working directory when
// present. Variables already set in the environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// NewViper returns a viper instance bound to the CONFIGMONKEY_ environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return v
}

// Load reads .env files and the environment.
func Load() (*Config, error) {
	LoadEnvFiles()
	return FromViper(NewViper())
}

// FromViper builds a Config from v. Callers may bind command-line flags to v
// before calling it.
func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		DatabaseURL:        v.GetString("database_url"),
		HTTPAddr:           v.GetString("http_addr"),
		GRPCAddr:           v.GetString("grpc_addr"),
		NATSURL:            v.GetString("nats_url"),
		AuthToken:          v.GetString("auth_token"),
		SnapshotS3Bucket:   v.GetString("snapshot_s3_bucket"),
		SnapshotS3Key:      v.GetString("snapshot_s3_key"),
		SnapshotS3Region:   v.GetString("snapshot_s3_region"),
		SnapshotS3Endpoint: v.GetString("snapshot_s3_endpoint"),
		SnapshotFile:       v.GetString("snapshot_file"),
		SnapshotGitRepo:    v.GetString("snapshot_git_repo"),
		SnapshotGitFile:    v.GetString("snapshot_git_file"),
		SnapshotGitBranch:  v.GetString("snapshot_git_branch"),
		TracingExporter:    strings.ToLower(v.GetString("tracing_exporter")),
		OTLPEndpoint:       v.GetString("otlp_endpoint"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("CONFIGMONKEY_DATABASE_URL is required")
	}
	if _, _, err := ParseDatabaseURL(c.DatabaseURL); err != nil {
		return nil, err
	}

	interval, err := time.ParseDuration(v.GetString("snapshot_interval"))
	if err != nil {
		return nil, fmt.Errorf("CONFIGMONKEY_SNAPSHOT_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, fmt.Errorf("CONFIGMONKEY_SNAPSHOT_INTERVAL: must not be negative")
	}
	c.SnapshotInterval = interval

	if err := c.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("CONFIGMONKEY_LOG_LEVEL: %w", err)
	}

	switch c.TracingExporter {
	case "none", "stdout", "otlp":
	default:
		return nil, fmt.Errorf("CONFIGMONKEY_TRACING_EXPORTER: unknown exporter %q", c.TracingExporter)
	}
	return c, nil
}

// Database drivers understood by ParseDatabaseURL.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ParseDatabaseURL splits a database URL into a driver name and the DSN to
// hand to it. sqlite:<path> selects the embedded backend.
func ParseDatabaseURL(raw string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite:"):
		path := strings.TrimPrefix(raw, "sqlite:")
		path = strings.TrimPrefix(path, "//")
		if path == "" {
			return "", "", fmt.Errorf("database url %q: missing sqlite path", raw)
		}
		return DriverSQLite, path, nil
	default:
		return "", "", fmt.Errorf("database url %q: unsupported scheme", raw)
	}
}
