// Package config loads the copier's two kinds of configuration: the ambient
// runtime settings (YAML, via viper) and the two tabular files
// (credentials.csv, symbol_mapping.csv), loaded with encoding/csv — see
// DESIGN.md for why no third-party CSV library was a fit.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Runtime is the top-level ambient configuration, loaded from a YAML file
// with MT5_COPIER_* environment variable overrides — MT5_COPIER_OUTPUT_DIR
// and MT5_COPIER_HTTP_PORT are handled explicitly below; the rest follow
// the same env-prefix convention via viper's automatic env binding.
type Runtime struct {
	PollInterval    time.Duration   `mapstructure:"poll_interval"`
	Deviation       DeviationConfig `mapstructure:"deviation"`
	MagicNumber     int             `mapstructure:"magic_number"`
	CredentialsFile string          `mapstructure:"credentials_file"`
	MappingFile     string          `mapstructure:"mapping_file"`
	Logging         LoggingConfig   `mapstructure:"logging"`
	Broker          BrokerConfig    `mapstructure:"broker"`
	Publisher       PublisherConfig `mapstructure:"publisher"`
	Dashboard       DashboardConfig `mapstructure:"dashboard"`
	Audit           AuditConfig     `mapstructure:"audit"`
}

// BrokerConfig points the engine at the broker terminal's RPC bridge
// (internal/broker/rpcclient) — the terminal client library itself is an
// external collaborator, reachable over this bridge.
type BrokerConfig struct {
	BridgeURL string `mapstructure:"bridge_url"`
}

// DeviationConfig sets the allowed slippage, in points, passed to
// order_send, split by phase since opens and closes tolerate different
// slippage in practice.
type DeviationConfig struct {
	Open  int `mapstructure:"open"`
	Close int `mapstructure:"close"`
}

// LoggingConfig sets the slog handler level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PublisherConfig configures the master-state publisher variant.
type PublisherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	OutputDir    string        `mapstructure:"output_dir"`
	HTTPPort     int           `mapstructure:"http_port"`
}

// DashboardConfig controls the dashboard/CLI shell's HTTP server.
type DashboardConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	CopierBinary   string   `mapstructure:"copier_binary"`
}

// AuditConfig sets the order-log path.
type AuditConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads the runtime config from a YAML file, applying
// MT5_COPIER_OUTPUT_DIR and MT5_COPIER_HTTP_PORT overrides for the
// publisher, and MT5_COPIER_* for everything else via viper's automatic
// env binding.
func Load(path string) (*Runtime, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MT5_COPIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("poll_interval", 300*time.Millisecond)
	v.SetDefault("deviation.open", 120)
	v.SetDefault("deviation.close", 35)
	v.SetDefault("magic_number", 123456)
	v.SetDefault("credentials_file", "credentials.csv")
	v.SetDefault("mapping_file", "symbol_mapping.csv")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("broker.bridge_url", "http://127.0.0.1:18812")
	v.SetDefault("publisher.enabled", false)
	v.SetDefault("publisher.poll_interval", 200*time.Millisecond)
	v.SetDefault("publisher.output_dir", ".")
	v.SetDefault("publisher.http_port", 0)
	v.SetDefault("dashboard.port", 8090)
	v.SetDefault("dashboard.copier_binary", "./copier")
	v.SetDefault("audit.path", "orderlog.txt")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Runtime
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if dir := os.Getenv("MT5_COPIER_OUTPUT_DIR"); dir != "" {
		cfg.Publisher.OutputDir = dir
	}
	if portStr := os.Getenv("MT5_COPIER_HTTP_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("parse MT5_COPIER_HTTP_PORT: %w", err)
		}
		cfg.Publisher.HTTPPort = port
	}

	return &cfg, nil
}

// Validate checks the runtime settings a missing/zero value would make the
// engine misbehave with, rather than merely fail to start: fatal config
// errors should abort at start-up.
func (r *Runtime) Validate() error {
	if r.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0")
	}
	if r.CredentialsFile == "" {
		return fmt.Errorf("credentials_file is required")
	}
	if r.MappingFile == "" {
		return fmt.Errorf("mapping_file is required")
	}
	if r.Audit.Path == "" {
		return fmt.Errorf("audit.path is required")
	}
	return nil
}
