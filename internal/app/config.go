package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Order sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (REPORT_ prefix), flags, or YAML config files.
type Config struct {
	Source      string `default:"file" usage:"Order source: file or postgres"`
	OrdersFile  string `default:"orders.json" usage:"JSON order snapshot, optionally gzip-compressed (.gz)" flag:"orders-file"`
	DatabaseURL string `usage:"PostgreSQL connection URL (REPORT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Workers     int    `default:"1" usage:"Number of shards used when aggregating"`
	Locale      string `default:"en-US" usage:"BCP 47 locale for printed amounts"`
	Currency    string `default:"USD" usage:"ISO 4217 currency for printed amounts"`
	Addr        string `default:"" usage:"Serve the report API on this address instead of printing the report"`
	Graceful    GracefulConfig
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"2s" usage:"Time between failing readiness and stopping the server" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and command-line flags.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "REPORT",
		Args:      args,
		Files:     []string{"report.yaml", "/etc/order-report/report.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults falls back to the conventional DATABASE_URL variable.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}

func (c *Config) validate() error {
	switch c.Source {
	case SourceFile:
		if c.OrdersFile == "" {
			return errors.New("orders file is required for the file source")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set REPORT_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown source %q: want %q or %q", c.Source, SourceFile, SourcePostgres)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
