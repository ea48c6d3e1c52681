package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/time/rate"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/advisor"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// Config is the service configuration, read from the environment
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"50051"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"memory"`
	SQLiteFile  string `env:"SQLITE_FILE" envDefault:"dev.sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`

	NATS       NATSConfig       `envPrefix:"NATS_"`
	ClickHouse ClickHouseConfig `envPrefix:"CLICKHOUSE_"`
	Advisor    AdvisorConfig    `envPrefix:"ADVISOR_"`

	// RankingsFile is a JSON rankings board; empty uses the built-in sample board
	RankingsFile string `env:"RANKINGS_FILE"`
	LeagueFile   string `env:"LEAGUE_FILE"`

	SimConcurrency int  `env:"SIM_CONCURRENCY"`
	OpponentNoise  bool `env:"OPPONENT_NOISE" envDefault:"true"`

	// League holds the defaults for new drafts and simulations, from LeagueFile
	League LeagueFile
}

// NATSConfig selects the event upstream. Development runs an embedded server.
type NATSConfig struct {
	// Mode is embedded, remote or memory; empty picks embedded in development and remote otherwise
	Mode     string `env:"MODE"`
	URL      string `env:"URL" envDefault:"nats://localhost:4222"`
	Subject  string `env:"SUBJECT" envDefault:"draft.events"`
	Stream   string `env:"STREAM" envDefault:"DRAFT_EVENTS"`
	StoreDir string `env:"STORE_DIR"`
}

type ClickHouseConfig struct {
	Addr     string `env:"ADDR"`
	Database string `env:"DB" envDefault:"default"`
	User     string `env:"USER" envDefault:"default"`
	Password string `env:"PASSWORD"`
}

// AdvisorConfig configures the optional HTTP pick advisor. An empty URL disables it.
type AdvisorConfig struct {
	URL          string        `env:"URL"`
	TokenURL     string        `env:"TOKEN_URL"`
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	Scopes       []string      `env:"SCOPES" envSeparator:","`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"20s"`
	RatePerSec   float64       `env:"RATE_PER_SEC" envDefault:"4"`
	BoardSize    int           `env:"BOARD_SIZE" envDefault:"15"`
}

// LeagueFile is the TOML layout of LEAGUE_FILE
type LeagueFile struct {
	League     models.DraftSettings `toml:"league"`
	Simulation SimulationDefaults   `toml:"simulation"`
}

// SimulationDefaults seeds batch runs that do not set their own values
type SimulationDefaults struct {
	Simulations int   `toml:"simulations"`
	Noise       bool  `toml:"noise"`
	Seed        int64 `toml:"seed"`
}

// DefaultLeague returns the built-in league used when no LEAGUE_FILE exists
func DefaultLeague() LeagueFile {
	return LeagueFile{
		League: models.DraftSettings{
			LeagueSize:    draft.DefaultLeagueSize,
			PickPosition:  1,
			Rounds:        16,
			ScoringFormat: models.ScoringPPR,
			DraftFormat:   models.FormatSnake,
		},
		Simulation: SimulationDefaults{Simulations: draft.DefaultSimulations, Noise: true},
	}
}

// Load reads an optional .env file, then the environment, then LEAGUE_FILE
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the current environment without reading .env
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	league, err := LoadLeague(cfg.LeagueFile)
	if err != nil {
		return nil, err
	}
	cfg.League = league

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLeague reads a league TOML file over the defaults. A missing file is not an error.
func LoadLeague(path string) (LeagueFile, error) {
	league := DefaultLeague()
	if path == "" {
		return league, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return league, nil
	}
	if err != nil {
		return league, fmt.Errorf("read league file: %w", err)
	}
	if err := toml.Unmarshal(data, &league); err != nil {
		return league, fmt.Errorf("parse league file: %w", err)
	}

	league.League, err = draft.NormalizeSettings(league.League)
	if err != nil {
		return league, fmt.Errorf("league file %s: %w", path, err)
	}
	if league.Simulation.Simulations < 0 || league.Simulation.Simulations > draft.MaxSimulations {
		return league, fmt.Errorf("league file %s: simulations must be between 0 and %d", path, draft.MaxSimulations)
	}
	return league, nil
}

// Validate rejects combinations the service cannot start with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "memory", "sqlite":
	case "postgres":
		// Development falls back to the SQLite-backed postgres stand-in
		if c.DatabaseURL == "" && !c.DevMode() {
			return errors.New("DATABASE_URL environment variable is required for postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER: %s (valid: memory, sqlite, postgres)", c.DBDriver)
	}

	if c.Advisor.TokenURL != "" && (c.Advisor.ClientID == "" || c.Advisor.ClientSecret == "") {
		return errors.New("ADVISOR_CLIENT_ID and ADVISOR_CLIENT_SECRET are required with ADVISOR_TOKEN_URL")
	}
	if c.Advisor.Timeout <= 0 {
		return fmt.Errorf("invalid ADVISOR_TIMEOUT %s", c.Advisor.Timeout)
	}
	switch c.NATSMode() {
	case "embedded", "remote", "memory":
	default:
		return fmt.Errorf("unknown NATS_MODE: %s (valid: embedded, remote, memory)", c.NATS.Mode)
	}
	if c.SimConcurrency < 0 {
		return fmt.Errorf("SIM_CONCURRENCY cannot be negative: %d", c.SimConcurrency)
	}
	return nil
}

// DevMode reports whether embedded infrastructure should be used
func (c *Config) DevMode() bool {
	mode := strings.ToLower(c.Environment)
	return mode == "" || mode == "development"
}

// NATSMode resolves the event upstream for this environment
func (c *Config) NATSMode() string {
	if mode := strings.ToLower(c.NATS.Mode); mode != "" {
		return mode
	}
	if c.DevMode() {
		return "embedded"
	}
	return "remote"
}

// AdvisorOptions converts the advisor settings for advisor.NewHTTP
func (c *Config) AdvisorOptions() advisor.Options {
	opts := advisor.Options{
		Endpoint:     c.Advisor.URL,
		TokenURL:     c.Advisor.TokenURL,
		ClientID:     c.Advisor.ClientID,
		ClientSecret: c.Advisor.ClientSecret,
		Scopes:       c.Advisor.Scopes,
		Timeout:      c.Advisor.Timeout,
	}
	if c.Advisor.RatePerSec > 0 {
		opts.RateLimit = rate.Limit(c.Advisor.RatePerSec)
	}
	return opts
}
