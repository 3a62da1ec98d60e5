package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLabels is the set of issue labels propagated to tasks.
var DefaultLabels = []string{"bug", "enhancement", "critical", "size: small", "size: medium", "size: large"}

// Amount units understood by the transaction formatter.
const (
	AmountUnitMinor = "minor" // two fractional digits
	AmountUnitMilli = "milli" // three fractional digits, the last one dropped
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config is the complete service configuration. It is loaded once and passed by value.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Server      ServerConfig      `yaml:"server"`
	GitHub      GitHubConfig      `yaml:"github"`
	Todoist     TodoistConfig     `yaml:"todoist"`
	YNAB        YNABConfig        `yaml:"ynab"`
	Poller      PollerConfig      `yaml:"poller"`
	Transformer TransformerConfig `yaml:"transformer"`
	Store       StoreConfig       `yaml:"store"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// GitHubConfig drives issue reconciliation
type GitHubConfig struct {
	OwnerLogin string   `yaml:"owner_login"` // only issues assigned to this login are tracked
	Labels     []string `yaml:"labels"`      // label whitelist
}

// APIConfig is shared by the outbound API clients
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
}

// TodoistConfig configures the task manager client
type TodoistConfig struct {
	APIConfig     `yaml:",inline"`
	OwedProjectID string `yaml:"owed_project_id"` // project receiving money-owed tasks
}

// YNABConfig configures the ledger client and transaction rules
type YNABConfig struct {
	APIConfig    `yaml:",inline"`
	Budgets      []string `yaml:"budgets"`
	CategoryName string   `yaml:"category_name"`
	AmountUnit   string   `yaml:"amount_unit"`
}

// PollerConfig configures the scheduled ledger poll
type PollerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Interval       time.Duration `yaml:"interval"`
	Endpoint       string        `yaml:"endpoint"` // downstream webhook receiving the aggregate
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	Lock           bool          `yaml:"lock"` // take a store-backed lock around each cycle
	LockTTL        time.Duration `yaml:"lock_ttl"`
}

// TransformerConfig configures the downstream transaction webhook
type TransformerConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	Dedup          bool          `yaml:"dedup"`
	DedupTTL       time.Duration `yaml:"dedup_ttl"`
}

// StoreConfig selects the key-value backend
type StoreConfig struct {
	Driver       string        `yaml:"driver"`
	Namespace    string        `yaml:"namespace"`
	RedisAddr    string        `yaml:"redis_addr"`
	RedisDB      int           `yaml:"redis_db"`
	PostgresDSN  string        `yaml:"postgres_dsn"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// Default returns the configuration used when no file is supplied
func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 25 * time.Second,
		},
		GitHub: GitHubConfig{
			Labels: append([]string(nil), DefaultLabels...),
		},
		Todoist: TodoistConfig{
			APIConfig: APIConfig{
				BaseURL: "https://api.todoist.com/rest/v2",
				Timeout: 10 * time.Second,
				RPS:     5,
				Burst:   10,
			},
			OwedProjectID: "2230293849",
		},
		YNAB: YNABConfig{
			APIConfig: APIConfig{
				BaseURL: "https://api.ynab.com/v1",
				Timeout: 15 * time.Second,
				RPS:     1,
				Burst:   5,
			},
			CategoryName: "Money Owed",
			AmountUnit:   AmountUnitMinor,
		},
		Poller: PollerConfig{
			Enabled:        true,
			Interval:       5 * time.Minute,
			Endpoint:       "http://127.0.0.1:8080/ynab-to-todoist",
			Timeout:        2 * time.Minute,
			MaxConcurrency: 4,
			LockTTL:        4 * time.Minute,
		},
		Transformer: TransformerConfig{
			MaxConcurrency: 8,
			DedupTTL:       30 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Driver:       StoreMemory,
			Namespace:    "ynab",
			QueryTimeout: 5 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults (path may be empty) and applies
// environment overrides from the process environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := getenv("TASKBRIDGE_OWNER_LOGIN"); v != "" {
		c.GitHub.OwnerLogin = v
	}
	if v := getenv("YNAB_BUDGETS"); v != "" {
		c.YNAB.Budgets = splitList(v)
	}
	if v := getenv("TASKBRIDGE_POLL_ENDPOINT"); v != "" {
		c.Poller.Endpoint = v
	}
	if v := getenv("TASKBRIDGE_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
		if getenv("TASKBRIDGE_STORE_DRIVER") == "" {
			c.Store.Driver = StoreRedis
		}
	}
	if v := getenv("PG_DSN"); v != "" {
		c.Store.PostgresDSN = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate ensures the configuration is valid and consistent
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.GitHub.OwnerLogin == "" {
		return fmt.Errorf("github owner_login cannot be empty")
	}
	if c.Todoist.BaseURL == "" || c.YNAB.BaseURL == "" {
		return fmt.Errorf("api base_url cannot be empty")
	}
	if c.Todoist.OwedProjectID == "" {
		return fmt.Errorf("todoist owed_project_id cannot be empty")
	}
	if c.YNAB.CategoryName == "" {
		return fmt.Errorf("ynab category_name cannot be empty")
	}
	switch c.YNAB.AmountUnit {
	case AmountUnitMinor, AmountUnitMilli:
	default:
		return fmt.Errorf("ynab amount_unit must be %q or %q, got %q", AmountUnitMinor, AmountUnitMilli, c.YNAB.AmountUnit)
	}
	if c.Poller.Enabled {
		if c.Poller.Interval <= 0 {
			return fmt.Errorf("poller interval must be positive, got %s", c.Poller.Interval)
		}
		if c.Poller.Endpoint == "" {
			return fmt.Errorf("poller endpoint cannot be empty")
		}
	}
	if c.Poller.MaxConcurrency <= 0 || c.Transformer.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive")
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store redis_addr is required for the redis driver")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
