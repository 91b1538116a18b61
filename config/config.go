package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultTargetURL is the eNAM trade-data dashboard
const DefaultTargetURL = "https://enam.gov.in/web/dashboard/trade-data"

const (
	// DriverRod drives a headless Chrome through go-rod
	DriverRod = "rod"
	// DriverStatic fetches server-rendered pages with colly and follows Next links
	DriverStatic = "static"
)

// Config is the whole runtime configuration, built once at startup
type Config struct {
	Server ServerConfig `yaml:"server"`
	Scrape ScrapeConfig `yaml:"scrape"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig controls the HTTP listeners
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Debug       bool   `yaml:"debug"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// ScrapeConfig controls the browser session and the pagination loop
type ScrapeConfig struct {
	TargetURL     string   `yaml:"target_url"`
	Driver        string   `yaml:"driver"`
	Headless      bool     `yaml:"headless"`
	BrowserBin    string   `yaml:"browser_bin"`
	ReadySelector string   `yaml:"ready_selector"`
	NextText      string   `yaml:"next_text"`
	ReadyTimeout  Duration `yaml:"ready_timeout"`
	PageTimeout   Duration `yaml:"page_timeout"`
	PollInterval  Duration `yaml:"poll_interval"`
	SettleDelay   Duration `yaml:"settle_delay"`
	ScrapeTimeout Duration `yaml:"scrape_timeout"`
	MaxPages      int      `yaml:"max_pages"`
	PoolSize      int      `yaml:"pool_size"`
}

// LogConfig controls zerolog output
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Duration lets YAML carry values like "5s" or "250ms"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// GetDefaultConfig returns the configuration used when no file is present
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        5000,
			Debug:       true,
			MetricsAddr: ":9090",
		},
		Scrape: ScrapeConfig{
			TargetURL:     DefaultTargetURL,
			Driver:        DriverRod,
			Headless:      true,
			ReadySelector: "table > tbody > tr",
			NextText:      "Next",
			ReadyTimeout:  Duration(5 * time.Second),
			PageTimeout:   Duration(3 * time.Second),
			PollInterval:  Duration(250 * time.Millisecond),
			PoolSize:      2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load builds the startup configuration: defaults, then the YAML file if it
// exists, then a .env file, then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := GetDefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg, err = LoadConfig(path)
			if err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	var errs []error
	setInt := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *Duration) {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
				return
			}
			*dst = Duration(d)
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	setInt("PORT", &c.Server.Port)
	setBool("MANDI_DEBUG", &c.Server.Debug)
	// An explicitly empty MANDI_METRICS_ADDR disables the metrics listener
	if v, ok := lookup("MANDI_METRICS_ADDR"); ok {
		c.Server.MetricsAddr = strings.TrimSpace(v)
	}

	setString("MANDI_TARGET_URL", &c.Scrape.TargetURL)
	setString("MANDI_DRIVER", &c.Scrape.Driver)
	setBool("MANDI_HEADLESS", &c.Scrape.Headless)
	setString("MANDI_BROWSER_BIN", &c.Scrape.BrowserBin)
	setDuration("MANDI_READY_TIMEOUT", &c.Scrape.ReadyTimeout)
	setDuration("MANDI_PAGE_TIMEOUT", &c.Scrape.PageTimeout)
	setDuration("MANDI_SCRAPE_TIMEOUT", &c.Scrape.ScrapeTimeout)
	setInt("MANDI_MAX_PAGES", &c.Scrape.MaxPages)
	setInt("MANDI_POOL_SIZE", &c.Scrape.PoolSize)

	setString("LOG_LEVEL", &c.Log.Level)
	setBool("LOG_PRETTY", &c.Log.Pretty)

	return errors.Join(errs...)
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	if c.Scrape.TargetURL == "" {
		errs = append(errs, errors.New("scrape.target_url is required"))
	} else if u, err := url.Parse(c.Scrape.TargetURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("scrape.target_url %q is not an absolute URL", c.Scrape.TargetURL))
	}

	switch c.Scrape.Driver {
	case DriverRod, DriverStatic:
	default:
		errs = append(errs, fmt.Errorf("scrape.driver %q is not one of %q, %q", c.Scrape.Driver, DriverRod, DriverStatic))
	}

	if strings.TrimSpace(c.Scrape.ReadySelector) == "" {
		errs = append(errs, errors.New("scrape.ready_selector is required"))
	}
	if strings.TrimSpace(c.Scrape.NextText) == "" {
		errs = append(errs, errors.New("scrape.next_text is required"))
	}
	if c.Scrape.PollInterval <= 0 {
		errs = append(errs, errors.New("scrape.poll_interval must be positive"))
	}
	for name, d := range map[string]Duration{
		"scrape.ready_timeout":  c.Scrape.ReadyTimeout,
		"scrape.page_timeout":   c.Scrape.PageTimeout,
		"scrape.settle_delay":   c.Scrape.SettleDelay,
		"scrape.scrape_timeout": c.Scrape.ScrapeTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Scrape.MaxPages < 0 {
		errs = append(errs, errors.New("scrape.max_pages must not be negative"))
	}
	if c.Scrape.PoolSize < 1 {
		errs = append(errs, errors.New("scrape.pool_size must be at least 1"))
	}

	return errors.Join(errs...)
}

// LogLevel returns the effective log level; debug mode forces debug unless a
// level was set explicitly.
func (c *Config) LogLevel() string {
	if c.Server.Debug && (c.Log.Level == "" || c.Log.Level == "info") {
		return "debug"
	}
	return c.Log.Level
}
