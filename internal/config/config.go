package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/customk9/booking-gateway/internal/domain"
)

const (
	configName = "bookingd"
	configType = "toml"
	configDir  = ".bookingd"
	envPrefix  = "BOOKINGD"
)

type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Backend struct {
	URL            string        `mapstructure:"url"`
	Database       string        `mapstructure:"database"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type Session struct {
	TTL           time.Duration `mapstructure:"ttl"`
	StatePath     string        `mapstructure:"state_path"`
	SigningSecret string        `mapstructure:"signing_secret"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	AdminLogin    string        `mapstructure:"admin_login"`
	AdminSecret   string        `mapstructure:"admin_secret"`
}

type Hours struct {
	Open  string `mapstructure:"open"`
	Close string `mapstructure:"close"`
}

type Config struct {
	Server  Server  `mapstructure:"server"`
	Backend Backend `mapstructure:"backend"`
	Session Session `mapstructure:"session"`
	Hours   Hours   `mapstructure:"hours"`
}

// Load reads configuration from an optional .env file, the TOML config
// file and BOOKINGD_* environment variables, in increasing precedence.
func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(".")
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	setDefaults(cfg, homeDir)

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var out Config
	if err := cfg.Unmarshal(&out); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func setDefaults(cfg *viper.Viper, homeDir string) {
	cfg.SetDefault("server.addr", ":8080")
	cfg.SetDefault("server.shutdown_timeout", 10*time.Second)
	cfg.SetDefault("backend.request_timeout", 30*time.Second)
	cfg.SetDefault("session.ttl", 12*time.Hour)
	cfg.SetDefault("session.max_age", 24*time.Hour)
	cfg.SetDefault("session.state_path", filepath.Join(homeDir, configDir, "session.toml"))
	cfg.SetDefault("hours.open", "09:00")
	cfg.SetDefault("hours.close", "17:00")
}

func (c Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("config: backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: backend.url %q is not a valid http(s) URL", c.Backend.URL)
	}
	if c.Backend.Database == "" {
		return errors.New("config: backend.database is required")
	}
	if c.Session.SigningSecret == "" {
		return errors.New("config: session.signing_secret is required")
	}
	if _, err := c.BusinessHours(); err != nil {
		return err
	}
	return nil
}

// BusinessHours parses the configured opening hours into midnight offsets.
func (c Config) BusinessHours() (domain.BusinessHours, error) {
	open, err := parseClock(c.Hours.Open)
	if err != nil {
		return domain.BusinessHours{}, fmt.Errorf("config: hours.open: %w", err)
	}
	close, err := parseClock(c.Hours.Close)
	if err != nil {
		return domain.BusinessHours{}, fmt.Errorf("config: hours.close: %w", err)
	}
	if close <= open {
		return domain.BusinessHours{}, errors.New("config: hours.close must be after hours.open")
	}
	return domain.BusinessHours{Open: open, Close: close}, nil
}

// AdminCredential returns the privileged credential, which may be empty
// when the deployment has no service account configured.
func (c Config) AdminCredential() domain.Credential {
	return domain.Credential{Login: c.Session.AdminLogin, Secret: c.Session.AdminSecret}
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse %q as HH:MM: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
