// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	glog "github.com/labstack/gommon/log"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// StoreURL selects the storage backend for synced characters, see store.Open.
	StoreURL string `env:"STORE_URL" envDefault:"file://data"`

	ImageDir      string        `env:"IMAGE_DIR" envDefault:"images"`
	ImageCacheTTL time.Duration `env:"IMAGE_CACHE_TTL" envDefault:"1h"`
	MaxUploadMB   int64         `env:"MAX_UPLOAD_MB" envDefault:"16"`

	// AdminToken guards destructive endpoints. Empty disables them.
	AdminToken string `env:"ADMIN_TOKEN"`

	OwlbearOrigin string `env:"OWLBEAR_ORIGIN" envDefault:"https://www.owlbear.rodeo"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// FromMap parses a fixed set of variables, ignoring the process environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.MaxUploadMB <= 0 {
		return cfg, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Level maps LOG_LEVEL onto the structured logger, defaulting to info.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// EchoLevel maps LOG_LEVEL onto echo's request logger.
func (c Config) EchoLevel() glog.Lvl {
	switch c.Level() {
	case log.DebugLevel:
		return glog.DEBUG
	case log.WarnLevel:
		return glog.WARN
	case log.ErrorLevel, log.FatalLevel:
		return glog.ERROR
	}
	return glog.INFO
}
