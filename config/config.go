package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/eld/core/dispatch"
	"github.com/kilianp07/eld/core/metrics"
	"github.com/kilianp07/eld/core/model"
	"github.com/kilianp07/eld/infra/logger"
	"github.com/kilianp07/eld/infra/mqtt"
	"github.com/kilianp07/eld/pkg/export"
)

type Config struct {
	Fleet    model.Fleet            `json:"fleet"`
	Dispatch dispatch.Config        `json:"dispatch"`
	Forecast export.ForecastColumns `json:"forecast"`
	MQTT     mqtt.Config            `json:"mqtt"`
	Metrics  metrics.Config         `json:"metrics"`
	Logging  LoggingConfig          `json:"logging"`
	Log      logger.Settings        `json:"log"`
	API      APIConfig              `json:"api"`
}

// APIConfig configures the HTTP surface of the serve command.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token protects the dispatch log endpoint when set.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Dispatch.SetDefaults()
	c.Forecast.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := dispatch.ValidateFleet(c.Fleet); err != nil {
		return fmt.Errorf("fleet: %w", err)
	}
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
