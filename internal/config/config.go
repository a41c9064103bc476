package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine      EngineConfig      `yaml:"engine" mapstructure:"engine"`
	Suppression SuppressionConfig `yaml:"suppression" mapstructure:"suppression"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Meta        MetaConfig        `yaml:"meta" mapstructure:"meta"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// EngineConfig configures the external Java validation engine.
type EngineConfig struct {
	JavaBin     string `yaml:"java_bin" mapstructure:"java_bin"`
	JarPath     string `yaml:"jar_path" mapstructure:"jar_path"`
	Scenarios   string `yaml:"scenarios" mapstructure:"scenarios"`
	Repository  string `yaml:"repository" mapstructure:"repository"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SuppressionConfig configures the dependency suppression map.
type SuppressionConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port          int     `yaml:"port" mapstructure:"port"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// MetaConfig identifies the engine build in response envelopes.
type MetaConfig struct {
	Engine   string `yaml:"engine" mapstructure:"engine"`
	RulesTag string `yaml:"rules_tag" mapstructure:"rules_tag"`
	Commit   string `yaml:"commit" mapstructure:"commit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INVOICEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.java_bin", "java")
	v.SetDefault("engine.jar_path", "validationtool.jar")
	v.SetDefault("engine.scenarios", "scenarios.xml")
	v.SetDefault("engine.timeout_secs", 120)
	v.SetDefault("suppression.path", "dependencies.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("batch.max_concurrent_documents", 5)
	v.SetDefault("meta.engine", "KoSIT validator")
	v.SetDefault("meta.rules_tag", "unknown")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
