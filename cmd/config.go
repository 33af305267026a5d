package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"order-etl/internal/cache"
	"order-etl/internal/extract"
)

// AppConfig mirrors order-etl.yaml. Connection credentials are not part of
// it; they come from the <PREFIX>_* environment variables.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Load     LoadConfig     `mapstructure:"load"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"`
	EnvPrefix string `mapstructure:"env_prefix"`
	Demo      bool   `mapstructure:"demo"`
}

type SourceConfig struct {
	Kind       string        `mapstructure:"kind"`
	BaseURL    string        `mapstructure:"base_url"`
	Dir        string        `mapstructure:"dir"`
	Delimiter  string        `mapstructure:"delimiter"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Datasets   []string      `mapstructure:"datasets"`
	FakeSeed   int64         `mapstructure:"fake_seed"`
	FakeOrders int           `mapstructure:"fake_orders"`
}

type CacheConfig struct {
	Driver string   `mapstructure:"driver"`
	Dir    string   `mapstructure:"dir"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	PathStyle bool   `mapstructure:"path_style"`
}

type LoadConfig struct {
	BatchRows int `mapstructure:"batch_rows"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.env_prefix", "POSTGRES")
	v.SetDefault("database.demo", false)

	v.SetDefault("source.kind", "http")
	v.SetDefault("source.base_url", extract.DefaultBaseURL)
	v.SetDefault("source.dir", "data")
	v.SetDefault("source.delimiter", ",")
	v.SetDefault("source.timeout", 10*time.Second)
	v.SetDefault("source.datasets", extract.Datasets)
	v.SetDefault("source.fake_seed", 1)
	v.SetDefault("source.fake_orders", 50)

	v.SetDefault("cache.driver", cache.DriverFS)
	v.SetDefault("cache.dir", "data")
	v.SetDefault("cache.s3.bucket", "")
	v.SetDefault("cache.s3.region", "")
	v.SetDefault("cache.s3.endpoint", "")
	v.SetDefault("cache.s3.prefix", "")
	v.SetDefault("cache.s3.path_style", false)

	v.SetDefault("load.batch_rows", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.textfile", "")
}

// LoadAppConfig decodes the merged flag, env, file and default values.
func LoadAppConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Source.Timeout <= 0 {
		return nil, fmt.Errorf("source.timeout must be positive, got %s", cfg.Source.Timeout)
	}
	if cfg.Load.BatchRows < 0 {
		return nil, fmt.Errorf("load.batch_rows must not be negative, got %d", cfg.Load.BatchRows)
	}
	if len(cfg.Source.Datasets) == 0 {
		cfg.Source.Datasets = extract.Datasets
	}
	cfg.Database.EnvPrefix = strings.ToUpper(strings.TrimSuffix(cfg.Database.EnvPrefix, "_"))
	return &cfg, nil
}

// DelimiterRune returns the first rune of the configured delimiter, or ','.
func (s SourceConfig) DelimiterRune() rune {
	for _, r := range s.Delimiter {
		return r
	}
	return ','
}

func (c CacheConfig) storeConfig() cache.Config {
	return cache.Config{
		Driver: c.Driver,
		Dir:    c.Dir,
		S3: cache.S3Config{
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			Prefix:    c.S3.Prefix,
			PathStyle: c.S3.PathStyle,
		},
	}
}
