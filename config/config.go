package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	}
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	AI       AIConfig       `mapstructure:"ai"`
}

// PlannerConfig holds the tunables of the planning pipeline. The importance
// threshold and both radii drive the radius policy and must stay overridable
// without a code change.
type PlannerConfig struct {
	ImportanceThreshold   float64       `mapstructure:"importanceThreshold"`
	MegacityRadiusKm      float64       `mapstructure:"megacityRadiusKm"`
	RegionalRadiusKm      float64       `mapstructure:"regionalRadiusKm"`
	RadiusExpansionFactor float64       `mapstructure:"radiusExpansionFactor"`
	KeywordsPerDay        int           `mapstructure:"keywordsPerDay"`
	MinKeywords           int           `mapstructure:"minKeywords"`
	MaxConcurrentLookups  int           `mapstructure:"maxConcurrentLookups"`
	DefaultDurationDays   int           `mapstructure:"defaultDurationDays"`
	SessionTTL            time.Duration `mapstructure:"sessionTTL"`
	CleanupInterval       time.Duration `mapstructure:"cleanupInterval"`
}

type GeocoderConfig struct {
	BaseURL       string        `mapstructure:"baseURL"`
	UserAgent     string        `mapstructure:"userAgent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MinRequestGap time.Duration `mapstructure:"minRequestGap"`
	MaxCandidates int           `mapstructure:"maxCandidates"`
	MaxRetries    int           `mapstructure:"maxRetries"`
}

type AIConfig struct {
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"maxRetries"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
