// Package config loads server configuration from a TOML file with
// environment overrides. Policy thresholds for classification and selection
// live here so deployments can retune them without a rebuild; the defaults
// are the tuned production values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Engine     EngineConfig     `toml:"engine"`
	Classifier ClassifierConfig `toml:"classifier"`
	Generator  GeneratorConfig  `toml:"generator"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig selects and configures the profile/inventory store.
// Driver is "postgres" or "sqlite"; sqlite runs embedded and needs only
// a file path.
type DatabaseConfig struct {
	Driver     string `toml:"driver"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	Name       string `toml:"name"`
	SSLMode    string `toml:"sslmode"`
	SQLitePath string `toml:"sqlite_path"`
}

// EngineConfig holds selection policy for the recommendation engine.
type EngineConfig struct {
	PoolSize          int     `toml:"pool_size"`
	SkillBandWidth    float64 `toml:"skill_band_width"`
	BandRelaxStep     float64 `toml:"band_relax_step"`
	EasyCeiling       float64 `toml:"easy_ceiling"`
	ChallengeMargin   float64 `toml:"challenge_margin"`
	ChallengeFloor    float64 `toml:"challenge_floor"`
	StrengthSampleMin int     `toml:"strength_sample_min"`
	StorageTimeoutMs  int     `toml:"storage_timeout_ms"`
	RNGSeed           int64   `toml:"rng_seed"`
}

// ClassifierConfig holds the behavioral state thresholds. Values are tuned
// empirically; the relative ordering of the rate bands must be preserved.
type ClassifierConfig struct {
	NewUserThreshold    int     `toml:"new_user_threshold"`
	SevereRate          float64 `toml:"severe_rate"`
	StrugglingRate      float64 `toml:"struggling_rate"`
	ProgressRate        float64 `toml:"progress_rate"`
	ExcelRate           float64 `toml:"excel_rate"`
	ExpertRate          float64 `toml:"expert_rate"`
	ExpertDifficulty    float64 `toml:"expert_difficulty"`
	TrendDeadBand       float64 `toml:"trend_dead_band"`
	SlowResponseMs      int     `toml:"slow_response_ms"`
	ChildSkillCeiling   float64 `toml:"child_skill_ceiling"`
	ChildSampleMin      int     `toml:"child_sample_min"`
	ChildSampleMax      int     `toml:"child_sample_max"`
	ChildMathCeiling    float64 `toml:"child_math_ceiling"`
	CrisisFailures      int     `toml:"crisis_failures"`
	DisengagedBelow     float64 `toml:"disengaged_below"`
	PowerDependentAbove float64 `toml:"power_dependent_above"`
	LongSessionMinutes  int     `toml:"long_session_minutes"`
	SessionDeclineDrop  float64 `toml:"session_decline_drop"`
}

// GeneratorConfig controls puzzle generation and the inventory worker.
type GeneratorConfig struct {
	Model             string `toml:"model"`
	ValidationModel   string `toml:"validation_model"`
	MaxTokens         int    `toml:"max_tokens"`
	Mock              bool   `toml:"mock"`
	ValidationEnabled bool   `toml:"validation_enabled"`
	AmbiguityEnabled  bool   `toml:"ambiguity_enabled"`
	MinStock          int    `toml:"min_stock"`
	BatchSize         int    `toml:"batch_size"`
	WorkerInterval    int    `toml:"worker_interval_seconds"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the tuned production defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       5432,
			User:       "postgres",
			Password:   "postgres",
			Name:       "puzzlemind",
			SSLMode:    "disable",
			SQLitePath: "puzzlemind.db",
		},
		Engine: EngineConfig{
			PoolSize:          10,
			SkillBandWidth:    0.1,
			BandRelaxStep:     0.1,
			EasyCeiling:       0.4,
			ChallengeMargin:   0.15,
			ChallengeFloor:    0.7,
			StrengthSampleMin: 25,
			StorageTimeoutMs:  2000,
		},
		Classifier: ClassifierConfig{
			NewUserThreshold:    10,
			SevereRate:          0.3,
			StrugglingRate:      0.5,
			ProgressRate:        0.6,
			ExcelRate:           0.8,
			ExpertRate:          0.9,
			ExpertDifficulty:    0.7,
			TrendDeadBand:       0.05,
			SlowResponseMs:      8000,
			ChildSkillCeiling:   0.55,
			ChildSampleMin:      10,
			ChildSampleMax:      50,
			ChildMathCeiling:    0.6,
			CrisisFailures:      3,
			DisengagedBelow:     0.4,
			PowerDependentAbove: 0.6,
			LongSessionMinutes:  25,
			SessionDeclineDrop:  0.10,
		},
		Generator: GeneratorConfig{
			Model:             "claude-opus-4-5-20251101",
			ValidationModel:   "claude-sonnet-4-5-20250929",
			MaxTokens:         8192,
			ValidationEnabled: true,
			AmbiguityEnabled:  true,
			MinStock:          5,
			BatchSize:         3,
			WorkerInterval:    30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given path, falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("DB_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MOCK_GENERATOR"); v == "true" || v == "1" {
		cfg.Generator.Mock = true
	}
	if os.Getenv("VALIDATION_ENABLED") == "false" {
		cfg.Generator.ValidationEnabled = false
	}
	if os.Getenv("AMBIGUITY_ENABLED") == "false" {
		cfg.Generator.AmbiguityEnabled = false
	}

	// Validation needs a live model behind it
	if cfg.Generator.Mock {
		cfg.Generator.ValidationEnabled = false
		cfg.Generator.AmbiguityEnabled = false
	}
}

// DSN builds the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
