// Package config provides configuration management for the clustering service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Infomap   InfomapConfig   `mapstructure:"infomap"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	APM       APMConfig       `mapstructure:"apm"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// InfomapConfig holds every engine tunable a run can override, one field
// per option row a CLI flag or config file entry maps to.
type InfomapConfig struct {
	DataDir                        string  `mapstructure:"data_dir"`
	MaxWorker                      int     `mapstructure:"max_worker"`
	TwoLevel                       bool    `mapstructure:"two_level"`
	NumTrials                      int     `mapstructure:"num_trials"`
	Seed                           int64   `mapstructure:"seed"`
	FlowModel                      string  `mapstructure:"flow_model"`
	TeleportationProbability       float64 `mapstructure:"teleportation_probability"`
	TeleportToNodes                bool    `mapstructure:"teleport_to_nodes"`
	MarkovTime                     float64 `mapstructure:"markov_time"`
	CoreLoopLimit                  int     `mapstructure:"core_loop_limit"`
	TuneIterationLimit             int     `mapstructure:"tune_iteration_limit"`
	MinImprovement                 float64 `mapstructure:"min_improvement"`
	TuneIterationRelativeThreshold float64 `mapstructure:"tune_iteration_relative_threshold"`
	FastHierarchicalSolution       int     `mapstructure:"fast_hierarchical_solution"`
	PreferModularSolution          bool    `mapstructure:"prefer_modular_solution"`
	MultilayerRelaxRate            float64 `mapstructure:"multilayer_relax_rate"`
	MultilayerRelaxLimit           int     `mapstructure:"multilayer_relax_limit"`
	MultilayerRelaxLimitUp         int     `mapstructure:"multilayer_relax_limit_up"`
	MultilayerRelaxLimitDown       int     `mapstructure:"multilayer_relax_limit_down"`
	PreferredNumberOfModules       int     `mapstructure:"preferred_number_of_modules"`
	Gamma                          float64 `mapstructure:"gamma"`
	MetaDataRate                   float64 `mapstructure:"meta_data_rate"`
	MetaDataUnweighted             bool    `mapstructure:"meta_data_unweighted"`
	IncludeSelfLinks               bool    `mapstructure:"include_self_links"`
	WeightThreshold                float64 `mapstructure:"weight_threshold"`
	InnerParallelization           bool    `mapstructure:"inner_parallelization"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres, or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// APMConfig holds APM callback configuration.
type APMConfig struct {
	URL           string `mapstructure:"url"`
	RequestYunAPI bool   `mapstructure:"request_yunapi"`
	Enabled       bool   `mapstructure:"enabled"`
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	PollInterval  int `mapstructure:"poll_interval"` // in seconds
	WorkerCount   int `mapstructure:"worker_count"`
	PrioritySlots int `mapstructure:"priority_slots"`
	TaskBatchSize int `mapstructure:"task_batch_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Determine config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/infomap-go")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Check if it's a "file not found" error (either viper's type or os error)
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			// File specified but doesn't exist, use defaults
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Allow environment variables to override config
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration of the given type (e.g. "yaml") from
// an in-memory byte slice (useful for testing). Unlike Load, it does not
// run Validate.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Infomap defaults
	v.SetDefault("infomap.data_dir", "./data")
	v.SetDefault("infomap.max_worker", 5)
	v.SetDefault("infomap.num_trials", 1)
	v.SetDefault("infomap.seed", 123)
	v.SetDefault("infomap.flow_model", "directed")
	v.SetDefault("infomap.teleportation_probability", 0.15)
	v.SetDefault("infomap.markov_time", 1.0)
	v.SetDefault("infomap.core_loop_limit", 0)
	v.SetDefault("infomap.tune_iteration_limit", 0)
	v.SetDefault("infomap.min_improvement", 1e-10)
	v.SetDefault("infomap.fast_hierarchical_solution", 0)
	v.SetDefault("infomap.gamma", 0.0)
	v.SetDefault("infomap.meta_data_rate", 1.0)
	v.SetDefault("infomap.weight_threshold", 0.0)

	// Database defaults: sqlite needs no server to get a run-history
	// database working out of the box; postgres/mysql are opt-in via
	// config for a shared multi-worker deployment.
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.database", "./data/infomap.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval", 2)
	v.SetDefault("scheduler.worker_count", 5)
	v.SetDefault("scheduler.priority_slots", 2)
	v.SetDefault("scheduler.task_batch_size", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate database config. sqlite (the default) is file-backed and
	// needs no host; postgres/mysql need one to dial out to a server.
	switch c.Database.Type {
	case "", "sqlite":
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// Storage config validation is delegated to internal/netstore

	// Validate scheduler config
	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Infomap.NumTrials < 0 {
		return fmt.Errorf("num_trials must not be negative")
	}
	if c.Infomap.TeleportationProbability < 0 || c.Infomap.TeleportationProbability > 1 {
		return fmt.Errorf("teleportation_probability must be in [0, 1]")
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Infomap.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Infomap.DataDir, 0755)
}

// GetJobDir returns the job-specific directory path for storing an
// individual clustering run's input and output files.
func (c *Config) GetJobDir(jobUUID string) string {
	return filepath.Join(c.Infomap.DataDir, jobUUID)
}
