// Package config resolves runtime settings from defaults, an optional YAML
// file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConnectionString = "mongodb://localhost:27017"
	DefaultDatabaseName     = "ElevatorDB"
	DefaultCollection       = "ElevatorLogs"
	DefaultConfigPath       = "config.yaml"
	DefaultEnvPath          = ".env"
)

// Config holds every tunable of the process.
type Config struct {
	Port      string          `yaml:"port"`
	LogLevel  string          `yaml:"logLevel"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Elevator  ElevatorConfig  `yaml:"elevator"`
	LogWriter LogWriterConfig `yaml:"logWriter"`
}

type MongoConfig struct {
	ConnectionString string        `yaml:"connectionString"`
	DatabaseName     string        `yaml:"databaseName"`
	Collection       string        `yaml:"collection"`
	ConnectTimeout   time.Duration `yaml:"connectTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
}

type ElevatorConfig struct {
	ID             string        `yaml:"id"`
	Floors         int           `yaml:"floors"`
	StartFloor     int           `yaml:"startFloor"`
	FloorSpacing   float64       `yaml:"floorSpacing"`
	FloorPositions []float64     `yaml:"floorPositions"` // optional, overrides spacing
	SpeedPerTick   float64       `yaml:"speedPerTick"`
	TickInterval   time.Duration `yaml:"tickInterval"`
	DwellTime      time.Duration `yaml:"dwellTime"`
}

type LogWriterConfig struct {
	BatchSize       int           `yaml:"batchSize"`
	IdleInterval    time.Duration `yaml:"idleInterval"`
	BackoffInterval time.Duration `yaml:"backoffInterval"`
	RetryInterval   time.Duration `yaml:"retryInterval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Mongo: MongoConfig{
			ConnectionString: DefaultConnectionString,
			DatabaseName:     DefaultDatabaseName,
			Collection:       DefaultCollection,
			ConnectTimeout:   3 * time.Second,
			WriteTimeout:     5 * time.Second,
		},
		Elevator: ElevatorConfig{
			ID:           "car-1",
			Floors:       4,
			StartFloor:   1,
			FloorSpacing: 3.0,
			SpeedPerTick: 0.08,
			TickInterval: 16 * time.Millisecond,
			DwellTime:    800 * time.Millisecond,
		},
		LogWriter: LogWriterConfig{
			BatchSize:       32,
			IdleInterval:    100 * time.Millisecond,
			BackoffInterval: time.Second,
			RetryInterval:   300 * time.Millisecond,
		},
	}
}

// Load builds the configuration. A missing or unreadable file never prevents
// startup: the returned Config is always usable and the error only reports
// what was skipped.
func Load(path, envPath string) (Config, error) {
	cfg := Default()
	var errs []error

	if path == "" {
		path = os.Getenv("ELEVATOR_CONFIG")
	}
	if path == "" {
		path = DefaultConfigPath
	}
	if err := cfg.loadFile(path); err != nil {
		errs = append(errs, err)
	}

	if envPath == "" {
		envPath = DefaultEnvPath
	}
	// godotenv.Load never overrides variables already present in the environment.
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("load env file %s: %w", envPath, err))
	}
	if err := cfg.applyEnv(); err != nil {
		errs = append(errs, err)
	}

	cfg.fillDefaults()
	return cfg, errors.Join(errs...)
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	fileCfg := *c
	if err := yaml.NewDecoder(f).Decode(&fileCfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	*c = fileCfg
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ELEVATOR_MONGO_URI"); v != "" {
		c.Mongo.ConnectionString = v
	}
	if v := os.Getenv("ELEVATOR_MONGO_DB"); v != "" {
		c.Mongo.DatabaseName = v
	}
	if v := os.Getenv("ELEVATOR_FLOORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ELEVATOR_FLOORS: %w", err)
		}
		c.Elevator.Floors = n
	}
	return nil
}

// fillDefaults restores zero values a partial file may have left behind.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.Mongo.ConnectionString == "" {
		c.Mongo.ConnectionString = d.Mongo.ConnectionString
	}
	if c.Mongo.DatabaseName == "" {
		c.Mongo.DatabaseName = d.Mongo.DatabaseName
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = d.Mongo.Collection
	}
	if c.Mongo.ConnectTimeout <= 0 {
		c.Mongo.ConnectTimeout = d.Mongo.ConnectTimeout
	}
	if c.Mongo.WriteTimeout <= 0 {
		c.Mongo.WriteTimeout = d.Mongo.WriteTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Elevator.ID == "" {
		c.Elevator.ID = d.Elevator.ID
	}
	if c.Elevator.Floors == 0 {
		c.Elevator.Floors = d.Elevator.Floors
	}
	if c.Elevator.StartFloor == 0 {
		c.Elevator.StartFloor = d.Elevator.StartFloor
	}
	if c.Elevator.FloorSpacing <= 0 {
		c.Elevator.FloorSpacing = d.Elevator.FloorSpacing
	}
	if c.Elevator.SpeedPerTick <= 0 {
		c.Elevator.SpeedPerTick = d.Elevator.SpeedPerTick
	}
	if c.Elevator.TickInterval <= 0 {
		c.Elevator.TickInterval = d.Elevator.TickInterval
	}
	if c.Elevator.DwellTime <= 0 {
		c.Elevator.DwellTime = d.Elevator.DwellTime
	}
	if c.LogWriter.BatchSize <= 0 {
		c.LogWriter.BatchSize = d.LogWriter.BatchSize
	}
	if c.LogWriter.IdleInterval <= 0 {
		c.LogWriter.IdleInterval = d.LogWriter.IdleInterval
	}
	if c.LogWriter.BackoffInterval <= 0 {
		c.LogWriter.BackoffInterval = d.LogWriter.BackoffInterval
	}
	if c.LogWriter.RetryInterval <= 0 {
		c.LogWriter.RetryInterval = d.LogWriter.RetryInterval
	}
}
