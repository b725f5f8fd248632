package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage struct {
		Driver    string `yaml:"driver" env:"STORAGE_DRIVER"`
		DSN       string `yaml:"dsn" env:"STORAGE_DSN"`
		Namespace string `yaml:"namespace" env:"STORAGE_NAMESPACE"`
	} `yaml:"storage"`
	Urls struct {
		Redis    string `yaml:"redis" env:"REDIS_URL"`
		Rabbitmq string `yaml:"rabbitmq" env:"RABBITMQ_URL"`
	} `yaml:"urls"`
	Exchange struct {
		Output string `yaml:"output" env:"EXCHANGE_OUTPUT"`
	} `yaml:"exchange"`
	Export struct {
		DateLayout string `yaml:"date_layout" env:"EXPORT_DATE_LAYOUT"`
		Timezone   string `yaml:"timezone" env:"EXPORT_TIMEZONE"`
	} `yaml:"export"`
	Log struct {
		File  string `yaml:"file" env:"LOG_FILE"`
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
	Retry struct {
		Count    uint8 `yaml:"count" env:"RETRY_COUNT"`
		Interval uint  `yaml:"interval" env:"RETRY_INTERVAL"`
	} `yaml:"retry"`
}

// Default returns the local-only configuration: sqlite file storage, no cache, no broker.
func Default() Config {
	var cfg Config

	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = "formbuilder.db"
	cfg.Storage.Namespace = "formbuilder"
	cfg.Exchange.Output = "formbuilder.events"
	cfg.Export.DateLayout = "02. 01. 2006 15:04"
	cfg.Export.Timezone = "Local"
	cfg.Log.File = "app.log"
	cfg.Log.Level = "info"
	cfg.Retry.Count = 3
	cfg.Retry.Interval = 2

	return cfg
}

// Init loads the YAML file at path over the defaults, then .env, then the environment.
// A missing file or .env is not an error.
func Init(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()

		if err = yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode error: %v", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("error open file: %v", err)
	}

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err = env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &cfg, nil
}

// Location resolves Export.Timezone; an empty value means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Export.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Export.Timezone)
}
