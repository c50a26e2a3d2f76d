// Package config loads medcapture settings from an optional YAML file and
// MEDCAPTURE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"medcapture/internal/camera"
	"medcapture/internal/database"
	"medcapture/internal/logger"
	"medcapture/internal/pipeline"
	"medcapture/internal/vision"

	"gopkg.in/yaml.v3"
)

const envPrefix = "MEDCAPTURE_"

// Codec backends.
const (
	CodecOpenCV = "opencv" // gocv resize, imencode and imdecode
	CodecNative = "native" // pure Go bilinear resize and image/jpeg
)

type Config struct {
	Codec    string          `yaml:"codec"`
	Pipeline pipeline.Config `yaml:"pipeline"`
	Camera   camera.Config   `yaml:"camera"`
	Server   ServerConfig    `yaml:"server"`
	Storage  StorageConfig   `yaml:"storage"`
	Database database.Config `yaml:"database"`
	Vision   vision.Config   `yaml:"vision"`
	Log      LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadSize   int64         `yaml:"max_upload_size"` // bytes
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string        `yaml:"level"`
	Format logger.Format `yaml:"format"`
}

func Default() Config {
	return Config{
		Codec:    CodecOpenCV,
		Pipeline: pipeline.DefaultConfig(),
		Camera:   camera.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadSize:   20 << 20,
		},
		Storage:  StorageConfig{Dir: "./data/captures"},
		Database: database.Config{Path: "./data/medcapture.db"},
		Vision:   vision.Config{Timeout: 60 * time.Second},
		Log:      LogConfig{Level: "info", Format: logger.FormatConsole},
	}
}

// Load layers the YAML file at path (skipped when path is empty) and the
// environment over Default, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decode rejects unknown keys so typos do not pass silently.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = f
		}
	}

	str("CODEC", &cfg.Codec)
	str("ADDR", &cfg.Server.Addr)
	str("STORAGE_DIR", &cfg.Storage.Dir)
	str("DB_PATH", &cfg.Database.Path)
	str("VISION_URL", &cfg.Vision.BaseURL)
	str("LOG_LEVEL", &cfg.Log.Level)

	var format, facing string
	str("LOG_FORMAT", &format)
	if format != "" {
		cfg.Log.Format = logger.Format(format)
	}
	str("FACING", &facing)
	if facing != "" {
		cfg.Camera.Facing = camera.Facing(facing)
	}

	num("MAX_WIDTH", &cfg.Pipeline.MaxWidth)
	float("QUALITY", &cfg.Pipeline.Quality)

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if c.Codec != CodecOpenCV && c.Codec != CodecNative {
		errs = append(errs, fmt.Errorf("unknown codec: %q", c.Codec))
	}
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Camera.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server: addr is empty"))
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("server: max upload size must be positive, got %d", c.Server.MaxUploadSize))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage: dir is empty"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database: path is empty"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
