package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/dealancer/validate.v2"
	"gopkg.in/yaml.v3"

	"bitmapadapter/internal/stage"
)

type Config struct {
	ServerAddr      string          `yaml:"server_addr" validate:"empty=false"`
	DataDir         string          `yaml:"data_dir" validate:"empty=false"`
	Stage           stage.FrameSize `yaml:"stage"`
	MaxUploadBytes  int64           `yaml:"max_upload_bytes" validate:"gte=1"`
	MaxDimension    int             `yaml:"max_dimension" validate:"gte=1"`
	OutputFormat    string          `yaml:"output_format" validate:"one_of=image/png,image/jpeg,image/webp,image/avif"`
	JobRetention    time.Duration   `yaml:"job_retention"`
	JanitorInterval time.Duration   `yaml:"janitor_interval"`
	RequestTimeout  time.Duration   `yaml:"request_timeout"`
	LogLevel        string          `yaml:"log_level" validate:"one_of=debug,info,warn,warning,silent,off"`
	RateLimit       int             `yaml:"rate_limit" validate:"gte=0"` // requests per minute per client, 0 disables
	TrustedProxies  string          `yaml:"trusted_proxies"`
	ConfigFile      string          `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerAddr:      ":8080",
		DataDir:         "./data",
		Stage:           stage.DefaultNativeSize,
		MaxUploadBytes:  32 << 20,
		MaxDimension:    8000,
		OutputFormat:    "image/png",
		JobRetention:    time.Hour,
		JanitorInterval: 10 * time.Minute,
		RequestTimeout:  30 * time.Second,
		LogLevel:        "info",
		RateLimit:       120,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE and the environment, in that order. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	cfg := Default()
	cfg.ConfigFile = os.Getenv("CONFIG_FILE")
	if cfg.ConfigFile != "" {
		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "unable to validate configuration")
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validate.Validate(c); err != nil {
		return err
	}
	if !c.Stage.Valid() {
		return errors.Errorf("stage size %s must be positive", c.Stage)
	}
	if !c.Stage.Within(c.MaxDimension) {
		return errors.Errorf("stage size %s exceeds max dimension %d", c.Stage, c.MaxDimension)
	}
	if c.JobRetention <= 0 || c.JanitorInterval <= 0 || c.RequestTimeout <= 0 {
		return errors.New("durations must be positive")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "unable to read from path %s", path)
	}
	if err := yaml.Unmarshal(file, c); err != nil {
		return errors.Wrap(err, "parsing configuration file error")
	}
	return nil
}

// ReadStage reads only the stage section of a YAML config file. Missing
// dimensions come back as zero.
func ReadStage(path string) (stage.FrameSize, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return stage.FrameSize{}, errors.Wrapf(err, "unable to read from path %s", path)
	}
	var doc struct {
		Stage stage.FrameSize `yaml:"stage"`
	}
	if err := yaml.Unmarshal(file, &doc); err != nil {
		return stage.FrameSize{}, errors.Wrap(err, "parsing configuration file error")
	}
	return doc.Stage, nil
}

func (c *Config) applyEnv() error {
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.OutputFormat = getEnv("OUTPUT_FORMAT", c.OutputFormat)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.TrustedProxies = getEnv("TRUSTED_PROXIES", c.TrustedProxies)

	var err error
	if value := os.Getenv("STAGE"); value != "" {
		if c.Stage, err = stage.ParseFrameSize(value); err != nil {
			return errors.Wrap(err, "STAGE")
		}
	}
	if c.Stage.Width, err = getEnvInt("STAGE_WIDTH", c.Stage.Width); err != nil {
		return err
	}
	if c.Stage.Height, err = getEnvInt("STAGE_HEIGHT", c.Stage.Height); err != nil {
		return err
	}
	if c.MaxDimension, err = getEnvInt("MAX_DIMENSION", c.MaxDimension); err != nil {
		return err
	}
	if c.RateLimit, err = getEnvInt("RATE_LIMIT", c.RateLimit); err != nil {
		return err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes))
	if err != nil {
		return err
	}
	c.MaxUploadBytes = int64(maxUpload)
	if c.JobRetention, err = getEnvDuration("JOB_RETENTION", c.JobRetention); err != nil {
		return err
	}
	if c.JanitorInterval, err = getEnvDuration("JANITOR_INTERVAL", c.JanitorInterval); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	return d, nil
}
