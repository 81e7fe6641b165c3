package core

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	APIConfig struct {
		BaseURL        string
		Timeout        time.Duration
		ConnectTimeout time.Duration
	}

	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		API          APIConfig
		StorageDir   string // durable client storage (session slots)
		WebAddress   string
		RollbarToken string
	}
)

// NewConfig reads the configuration from the environment, after loading `config/.env.<env>` if it exists.
func NewConfig() (*Config, error) {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("test_mode", false)
	conf.SetDefault("build", "dev")
	conf.SetDefault("app_name", "Mergington High School")
	conf.SetDefault("api_base_url", "http://localhost:8000")
	conf.SetDefault("api_timeout", 60*time.Second)
	conf.SetDefault("api_connect_timeout", 5*time.Second)
	conf.SetDefault("storage_dir", defaultStorageDir())
	conf.SetDefault("web_address", ":8080")
	conf.SetDefault("rollbar_token", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("test_mode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	conf.AutomaticEnv()

	cfg := &Config{
		Env:      env,
		Build:    conf.GetString("build"),
		AppName:  conf.GetString("app_name"),
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("test_mode"),
		API: APIConfig{
			BaseURL:        strings.TrimRight(conf.GetString("api_base_url"), "/"),
			Timeout:        conf.GetDuration("api_timeout"),
			ConnectTimeout: conf.GetDuration("api_connect_timeout"),
		},
		StorageDir:   conf.GetString("storage_dir"),
		WebAddress:   conf.GetString("web_address"),
		RollbarToken: conf.GetString("rollbar_token"),
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return errors.Wrap(err, "parsing api_base_url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("api_base_url: unsupported scheme %q", u.Scheme)
	}
	if c.API.Timeout <= 0 || c.API.ConnectTimeout <= 0 {
		return errors.New("api timeouts must be positive")
	}
	if c.StorageDir == "" {
		return errors.New("storage_dir is required")
	}
	return nil
}

func defaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "mergington")
}
