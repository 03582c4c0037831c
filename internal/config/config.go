package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Backend string

const (
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

type Config struct {
	Server    ServerConfig
	Post      PostConfig
	Scheduler SchedulerConfig
	Log       LogConfig
	Store     StoreConfig
	Redis     RedisConfig
}

type ServerConfig struct {
	Address string
}

type PostConfig struct {
	URL        string
	Timeout    time.Duration
	ContentMax int
}

type SchedulerConfig struct {
	MaxInFlight int
	MaxAhead    time.Duration
}

type LogConfig struct {
	File string
}

type StoreConfig struct {
	Backend         Backend
	RecordsFile     string
	CredentialsFile string
	SQLitePath      string
	PostgresURL     string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// LoadAll reads the whole configuration from the environment and reports
// every problem at once.
func LoadAll() (*Config, error) {
	var errs []error

	required := func(key string) string {
		v, err := requireEnv(key)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	num := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Post: PostConfig{
			URL:        getEnv("POST_URL", ""),
			Timeout:    time.Duration(num("POST_TIMEOUT_SECONDS", 10)) * time.Second,
			ContentMax: num("CONTENT_MAX", 280),
		},
		Scheduler: SchedulerConfig{
			MaxInFlight: num("MAX_IN_FLIGHT", 4),
			MaxAhead:    time.Duration(num("MAX_SCHEDULE_AHEAD_HOURS", 8760)) * time.Hour,
		},
		Log: LogConfig{
			File: getEnv("LOG_FILE", "TweetAutomation.log"),
		},
		Store: StoreConfig{
			Backend:         Backend(getEnv("STORE_BACKEND", string(BackendFile))),
			RecordsFile:     getEnv("RECORDS_FILE", "Tweets.bin"),
			CredentialsFile: getEnv("CREDENTIALS_FILE", "Credentials.bin"),
			SQLitePath:      getEnv("SQLITE_PATH", "tweets.db"),
		},
	}

	if cfg.Store.Backend == BackendPostgres {
		cfg.Store.PostgresURL = required("POSTGRES_URL")
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis = RedisConfig{
			Enabled:  true,
			Address:  addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       num("REDIS_DB", 0),
			TTL:      time.Duration(num("REDIS_TTL_SECONDS", 86400)) * time.Second,
		}
	}

	errs = append(errs, validate(cfg)...)
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequirePosting reports whether everything needed to reach the posting
// service is set. Commands that only touch local state skip it.
func (c *Config) RequirePosting() error {
	if c.Post.URL == "" {
		return errors.New("missing required env var: POST_URL")
	}
	return nil
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Post.Timeout <= 0 {
		errs = append(errs, errors.New("POST_TIMEOUT_SECONDS must be > 0"))
	}
	if cfg.Post.ContentMax <= 0 {
		errs = append(errs, errors.New("CONTENT_MAX must be > 0"))
	}
	if cfg.Scheduler.MaxInFlight <= 0 {
		errs = append(errs, errors.New("MAX_IN_FLIGHT must be > 0"))
	}
	if cfg.Scheduler.MaxAhead <= 0 {
		errs = append(errs, errors.New("MAX_SCHEDULE_AHEAD_HOURS must be > 0"))
	}
	switch cfg.Store.Backend {
	case BackendFile, BackendSQLite, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of file, sqlite, postgres, got %q", cfg.Store.Backend))
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL <= 0 {
		errs = append(errs, errors.New("REDIS_TTL_SECONDS must be > 0"))
	}
	return errs
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %q", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
