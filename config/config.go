package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendGist     = "gist"
	BackendPostgres = "postgres"
	BackendLocal    = "local"

	// DefaultPin is the well-known pin used when ADMIN_PIN is unset.
	DefaultPin = "1234"
)

type Config struct {
	Telegram TelegramConfig
	Remote   RemoteConfig
	DB       DBConfig
	Files    FilesConfig
	Log      LogConfig
	// Location is the zone operator-entered dates are read in.
	Location *time.Location
	// EnvFile is the .env path the document id is written back to.
	EnvFile string
}

type TelegramConfig struct {
	Token string
	Pin   string
}

type RemoteConfig struct {
	Backend     string // "gist", "postgres" or "local"
	GitHubToken string
	GistID      string
	APIURL      string
	Description string
	DocumentID  string // postgres row id
	Timeout     time.Duration
	RatePerSec  float64
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type FilesConfig struct {
	Menu           string
	CategoryLabels string
	StopList       string
	DeliveryStatus string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("REMOTE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("REMOTE_TIMEOUT: %w", err)
	}
	rps, err := strconv.ParseFloat(getEnv("REMOTE_RATE_PER_SEC", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("REMOTE_RATE_PER_SEC: %w", err)
	}
	loc := time.Local
	if name := os.Getenv("TZ_NAME"); name != "" {
		loc, err = time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("TZ_NAME: %w", err)
		}
	}

	return &Config{
		Telegram: TelegramConfig{
			Token: getEnv("BOT_TOKEN", ""),
			Pin:   getEnv("ADMIN_PIN", DefaultPin),
		},
		Remote: RemoteConfig{
			Backend:     strings.ToLower(getEnv("STATE_BACKEND", BackendGist)),
			GitHubToken: getEnv("GITHUB_TOKEN", ""),
			GistID:      getEnv("GIST_ID", ""),
			APIURL:      strings.TrimRight(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
			Description: getEnv("GIST_DESCRIPTION", "Стоп-лист и статус доставки"),
			DocumentID:  getEnv("STATE_DOCUMENT_ID", ""),
			Timeout:     timeout,
			RatePerSec:  rps,
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "stoplist"),
		},
		Files: FilesConfig{
			Menu:           getEnv("MENU_DATA_FILE", "menu_data.json"),
			CategoryLabels: getEnv("CATEGORY_LABELS_FILE", "categories.yaml"),
			StopList:       getEnv("STOP_LIST_FILE", "stop_list.json"),
			DeliveryStatus: getEnv("DELIVERY_STATUS_FILE", "delivery_status.json"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Location: loc,
		EnvFile:  envFile,
	}, nil
}

// Problems lists every required value that is missing or invalid. An empty
// result means the process may start.
func (c *Config) Problems() []string {
	var out []string
	if c.Telegram.Token == "" {
		out = append(out, "BOT_TOKEN is not set")
	}
	switch c.Remote.Backend {
	case BackendGist:
		if c.Remote.GitHubToken == "" {
			out = append(out, "GITHUB_TOKEN is not set")
		}
	case BackendPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			out = append(out, "DB_HOST and DB_NAME are required for the postgres backend")
		}
	case BackendLocal:
	default:
		out = append(out, fmt.Sprintf("STATE_BACKEND %q is not one of gist, postgres, local", c.Remote.Backend))
	}
	if c.Remote.Timeout <= 0 {
		out = append(out, "REMOTE_TIMEOUT must be positive")
	}
	if c.Remote.RatePerSec <= 0 {
		out = append(out, "REMOTE_RATE_PER_SEC must be positive")
	}
	if _, err := os.Stat(c.Files.Menu); err != nil {
		out = append(out, fmt.Sprintf("menu file %s not found", c.Files.Menu))
	}
	return out
}

// InsecurePin reports whether the operator pin is the built-in default.
func (c *Config) InsecurePin() bool {
	return c.Telegram.Pin == DefaultPin
}

// DocumentIDKey is the env key holding the remote document id for the
// configured backend.
func (c *Config) DocumentIDKey() string {
	if c.Remote.Backend == BackendPostgres {
		return "STATE_DOCUMENT_ID"
	}
	return "GIST_ID"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
