package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	API      APIConfig
	Store    StoreConfig
	Payment  PaymentConfig
	Log      LogConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token             string
	AdminPasswordHash string // bcrypt hash checked by /admin
}

type APIConfig struct {
	BaseURL string
	WSURL   string
	Token   string
	Timeout time.Duration
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type PaymentConfig struct {
	Delay time.Duration // simulated gateway latency for digital payments
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	timeout := getDuration("API_TIMEOUT", 15*time.Second)
	baseURL := strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000"), "/")

	cfg := &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "table_order"),
		},
		Telegram: TelegramConfig{
			Token:             getEnv("TOKEN", ""),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		API: APIConfig{
			BaseURL: baseURL,
			WSURL:   getEnv("API_WS_URL", wsURLFor(baseURL)),
			Token:   getEnv("API_TOKEN", ""),
			Timeout: timeout,
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
			SQLitePath: getEnv("SQLITE_PATH", "table-order.db"),
		},
		Payment: PaymentConfig{
			Delay: getDuration("PAYMENT_DELAY", 2*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
	// API_WS_URL=off disables the live order feed.
	if strings.EqualFold(cfg.API.WSURL, "off") {
		cfg.API.WSURL = ""
	}
	return cfg, nil
}

// wsURLFor swaps the scheme of the API base URL and points it at /ws on the same host.
func wsURLFor(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
