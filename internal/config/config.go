package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type Config struct {
	App struct {
		ENV string
	}

	Log LogConfig

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host string
		Port string
	}

	Messenger struct {
		GraphURL    string
		PageToken   string
		AppSecret   string
		VerifyToken string
		Timeout     time.Duration
	}

	Chat struct {
		MaxWait                 time.Duration
		SweepInterval           time.Duration
		OverflowThreshold       int
		UnknownMatchProbability float64
		CommandMaxLen           int
		QueueSize               int
		Maintenance             bool
		LangFile                string
		DedupTTL                time.Duration
	}

	Gifts struct {
		CatAPI     string
		DogAPI     string
		HotBoyURLs []string
	}

	Admin struct {
		// TokenHash is a bcrypt hash of the bearer token accepted by the admin service.
		TokenHash string
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "chatible")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	}
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "chatible")

		switch cfg.DB.Driver {
		case "sqlite":
			cfg.DB.DSN = cfg.DB.Name + ".db"
		default:
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC (admin)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP (webhook)
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Messenger
	cfg.Messenger.GraphURL = strings.TrimRight(getEnvDefault("MESSENGER_GRAPH_URL", "https://graph.facebook.com/v18.0"), "/")
	cfg.Messenger.PageToken = getEnvDefault("MESSENGER_PAGE_TOKEN", "")
	cfg.Messenger.AppSecret = getEnvDefault("MESSENGER_APP_SECRET", "")
	cfg.Messenger.VerifyToken = getEnvDefault("MESSENGER_VERIFY_TOKEN", "")
	cfg.Messenger.Timeout = getEnvDuration("MESSENGER_TIMEOUT", 10*time.Second)

	// Chat policy
	cfg.Chat.MaxWait = getEnvDuration("CHAT_MAX_WAIT", 15*time.Minute)
	cfg.Chat.SweepInterval = getEnvDuration("CHAT_SWEEP_INTERVAL", time.Minute)
	cfg.Chat.OverflowThreshold = getEnvInt("CHAT_OVERFLOW_THRESHOLD", 20)
	cfg.Chat.UnknownMatchProbability = getEnvFloat("CHAT_UNKNOWN_MATCH_PROBABILITY", 0.2)
	cfg.Chat.CommandMaxLen = getEnvInt("CHAT_COMMAND_MAX_LEN", 20)
	cfg.Chat.QueueSize = getEnvInt("CHAT_QUEUE_SIZE", 1024)
	cfg.Chat.Maintenance = isTruthy(os.Getenv("CHAT_MAINTENANCE"))
	cfg.Chat.LangFile = getEnvDefault("CHAT_LANG_FILE", "")
	cfg.Chat.DedupTTL = getEnvDuration("CHAT_DEDUP_TTL", 10*time.Minute)

	// Gifts
	cfg.Gifts.CatAPI = getEnvDefault("GIFT_CAT_API", "https://api.thecatapi.com/v1/images/search")
	cfg.Gifts.DogAPI = getEnvDefault("GIFT_DOG_API", "https://dog.ceo/api/breeds/image/random")
	cfg.Gifts.HotBoyURLs = splitList(os.Getenv("GIFT_HOTBOY_URLS"))

	cfg.Admin.TokenHash = getEnvDefault("ADMIN_TOKEN_HASH", "")

	return cfg
}

// Development reports whether the app runs with development conveniences (seeding, sqlite).
func (c *Config) Development() bool {
	return strings.EqualFold(c.App.ENV, "development")
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if n, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return n
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil {
		return f
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnvDefault(k, "")); err == nil && d > 0 {
		return d
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
