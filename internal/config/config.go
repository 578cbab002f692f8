package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingDatabaseURL = errors.New("missing env: DATABASE_URL")

type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	AdminJWTSecret string

	// CronSecret may be empty; the dispatch endpoint reports that per request.
	CronSecret string

	WhatsAppProvider  string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFrom        string
	MetaAccessToken   string
	MetaPhoneNumberID string
	MetaGraphVersion  string

	RedisAddr       string
	RedisPassword   string
	RedisRunsStream string

	BatchSize    int
	LockTTL      time.Duration
	PollInterval time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                  getenv("APP_ENV", "local"),
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getenv("DATABASE_URL", ""),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",

		AdminJWTSecret: getenv("ADMIN_JWT_SECRET", ""),
		CronSecret:     getenv("CRON_SECRET", ""),

		WhatsAppProvider:  strings.ToLower(getenv("WHATSAPP_PROVIDER", "twilio")),
		TwilioAccountSID:  getenv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getenv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:        getenv("TWILIO_FROM", ""),
		MetaAccessToken:   getenv("META_ACCESS_TOKEN", ""),
		MetaPhoneNumberID: getenv("META_PHONE_NUMBER_ID", ""),
		MetaGraphVersion:  getenv("META_GRAPH_VERSION", "v21.0"),

		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RedisRunsStream: getenv("REDIS_RUNS_STREAM", "whatsapp:dispatch_runs"),

		BatchSize: atoi(getenv("DISPATCH_BATCH_SIZE", "50"), 50),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if v := getenv("DISPATCH_LOCK_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, errors.New("invalid DISPATCH_LOCK_TTL: " + err.Error())
		}
		cfg.LockTTL = d
	}

	if v := getenv("DISPATCH_POLL_INTERVAL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, errors.New("invalid DISPATCH_POLL_INTERVAL: " + err.Error())
		}
		cfg.PollInterval = d
	}

	if cfg.DatabaseURL == "" {
		return cfg, ErrMissingDatabaseURL
	}
	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
