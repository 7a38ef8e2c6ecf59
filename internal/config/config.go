// Package config loads application configuration from environment
// variables.  cmd/server reads a .env file first, so every value here can
// come from either source.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Storage backends selectable through STORE.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds the runtime configuration of the server process.
type Config struct {
	Env  string // application environment (dev, test, prod)
	Port string // HTTP port to listen on

	Store         string // mysql | memory
	StoreFallback string // "memory" serves from memory while mysql is down
	DBUser        string
	DBPass        string
	DBHost        string
	DBPort        string
	DBName        string

	JWTSecret    string
	AccessTTLMin int // access token lifetime in minutes
	BcryptCost   int

	BookingMaxAttempts int           // assignment retries after losing a table race
	ReminderInterval   time.Duration // how often the reminder sweep runs
	ReminderWindow     time.Duration // 0 disables reminders

	RabbitURL      string
	NotifyQueue    string
	NotifyConsumer bool // run the notification journal consumer in-process
	KafkaBrokers   []string
	KafkaTopic     string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads the configuration and exits the process when a required
// value is missing or malformed.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	return cfg
}

// Parse reads the configuration from the environment.
func Parse() (Config, error) {
	var missing []string
	must := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:                envStr("APP_ENV", "dev"),
		Port:               must("APP_PORT"),
		Store:              strings.ToLower(envStr("STORE", StoreMySQL)),
		StoreFallback:      strings.ToLower(os.Getenv("STORE_FALLBACK")),
		JWTSecret:          must("JWT_SECRET"),
		AccessTTLMin:       envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:         envInt("BCRYPT_COST", 10),
		BookingMaxAttempts: envInt("BOOKING_MAX_ATTEMPTS", 3),
		ReminderInterval:   envDur("REMINDER_INTERVAL", 5*time.Minute),
		ReminderWindow:     envDur("REMINDER_WINDOW", 24*time.Hour),
		RabbitURL:          envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		NotifyQueue:        envStr("NOTIFY_QUEUE", "reservation.notifications"),
		NotifyConsumer:     envBool("NOTIFY_CONSUMER", false),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         envStr("KAFKA_TOPIC", "reservations.events"),
		LogLevel:           envStr("LOG_LEVEL", "info"),
		LogFormat:          envStr("LOG_FORMAT", "text"),
		LogFile:            os.Getenv("LOG_FILE"),
	}

	switch cfg.Store {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("STORE must be %q or %q, got %q", StoreMySQL, StoreMemory, cfg.Store)
	}
	if cfg.StoreFallback != "" && cfg.StoreFallback != StoreMemory {
		return Config{}, fmt.Errorf("STORE_FALLBACK only supports %q", StoreMemory)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = 5 * time.Minute
	}
	if cfg.BookingMaxAttempts < 1 {
		cfg.BookingMaxAttempts = 1
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
