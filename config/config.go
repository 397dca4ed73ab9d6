package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings is the typed process configuration read from the environment.
type Settings struct {
	Port string `env:"PORT" envDefault:"8002"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     uint   `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"nightlife"`
	SeedData   bool   `env:"SEED_DATA" envDefault:"false"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	MenuCacheTTL  time.Duration `env:"MENU_CACHE_TTL" envDefault:"2m"`

	FeedTransport string   `env:"FEED_TRANSPORT" envDefault:"local"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"order-changes"`
	KafkaGroup    string   `env:"KAFKA_GROUP" envDefault:"nightlife-staff-feed"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"12h"`

	LogPath          string        `env:"LOG_PATH"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFlushInterval time.Duration `env:"LOG_FLUSH_INTERVAL" envDefault:"2s"`
	LogMaxBuffered   int           `env:"LOG_MAX_BUFFERED" envDefault:"256"`

	Timezone          string        `env:"TIMEZONE" envDefault:"UTC"`
	UpcomingWindow    time.Duration `env:"UPCOMING_WINDOW" envDefault:"60m"`
	DemoMode          bool          `env:"DEMO_MODE" envDefault:"false"`
	DemoIdentifiers   []string      `env:"DEMO_IDENTIFIERS" envSeparator:"," envDefault:"test,demo"`
	DemoTableFallback bool          `env:"DEMO_TABLE_FALLBACK" envDefault:"true"`

	PairingFile string  `env:"UPSELL_PAIRING_FILE"`
	PriceDrift  float64 `env:"PRICE_DRIFT" envDefault:"4"`

	OrphanRepairEvery time.Duration `env:"ORPHAN_REPAIR_EVERY" envDefault:"5m"`
	OrphanGraceAge    time.Duration `env:"ORPHAN_GRACE_AGE" envDefault:"2m"`
	EventCloseSpec    string        `env:"EVENT_CLOSE_SPEC" envDefault:"5 6 * * *"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file and parses the environment into Settings.
func Load() (Settings, error) {
	_ = godotenv.Load()
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ParseEnv parses environment variables into cfg.
func ParseEnv(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (s Settings) Validate() error {
	switch s.FeedTransport {
	case "local", "redis", "kafka":
	default:
		return fmt.Errorf("unknown FEED_TRANSPORT %q", s.FeedTransport)
	}
	if s.UpcomingWindow <= 0 {
		return fmt.Errorf("UPCOMING_WINDOW must be positive")
	}
	if s.DemoMode && len(s.DemoIdentifiers) == 0 {
		return fmt.Errorf("DEMO_MODE requires DEMO_IDENTIFIERS")
	}
	return nil
}

func (s Settings) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

func (s Settings) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		s.DBHost, s.DBPort, s.DBUser, s.DBPassword, s.DBName)
}

func (s Settings) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		s.DBUser, s.DBPassword, s.DBHost, s.DBPort, s.DBName)
}

// NormalizedDemoIdentifiers returns the demo identifiers lowercased and trimmed.
func (s Settings) NormalizedDemoIdentifiers() []string {
	out := make([]string, 0, len(s.DemoIdentifiers))
	for _, id := range s.DemoIdentifiers {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Config returns a raw environment value after loading .env.
func Config(key string) string {
	_ = godotenv.Load(".env")
	return os.Getenv(key)
}
