package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, secrets)
// - default: Values common across all environments (timeouts, intervals, granularity)
// -----------------------------------------------------------------------------

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	CORS      CORSConfig
	Log       LogConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	Kafka     KafkaConfig
	Booking   BookingConfig
	Worker    WorkerConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" required:"true"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DBConfig struct {
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" required:"true"`
	Password     string        `envconfig:"DB_PASSWORD" required:"true"`
	DBName       string        `envconfig:"DB_NAME" required:"true"`
	SSLMode      string        `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone     string        `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns     int32         `envconfig:"DB_MAX_CONNS" default:"20"`
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length,Location"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

type JWTConfig struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	Duration string `envconfig:"JWT_DURATION" default:"24h"`
}

type RedisConfig struct {
	Addr              string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password          string        `envconfig:"REDIS_PASSWORD"`
	CacheDB           int           `envconfig:"REDIS_CACHE_DB" default:"0"`
	QueueDB           int           `envconfig:"REDIS_QUEUE_DB" default:"1"`
	CacheTTL          time.Duration `envconfig:"REDIS_CACHE_TTL" default:"5m"`
	RateLimit         int           `envconfig:"RATE_LIMIT_RESERVATIONS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitFailOpen bool          `envconfig:"RATE_LIMIT_FAIL_OPEN" default:"true"`
}

type StripeConfig struct {
	SecretKey        string        `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret    string        `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	WebhookTolerance time.Duration `envconfig:"STRIPE_WEBHOOK_TOLERANCE" default:"5m"`
	Timeout          time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
	MaxRetries       uint64        `envconfig:"GATEWAY_MAX_RETRIES" default:"3"`
}

type KafkaConfig struct {
	Brokers      string        `envconfig:"KAFKA_BROKERS"`
	PollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	BatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
}

func (c KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type BookingConfig struct {
	HoldDuration    time.Duration `envconfig:"RESERVATION_HOLD_DURATION" default:"10m"`
	MaxHoldDuration time.Duration `envconfig:"RESERVATION_MAX_HOLD_DURATION" default:"1h"`
	SlotGranularity time.Duration `envconfig:"AVAILABILITY_SLOT_GRANULARITY" default:"15m"`
	LeadTime        time.Duration `envconfig:"BOOKING_LEAD_TIME" default:"0s"`
	DefaultCurrency string        `envconfig:"BOOKING_DEFAULT_CURRENCY" default:"usd"`
}

type WorkerConfig struct {
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"5m"`
	BatchSize         int           `envconfig:"WORKER_BATCH_SIZE" default:"100"`
	Concurrency       int           `envconfig:"WORKER_CONCURRENCY" default:"10"`
	LeaderLockKey     int64         `envconfig:"WORKER_LEADER_LOCK_KEY" default:"7342001"`
}

type TelemetryConfig struct {
	Enabled      bool    `envconfig:"OTEL_ENABLED" default:"false"`
	ServiceName  string  `envconfig:"OTEL_SERVICE_NAME" default:"booking-engine"`
	OTLPEndpoint string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	SampleRatio  float64 `envconfig:"OTEL_SAMPLING_RATIO" default:"1"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

// LoadDBConfig reads only the database settings, for tools that never serve
// traffic.
func LoadDBConfig() (DBConfig, error) {
	var cfg DBConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return DBConfig{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8889", // Test port
			ShutdownTimeout: time.Second,
		},
		DB: DBConfig{
			Host:         "localhost",
			Port:         "15433", // Test DB port
			User:         "test",
			Password:     "test",
			DBName:       "test_db",
			SSLMode:      "disable",
			TimeZone:     "UTC",
			MaxConns:     20,
			StoreTimeout: 5 * time.Second,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       time.Hour,
		},
		Log: LogConfig{
			Level:      "error", // Error level only for tests
			TimeZone:   "UTC",
			TimeFormat: "2006-01-02 15:04:05.000",
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: "1h",
		},
		Redis: RedisConfig{
			Addr:              "localhost:16379",
			CacheTTL:          time.Minute,
			RateLimit:         1000,
			RateLimitWindow:   time.Minute,
			RateLimitFailOpen: true,
		},
		Stripe: StripeConfig{
			SecretKey:        "sk_test_dummy",
			WebhookSecret:    "whsec_test",
			WebhookTolerance: 5 * time.Minute,
			Timeout:          10 * time.Second,
			MaxRetries:       1,
		},
		Booking: BookingConfig{
			HoldDuration:    10 * time.Minute,
			MaxHoldDuration: time.Hour,
			SlotGranularity: 15 * time.Minute,
			DefaultCurrency: "usd",
		},
		Worker: WorkerConfig{
			SweepInterval:     time.Minute,
			ReconcileInterval: 5 * time.Minute,
			BatchSize:         100,
			Concurrency:       2,
			LeaderLockKey:     7342001,
		},
	}
}
