package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config agrupa toda la configuración de entorno del servicio.
// Los campos con tag `validate:"required"` hacen fallar el arranque si faltan.
type Config struct {
	HTTPPort string

	// Identidad (Clerk) y webhooks (Svix). El secreto NO es obligatorio al
	// arrancar: el endpoint de webhook responde 500 si falta (misconfiguración).
	WebhookSecret  string // secreto compartido de Svix (whsec_...)
	ClerkSecretKey string
	ClerkJWKSURL   string

	// Pagos (Razorpay)
	RazorpayKeyID     string // clave pública, se expone al widget
	RazorpayKeySecret string

	// Redirecciones post-checkout y sign-in
	ServerURL string `validate:"required,url"`
	SignInURL string

	// Persistencia
	MongoURI        string
	MongoDB         string
	SQLitePath      string
	PostgresDSN     string
	ClickHouseAddr  string
	ClickHouseDB    string
	LocalDeployment bool // true => SQLite en lugar de Mongo/Postgres

	// Cache y eventos
	RedisAddr    string
	CacheTTL     time.Duration
	UseKafka     bool
	KafkaBrokers []string
	OutboxPeriod time.Duration
	OutboxLimit  int
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadConfig lee el entorno y valida los campos obligatorios.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		ClerkJWKSURL:   os.Getenv("CLERK_JWKS_URL"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),

		ServerURL: getEnv("SERVER_URL", "http://localhost:3000"),
		SignInURL: getEnv("SIGN_IN_URL", "/sign-in"),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "eventify"),
		SQLitePath:      getEnv("SQLITE_PATH", "./eventify.db"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		ClickHouseAddr:  os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDB:    getEnv("CLICKHOUSE_DB", "eventify"),
		LocalDeployment: getEnv("LOCAL_DEPLOYMENT", "true") == "true",

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:     5 * time.Minute,
		UseKafka:     getEnv("USE_KAFKA", "false") == "true",
		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OutboxPeriod: 1 * time.Second,
		OutboxLimit:  10,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
