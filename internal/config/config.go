package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all settings for the adventure server.
type Config struct {
	// Server
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	Env      string `envconfig:"APP_ENV" default:"production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`

	// Redis scene cache
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SceneCacheTTL time.Duration `envconfig:"SCENE_CACHE_TTL" default:"24h"`

	// RabbitMQ. Empty URL disables the scene-ready publisher.
	RabbitMQURL      string `envconfig:"RABBITMQ_URL" default:""`
	SceneUpdateQueue string `envconfig:"SCENE_UPDATE_QUEUE" default:"scene_updates"`

	// Narrative generator (OpenAI-compatible endpoint)
	AIAPIKey     string `envconfig:"AI_API_KEY" required:"true"`
	AIBaseURL    string `envconfig:"AI_BASE_URL" default:"https://api.mistral.ai/v1"`
	AIModel      string `envconfig:"AI_MODEL" default:"mistral-large-latest"`
	AITimeout    int    `envconfig:"AI_TIMEOUT_SECONDS" default:"120"`
	AIMaxRetries int    `envconfig:"AI_MAX_RETRIES" default:"3"`

	// Image generator
	ImageAPIKey         string        `envconfig:"IMAGE_API_KEY" default:""`
	ImageBaseURL        string        `envconfig:"IMAGE_BASE_URL" default:"https://api.lumalabs.ai/dream-machine/v1"`
	ImageModel          string        `envconfig:"IMAGE_MODEL" default:"photon-1"`
	ImagePlaceholderURL string        `envconfig:"IMAGE_PLACEHOLDER_URL" default:"/placeholder.svg?height=600&width=800"`
	ImageStyleSuffix    string        `envconfig:"IMAGE_STYLE_SUFFIX" default:", high contrast, cinematic lighting"`
	ImageCreateTimeout  time.Duration `envconfig:"IMAGE_CREATE_TIMEOUT" default:"8s"`
	ImagePollInterval   time.Duration `envconfig:"IMAGE_POLL_INTERVAL" default:"2s"`
	ImagePollAttempts   int           `envconfig:"IMAGE_POLL_ATTEMPTS" default:"6"`

	// Background prefetch
	PrefetchMaxTasks int `envconfig:"PREFETCH_MAX_TASKS" default:"32"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from an optional .env file and the
// environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	// Missing .env is fine, real deployments set the environment directly.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load adventure-server config: %w", err)
	}
	return &cfg, nil
}
