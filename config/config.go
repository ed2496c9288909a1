package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	Env      string `envconfig:"ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	MongoURI      string `envconfig:"MONGODB_URI" required:"true"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"history_guide"`

	RedisAddr string `envconfig:"REDIS_ADDR" required:"true"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"24h"`
	AuthDrivers   []string      `envconfig:"AUTH_DRIVERS" default:"local"`
	Auth0Domain   string        `envconfig:"AUTH0_DOMAIN"`
	Auth0Audience string        `envconfig:"AUTH0_AUDIENCE"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	GeofenceRadiusMeters   float64       `envconfig:"GEOFENCE_RADIUS_METERS" default:"250"`
	GeofenceLoiteringDelay time.Duration `envconfig:"GEOFENCE_LOITERING_DELAY" default:"5m"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"guide.events"`
	NotifyQueue    string `envconfig:"NOTIFY_QUEUE" default:"guide.notifications"`
	NotifyDLX      string `envconfig:"NOTIFY_DLX" default:"guide.dlx"`
	NotifyDLQ      string `envconfig:"NOTIFY_DLQ" default:"guide.notifications.dlq"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	SeedFile string `envconfig:"SEED_FILE"`

	FeedBaseURL     string `envconfig:"FEED_BASE_URL" default:"http://localhost:8080"`
	FeedAuthorName  string `envconfig:"FEED_AUTHOR_NAME" default:"History Guide"`
	FeedAuthorEmail string `envconfig:"FEED_AUTHOR_EMAIL"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.GeofenceRadiusMeters <= 0 {
		return errors.New("GEOFENCE_RADIUS_METERS must be positive")
	}
	if c.GeofenceLoiteringDelay < 0 {
		return errors.New("GEOFENCE_LOITERING_DELAY must not be negative")
	}
	for _, d := range c.AuthDrivers {
		if d == "auth0" && (c.Auth0Domain == "" || c.Auth0Audience == "") {
			return errors.New("AUTH0_DOMAIN and AUTH0_AUDIENCE are required by the auth0 driver")
		}
	}
	return nil
}

// HasAuthDriver reports whether the named driver is enabled.
func (c Config) HasAuthDriver(name string) bool {
	for _, d := range c.AuthDrivers {
		if d == name {
			return true
		}
	}
	return false
}
