package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Booking       BookingConfig       `yaml:"booking"`
	Itinerary     ItineraryConfig     `yaml:"itinerary"`
	Meals         []domain.Meal       `yaml:"meals"`
	Risk          RiskConfig          `yaml:"risk"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Log           LogConfig           `yaml:"log"`
}

type HTTPConfig struct {
	Address                string `yaml:"address"`
	SwaggerDir             string `yaml:"swagger_dir"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	MaxConns    int32  `yaml:"max_conns"`
	TxTimeoutMs int    `yaml:"tx_timeout_ms"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (d DatabaseConfig) TxTimeout() time.Duration {
	return time.Duration(d.TxTimeoutMs) * time.Millisecond
}

// RedisConfig with an empty Addr disables caching.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

const (
	TransportKafka   = "kafka"
	TransportChannel = "channel"
	TransportNone    = "none"
)

type NotificationsConfig struct {
	Transport        string `yaml:"transport"`
	PublishTimeoutMs int    `yaml:"publish_timeout_ms"`
}

type BookingConfig struct {
	MaxAttempts           int `yaml:"max_attempts"`
	InitialBackoffMs      int `yaml:"initial_backoff_ms"`
	SeatsCacheTTLSeconds  int `yaml:"seats_cache_ttl_seconds"`
}

type StopConfig struct {
	Name       string `yaml:"name"`
	DistanceKm int    `yaml:"distance_km"`
}

type ItineraryConfig struct {
	Stops         []StopConfig `yaml:"stops"`
	BaseFare      int64        `yaml:"base_fare"`
	PerKmFare     int64        `yaml:"per_km_fare"`
	MealStopIndex int          `yaml:"meal_stop_index"`
	SeatsPerDeck  int          `yaml:"seats_per_deck"`
}

// Build turns the configured stops into an itinerary, indexing them in
// listed order.
func (c ItineraryConfig) Build() (*domain.Itinerary, error) {
	stops := make([]domain.Stop, len(c.Stops))
	for i, s := range c.Stops {
		stops[i] = domain.Stop{Index: i, Name: s.Name, DistanceKm: s.DistanceKm}
	}
	return domain.NewItinerary(stops, c.BaseFare, c.PerKmFare)
}

type RiskConfig struct {
	DatasetPath     string `yaml:"dataset_path"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// SMTPConfig with an empty Host makes the e-mail sender log instead of send.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// fills defaults. An empty path yields defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("HTTP_ADDRESS", &c.HTTP.Address)
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_HOST", &c.Database.Host)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("NOTIFICATIONS_TRANSPORT", &c.Notifications.Transport)
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)
	str("RISK_DATASET_PATH", &c.Risk.DatasetPath)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if err := num("DB_PORT", &c.Database.Port); err != nil {
		return err
	}
	return num("SMTP_PORT", &c.SMTP.Port)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) ApplyDefaults() {
	setDefault(&c.HTTP.Address, ":8080")
	setDefault(&c.HTTP.SwaggerDir, "api/swagger")
	setDefault(&c.HTTP.ShutdownTimeoutSeconds, 10)

	setDefault(&c.Database.Driver, DriverPostgres)
	setDefault(&c.Database.Host, "localhost")
	setDefault(&c.Database.Port, 5432)
	setDefault(&c.Database.SSLMode, "disable")
	setDefault(&c.Database.TxTimeoutMs, 3000)

	setDefault(&c.Kafka.NotificationsTopic, "reservation-notifications")
	setDefault(&c.Kafka.GroupID, "busbooking-notifier")

	if c.Notifications.Transport == "" {
		if len(c.Kafka.Brokers) > 0 {
			c.Notifications.Transport = TransportKafka
		} else {
			c.Notifications.Transport = TransportChannel
		}
	}
	setDefault(&c.Notifications.PublishTimeoutMs, 2000)

	setDefault(&c.Booking.MaxAttempts, 4)
	setDefault(&c.Booking.InitialBackoffMs, 25)
	setDefault(&c.Booking.SeatsCacheTTLSeconds, 300)

	if len(c.Itinerary.Stops) == 0 {
		for _, s := range domain.DefaultStops() {
			c.Itinerary.Stops = append(c.Itinerary.Stops, StopConfig{Name: s.Name, DistanceKm: s.DistanceKm})
		}
	}
	setDefault(&c.Itinerary.BaseFare, int64(200))
	setDefault(&c.Itinerary.PerKmFare, int64(2))
	setDefault(&c.Itinerary.MealStopIndex, 2)
	setDefault(&c.Itinerary.SeatsPerDeck, 15)

	if len(c.Meals) == 0 {
		c.Meals = domain.DefaultMeals()
	}

	setDefault(&c.Risk.TimeoutMs, 300)
	setDefault(&c.Risk.CacheTTLSeconds, 3600)

	setDefault(&c.SMTP.Port, 587)
	setDefault(&c.SMTP.From, "no-reply@busbooking.local")

	setDefault(&c.Log.Level, "info")
}

func setDefault[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Notifications.Transport {
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("notifications transport %q needs kafka.brokers", TransportKafka)
		}
	case TransportChannel, TransportNone:
	default:
		return fmt.Errorf("unknown notifications transport %q", c.Notifications.Transport)
	}
	if c.Itinerary.MealStopIndex < 0 || c.Itinerary.MealStopIndex >= len(c.Itinerary.Stops) {
		return fmt.Errorf("meal stop index %d is outside the itinerary", c.Itinerary.MealStopIndex)
	}
	if _, err := c.Itinerary.Build(); err != nil {
		return fmt.Errorf("itinerary: %w", err)
	}
	return nil
}

