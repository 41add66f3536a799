package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvProduction = "production"

// Config is loaded once at start-up and handed to constructors.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	SMS       SMSConfig
	Gym       GymConfig
	AMQP      AMQPConfig
	Whitelist []DefaultUser
}

type ServerConfig struct {
	Port         string
	Env          string
	Timezone     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TrustProxy is set when a reverse proxy supplies X-Forwarded-For.
	TrustProxy bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey   string
	ExpiryHours int
}

type AuthConfig struct {
	// SingleSession revokes every other session of a user on login.
	SingleSession bool
	// RateLimit caps public auth requests per client IP per minute; 0 disables it.
	RateLimit int
}

type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
}

// Enabled reports whether Twilio credentials are present.
func (c SMSConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

type GymConfig struct {
	OpenMinute     int
	CloseMinute    int
	CheckInLead    time.Duration
	CheckInGrace   time.Duration
	SweepInterval  time.Duration
	CleanupEnabled bool
}

type AMQPConfig struct {
	URL         string
	Queue       string
	DialTimeout time.Duration
	// Buffer is how many events may wait for the broker before new ones are dropped.
	Buffer int
}

// DefaultUser is a whitelist entry seeded at start-up.
type DefaultUser struct {
	PhoneNumber string
	Role        string
	EnglishName string
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, EnvProduction)
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "church_app")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.expiry_hours", 24*30)

	v.SetDefault("auth.single_session", false)
	v.SetDefault("auth.rate_limit", 20)

	// empty means api.twilio.com
	v.SetDefault("sms.base_url", "")

	v.SetDefault("gym.open_minute", 7*60)
	v.SetDefault("gym.close_minute", 22*60)
	v.SetDefault("gym.check_in_lead", 15*time.Minute)
	v.SetDefault("gym.check_in_grace", 15*time.Minute)
	v.SetDefault("gym.sweep_interval", 5*time.Minute)
	v.SetDefault("gym.cleanup_enabled", true)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "gym.reservations")
	v.SetDefault("amqp.dial_timeout", 5*time.Second)
	v.SetDefault("amqp.buffer", 256)

	v.SetDefault("whitelist.default_users", "")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.env", "APP_ENV")
	v.BindEnv("server.timezone", "APP_TIMEZONE")
	v.BindEnv("server.trust_proxy", "TRUST_PROXY")

	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.name", "DATABASE_NAME")
	v.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	v.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	v.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	v.BindEnv("auth.single_session", "AUTH_SINGLE_SESSION")
	v.BindEnv("auth.rate_limit", "AUTH_RATE_LIMIT")

	v.BindEnv("sms.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("sms.auth_token", "TWILIO_AUTH_TOKEN")
	v.BindEnv("sms.from_number", "TWILIO_PHONE_NUMBER")
	v.BindEnv("sms.base_url", "TWILIO_BASE_URL")

	v.BindEnv("gym.open_minute", "GYM_OPEN_MINUTE")
	v.BindEnv("gym.close_minute", "GYM_CLOSE_MINUTE")
	v.BindEnv("gym.check_in_lead", "GYM_CHECK_IN_LEAD")
	v.BindEnv("gym.check_in_grace", "GYM_CHECK_IN_GRACE")
	v.BindEnv("gym.sweep_interval", "GYM_SWEEP_INTERVAL")
	v.BindEnv("gym.cleanup_enabled", "GYM_CLEANUP_ENABLED")

	v.BindEnv("amqp.url", "RABBITMQ_URL")
	v.BindEnv("amqp.queue", "RABBITMQ_QUEUE")
	v.BindEnv("amqp.dial_timeout", "RABBITMQ_DIAL_TIMEOUT")
	v.BindEnv("amqp.buffer", "RABBITMQ_BUFFER")

	v.BindEnv("whitelist.default_users", "DEFAULT_USERS")
}

// Load reads .env (when present) and the environment into a Config.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			log.Printf("Config file not found, using defaults: %v", err)
		}
	}
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	whitelist, err := ParseDefaultUsers(v.GetString("whitelist.default_users"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			Env:          v.GetString("server.env"),
			Timezone:     v.GetString("server.timezone"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			TrustProxy:   v.GetBool("server.trust_proxy"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			SecretKey:   v.GetString("jwt.secret_key"),
			ExpiryHours: v.GetInt("jwt.expiry_hours"),
		},
		Auth: AuthConfig{
			SingleSession: v.GetBool("auth.single_session"),
			RateLimit:     v.GetInt("auth.rate_limit"),
		},
		SMS: SMSConfig{
			AccountSID: v.GetString("sms.account_sid"),
			AuthToken:  v.GetString("sms.auth_token"),
			FromNumber: v.GetString("sms.from_number"),
			BaseURL:    v.GetString("sms.base_url"),
		},
		Gym: GymConfig{
			OpenMinute:     v.GetInt("gym.open_minute"),
			CloseMinute:    v.GetInt("gym.close_minute"),
			CheckInLead:    v.GetDuration("gym.check_in_lead"),
			CheckInGrace:   v.GetDuration("gym.check_in_grace"),
			SweepInterval:  v.GetDuration("gym.sweep_interval"),
			CleanupEnabled: v.GetBool("gym.cleanup_enabled"),
		},
		AMQP: AMQPConfig{
			URL:         v.GetString("amqp.url"),
			Queue:       v.GetString("amqp.queue"),
			DialTimeout: v.GetDuration("amqp.dial_timeout"),
			Buffer:      v.GetInt("amqp.buffer"),
		},
		Whitelist: whitelist,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.SecretKey == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET_KEY must be set in production")
		}
		log.Printf("[CONFIG] JWT_SECRET_KEY not set, using development secret")
		c.JWT.SecretKey = "dev-secret-change-me"
	}
	if c.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("jwt.expiry_hours must be positive, got %d", c.JWT.ExpiryHours)
	}
	if c.Gym.OpenMinute < 0 || c.Gym.CloseMinute > 24*60 || c.Gym.OpenMinute >= c.Gym.CloseMinute {
		return fmt.Errorf("invalid gym opening hours %d-%d", c.Gym.OpenMinute, c.Gym.CloseMinute)
	}
	if c.Gym.SweepInterval <= 0 {
		c.Gym.SweepInterval = 5 * time.Minute
	}
	return nil
}

// ParseDefaultUsers parses "phone|role|name,phone|role|name".
// Role and name are optional; role defaults to member.
func ParseDefaultUsers(raw string) ([]DefaultUser, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var users []DefaultUser
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		u := DefaultUser{PhoneNumber: strings.TrimSpace(parts[0]), Role: "member"}
		if u.PhoneNumber == "" {
			return nil, fmt.Errorf("default user %q has no phone number", entry)
		}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			u.Role = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			u.EnglishName = strings.TrimSpace(parts[2])
		}
		users = append(users, u)
	}
	return users, nil
}
