package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Vendor    VendorConfig    `yaml:"vendor"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address"`
	BasePath        string        `yaml:"base_path"`
	SwaggerDir      string        `yaml:"swagger_dir"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

// VendorConfig describes the reservation vendor account. InsecureSkipVerify
// defaults to true: the vendor serves a certificate chain that standard
// verification rejects.
type VendorConfig struct {
	BaseURL            string        `yaml:"base_url"`
	UserID             string        `yaml:"user_id"`
	Secret             string        `yaml:"secret"`
	Language           string        `yaml:"language"`
	Timezone           string        `yaml:"timezone"`
	InsecureSkipVerify *bool         `yaml:"insecure_skip_verify"`
	ShortTimeout       time.Duration `yaml:"short_timeout"`
	LongTimeout        time.Duration `yaml:"long_timeout"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
}

func (v VendorConfig) SkipVerify() bool {
	if v.InsecureSkipVerify == nil {
		return true
	}
	return *v.InsecureSkipVerify
}

type ScheduleConfig struct {
	MaxSteps             int           `yaml:"max_steps"`
	MaxTransportFailures int           `yaml:"max_transport_failures"`
	StepTimeout          time.Duration `yaml:"step_timeout"`
	StepInterval         time.Duration `yaml:"step_interval"`
	RunTimeout           time.Duration `yaml:"run_timeout"`
	CacheTTL             time.Duration `yaml:"cache_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			BasePath:        "/api/v1",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Kafka: KafkaConfig{
			BookingTopic: "airbroker.bookings",
			GroupID:      "airbroker-worker",
		},
		Vendor: VendorConfig{
			Language:     "ID",
			Timezone:     "Asia/Jakarta",
			ShortTimeout: 5 * time.Second,
			LongTimeout:  60 * time.Second,
			MaxIdleConns: 100,
		},
		Schedule: ScheduleConfig{
			MaxSteps:             30,
			MaxTransportFailures: 3,
			StepTimeout:          60 * time.Second,
			StepInterval:         time.Second,
			RunTimeout:           100 * time.Second,
			CacheTTL:             5 * time.Minute,
		},
		RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
	}
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("VENDOR_BASE_URL", &c.Vendor.BaseURL)
	setString("VENDOR_USER_ID", &c.Vendor.UserID)
	setString("VENDOR_SECRET", &c.Vendor.Secret)
	setString("DATABASE_HOST", &c.Database.Host)
	setString("DATABASE_PASSWORD", &c.Database.Password)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("HTTP_ADDRESS", &c.HTTP.Address)

	if v, ok := os.LookupEnv("DATABASE_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
}

func (c *Config) Validate() error {
	if c.Vendor.BaseURL == "" {
		return errors.New("vendor.base_url is required")
	}
	if c.Vendor.UserID == "" {
		return errors.New("vendor.user_id is required")
	}
	if c.Vendor.ShortTimeout <= 0 || c.Vendor.LongTimeout <= 0 {
		return errors.New("vendor timeouts must be positive")
	}
	if c.Schedule.MaxSteps <= 0 {
		return errors.New("schedule.max_steps must be positive")
	}
	if c.Schedule.StepTimeout <= 0 {
		return errors.New("schedule.step_timeout must be positive")
	}
	if c.Schedule.RunTimeout <= 0 {
		return errors.New("schedule.run_timeout must be positive")
	}
	if c.HTTP.WriteTimeout > 0 && c.Schedule.RunTimeout >= c.HTTP.WriteTimeout {
		return errors.New("schedule.run_timeout must be below http.write_timeout")
	}
	if c.Schedule.MaxTransportFailures <= 0 {
		return errors.New("schedule.max_transport_failures must be positive")
	}
	if c.Schedule.StepInterval < 0 {
		return errors.New("schedule.step_interval must not be negative")
	}
	if c.RateLimit.Burst < 1 {
		return errors.New("rate_limit.burst must be >= 1")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", c.Log.Level)
	}
	return nil
}
