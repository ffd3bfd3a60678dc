package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultConfigPath = "src/internal/config/cfg.yml"

type Configuration struct {
	Logs     LogsSettings     `mapstructure:"logs"`
	App      Application      `mapstructure:"app"`
	Database Database         `mapstructure:"database"`
	Queue    QueueConfig      `mapstructure:"queue"`
	Redis    Redis            `mapstructure:"redis"`
	Security SecuritySettings `mapstructure:"security"`
	Server   ServerSettings   `mapstructure:"server"`
	Pairing  PairingConfig    `mapstructure:"pairing"`
	Tracker  TrackerConfig    `mapstructure:"tracker"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name    string `mapstructure:"name"`
	Timeout int    `mapstructure:"timeout"`
	Version string `mapstructure:"version"`
}

type Database struct {
	Url            string `mapstructure:"url"`
	DbName         string `mapstructure:"dbname"`
	LogsCollection string `mapstructure:"logs-collection"`
	Timeout        int    `mapstructure:"timeout"`
	// Transactions inserts each log batch in one transaction. Requires a replica set.
	Transactions bool `mapstructure:"transactions"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange-type"`
	RoutingKey   string `mapstructure:"routing-key"`
	Durable      bool   `mapstructure:"durable"`
	AutoDelete   bool   `mapstructure:"auto-delete"`
	Internal     bool   `mapstructure:"internal"`
	NoWait       bool   `mapstructure:"no-wait"`
}

type Redis struct {
	Url       string `mapstructure:"url"`
	Password  string `mapstructure:"password"`
	Db        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key-prefix"`
}

type SecuritySettings struct {
	// DashboardJwtKey enables the dashboard session check on pair/start when set.
	DashboardJwtKey string `mapstructure:"dashboard-jwt-key"`
	// AllowLegacyIdentity keeps accepting a body user_id on ingestion without a token.
	AllowLegacyIdentity bool `mapstructure:"allow-legacy-identity"`
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

// PairingConfig covers the server-side code and token stores.
type PairingConfig struct {
	Store           string        `mapstructure:"store"`
	CodeTTL         time.Duration `mapstructure:"code-ttl"`
	TokenTTL        time.Duration `mapstructure:"token-ttl"`
	MaxAttempts     int           `mapstructure:"max-attempts"`
	MinUserIDLength int           `mapstructure:"min-user-id-length"`
}

// TrackerConfig covers the client-resident agent.
type TrackerConfig struct {
	ServerUrl       string        `mapstructure:"server-url"`
	StatePath       string        `mapstructure:"state-path"`
	SyncInterval    time.Duration `mapstructure:"sync-interval"`
	MinSession      time.Duration `mapstructure:"min-session"`
	MinTokenLength  int           `mapstructure:"min-token-length"`
	MinUserIDLength int           `mapstructure:"min-user-id-length"`
	RequestTimeout  time.Duration `mapstructure:"request-timeout"`
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Load reads the configuration file named by CONFIG_PATH (or the default
// location) and applies environment overrides. It panics on invalid config.
func Load() *Configuration {
	cfg, err := LoadFrom(Path())
	if err != nil {
		logrus.Panicf("Error loading configuration: %s", err)
	}
	logrus.Info("Configuration loaded")

	return cfg
}

// Path returns CONFIG_PATH, or the default location when it is unset.
func Path() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultConfigPath
}

// LoadFrom reads the configuration at path. A missing file is not an error;
// defaults and environment variables are used instead.
func LoadFrom(path string) (*Configuration, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
		logrus.WithField("path", path).Warn("Config file not found, using defaults")
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "smart-time-tracker")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.timeout", 10)

	v.SetDefault("logs.level", "info")

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read-timeout", 15)
	v.SetDefault("server.write-timeout", 15)
	v.SetDefault("server.idle-timeout", 60)

	v.SetDefault("database.url", "mongodb://localhost:27017")
	v.SetDefault("database.dbname", "time_tracker")
	v.SetDefault("database.logs-collection", "activity_logs")
	v.SetDefault("database.timeout", 10)
	v.SetDefault("database.transactions", false)

	v.SetDefault("redis.url", "localhost:6379")
	v.SetDefault("redis.key-prefix", "stt")

	v.SetDefault("queue.rabbitmq.exchange", "time-tracker")
	v.SetDefault("queue.rabbitmq.exchange-type", "topic")
	v.SetDefault("queue.rabbitmq.routing-key", "activity.logs")
	v.SetDefault("queue.rabbitmq.durable", true)

	v.SetDefault("security.allow-legacy-identity", true)

	v.SetDefault("pairing.store", StoreMemory)
	v.SetDefault("pairing.code-ttl", "2m")
	v.SetDefault("pairing.token-ttl", "720h")
	v.SetDefault("pairing.max-attempts", 5)
	v.SetDefault("pairing.min-user-id-length", 6)

	v.SetDefault("tracker.server-url", "http://localhost:3000")
	v.SetDefault("tracker.state-path", "tracker-state.db")
	v.SetDefault("tracker.sync-interval", "30s")
	v.SetDefault("tracker.min-session", "1s")
	v.SetDefault("tracker.min-token-length", 20)
	v.SetDefault("tracker.min-user-id-length", 6)
	v.SetDefault("tracker.request-timeout", "0s")
}

func applyEnvOverrides(cfg *Configuration) {
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	jwtKey := os.Getenv("DASHBOARD_JWT_KEY")
	if jwtKey != "" {
		cfg.Security.DashboardJwtKey = jwtKey
	}

	port := os.Getenv("PORT")
	if port != "" {
		cfg.Server.Port = port
	}

	collectorUrl := os.Getenv("COLLECTOR_URL")
	if collectorUrl != "" {
		cfg.Tracker.ServerUrl = collectorUrl
	}
}

// Validate rejects values no component can work with.
func (c *Configuration) Validate() error {
	switch c.Pairing.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("config: pairing.store must be %q or %q, got %q", StoreMemory, StoreRedis, c.Pairing.Store)
	}
	if c.Pairing.CodeTTL <= 0 {
		return errors.New("config: pairing.code-ttl must be positive")
	}
	if c.Pairing.TokenTTL <= 0 {
		return errors.New("config: pairing.token-ttl must be positive")
	}
	if c.Pairing.MaxAttempts < 1 {
		return errors.New("config: pairing.max-attempts must be at least 1")
	}
	if c.Tracker.SyncInterval <= 0 {
		return errors.New("config: tracker.sync-interval must be positive")
	}
	if c.Tracker.MinSession < 0 {
		return errors.New("config: tracker.min-session must not be negative")
	}
	if c.Server.Port == "" {
		return errors.New("config: server.port must be set")
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	return nil
}
