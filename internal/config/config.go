package config

import (
	"time"

	"github.com/spf13/viper"
	pkgconfig "github.com/weiawesome/majex-chat/pkg/config"
	"github.com/weiawesome/majex-chat/pkg/database"
	"github.com/weiawesome/majex-chat/pkg/log"
	"github.com/weiawesome/majex-chat/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	WebSocket WebSocketConfig
	Database  DatabaseConfig
	ID        IDConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Events    EventsConfig
	Log       log.Config
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type GRPCConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// DefaultMaxMessageSize is the inbound frame limit in bytes. Message text has
// no length limit of its own, so this only guards against runaway frames.
const DefaultMaxMessageSize = 1 << 20

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	database.Config `mapstructure:",squash"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

type IDConfig struct {
	Generator string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Prefix string
	TTL    time.Duration
}

type EventsConfig struct {
	Driver  string
	Channel string
	Kafka   pubsub.KafkaConfig
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50061)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.send_timeout", "250ms")
	v.SetDefault("websocket.max_message_size", DefaultMaxMessageSize)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.allowed_origins", []string{"*"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "majex_chat.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.write_timeout", "5s")
	v.SetDefault("id.generator", "ulid")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.prefix", "chat:history")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.channel", pubsub.ChannelChatMessages)
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.topic", "chat-messages")
	v.SetDefault("events.kafka.partitions", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "chat-service")
}

func fromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("events.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ReadTimeout = parseDuration(v, "server.read_timeout", 15*time.Second)
	cfg.Server.WriteTimeout = parseDuration(v, "server.write_timeout", 15*time.Second)
	cfg.Server.IdleTimeout = parseDuration(v, "server.idle_timeout", 60*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.WebSocket.SendTimeout = parseDuration(v, "websocket.send_timeout", 250*time.Millisecond)
	cfg.Database.WriteTimeout = parseDuration(v, "database.write_timeout", 5*time.Second)
	cfg.Cache.TTL = parseDuration(v, "cache.ttl", 30*time.Second)

	// The ping must land before the peer's read deadline expires.
	if cfg.WebSocket.PingInterval >= cfg.WebSocket.PongWait {
		cfg.WebSocket.PingInterval = cfg.WebSocket.PongWait * 9 / 10
	}

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
