package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dev-dami/relaychat/internal/channel"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "RELAYCHAT_"

type Config struct {
	Log    Log    `yaml:"log" envPrefix:"LOG_"`
	Server Server `yaml:"server" envPrefix:"SERVER_"`
	Client Client `yaml:"client" envPrefix:"CLIENT_"`
	Redis  Redis  `yaml:"redis" envPrefix:"REDIS_"`
}

type Log struct {
	Level string `yaml:"level" env:"LEVEL"`
	File  string `yaml:"file" env:"FILE"`
}

type Server struct {
	Addr        string        `yaml:"addr" env:"ADDR"`
	HistorySize int           `yaml:"history_size" env:"HISTORY_SIZE"`
	PollTimeout time.Duration `yaml:"poll_timeout" env:"POLL_TIMEOUT"`
}

type Client struct {
	URL                string        `yaml:"url" env:"URL"`
	Transport          string        `yaml:"transport" env:"TRANSPORT"`
	FallbackTransport  string        `yaml:"fallback_transport" env:"FALLBACK_TRANSPORT"`
	TrackMessageLength bool          `yaml:"track_message_length" env:"TRACK_MESSAGE_LENGTH"`
	ReconnectInterval  time.Duration `yaml:"reconnect_interval" env:"RECONNECT_INTERVAL"`
	MaxReconnect       int           `yaml:"max_reconnect" env:"MAX_RECONNECT"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

func Default() Config {
	return Config{
		Log: Log{Level: "info"},
		Server: Server{
			Addr:        ":3000",
			HistorySize: 256,
			PollTimeout: 25 * time.Second,
		},
		Client: Client{
			URL:                "http://localhost:3000/atmosphere/the-chat",
			Transport:          channel.TransportWebSocket,
			FallbackTransport:  channel.TransportLongPolling,
			TrackMessageLength: true,
			ReconnectInterval:  channel.DefaultReconnectInterval,
			MaxReconnect:       channel.DefaultMaxReconnect,
		},
		Redis: Redis{Addr: "localhost:6379"},
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, errors.Wrap(err, "parse env")
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is empty")
	}
	if c.Server.HistorySize < 0 {
		return errors.New("server.history_size must not be negative")
	}
	if strings.TrimSpace(c.Client.URL) == "" {
		return errors.New("client.url is empty")
	}
	if !channel.KnownTransport(c.Client.Transport) {
		return errors.Errorf("client.transport: unknown transport %q", c.Client.Transport)
	}
	if c.Client.FallbackTransport != "" && !channel.KnownTransport(c.Client.FallbackTransport) {
		return errors.Errorf("client.fallback_transport: unknown transport %q", c.Client.FallbackTransport)
	}
	if c.Client.MaxReconnect < 0 {
		return errors.New("client.max_reconnect must not be negative")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr is empty")
	}
	return nil
}
