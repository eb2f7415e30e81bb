// Package config loads the settings shared by every account session and builds the
// collaborators a session is wired with.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/escrow-tf/steamgc"
	"github.com/escrow-tf/steamgc/api"
	"github.com/escrow-tf/steamgc/api/bans"
	"github.com/escrow-tf/steamgc/api/twofactor"
	"github.com/escrow-tf/steamgc/trust"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvPrefix = "STEAMGC"

type Config struct {
	// DataDir holds sentry files and login keys, one pair per account.
	DataDir   string        `mapstructure:"data_dir"`
	WebAPIKey string        `mapstructure:"web_api_key"`
	BanTTL    time.Duration `mapstructure:"ban_ttl"`

	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

// RedisConfig enables the shared web api response cache. An empty Addr keeps the
// cache in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type SessionConfig struct {
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("web_api_key", "")
	v.SetDefault("ban_ttl", "1h")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "steamgc:")

	v.SetDefault("session.reconnect_attempts", steamgc.DefaultMaxReconnects)
	v.SetDefault("session.reconnect_delay", steamgc.DefaultReconnectDelay)
	v.SetDefault("session.settle_delay", steamgc.DefaultSettleDelay)
	v.SetDefault("session.poll_interval", steamgc.DefaultPollInterval)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the config file at path, if one is given, with STEAMGC_* environment
// variables taking precedence over it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, eris.Wrapf(err, "could not read config file %s", path)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, eris.Wrap(err, "could not unmarshal config")
	}

	if config.Session.ReconnectAttempts < 0 {
		return nil, eris.Errorf("session.reconnect_attempts must not be negative, got %d", config.Session.ReconnectAttempts)
	}

	return config, nil
}

func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid log level %q", c.Log.Level)
	}

	zapConfig := zap.NewProductionConfig()
	if c.Log.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = level

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, eris.Wrap(err, "could not build logger")
	}
	return logger, nil
}

func (c *Config) NewTrustStore() *trust.FileStore {
	return trust.NewFileStore(c.DataDir)
}

// NewResponseCache picks redis when an address is configured.
func (c *Config) NewResponseCache() api.CacheAdaptor {
	if c.Redis.Addr == "" {
		return api.NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
	return api.NewRedisCache(client, c.Redis.Prefix)
}

func (c *Config) NewWebTransport(logger *zap.Logger) *api.HttpTransport {
	return api.NewTransport(api.HttpTransportOptions{
		WebApiKey:     c.WebAPIKey,
		ResponseCache: c.NewResponseCache(),
		Logger:        logger,
	})
}

// NewBanClient returns nil without a web api key; sessions then skip the target pre-check.
func (c *Config) NewBanClient(transport api.Transport) *bans.Client {
	if c.WebAPIKey == "" {
		return nil
	}
	return bans.NewClient(transport, c.BanTTL)
}

// SessionOptions wires a session with everything shared between accounts.
func (c *Config) SessionOptions(
	logger *zap.Logger,
	store trust.Store,
	banClient *bans.Client,
	clock *twofactor.Client,
) []steamgc.Option {
	options := []steamgc.Option{
		steamgc.WithLogger(logger),
		steamgc.WithTrustStore(store),
		steamgc.WithReconnectPolicy(c.Session.ReconnectAttempts, c.Session.ReconnectDelay),
		steamgc.WithSettleDelay(c.Session.SettleDelay),
		steamgc.WithPollInterval(c.Session.PollInterval),
	}

	if banClient != nil {
		options = append(options, steamgc.WithBanLookup(banClient))
	}
	if clock != nil {
		options = append(options, steamgc.WithAlignedTime(clock))
	}

	return options
}
