package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every application setting.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Data   DataConfig   `mapstructure:"data"`
	Game   GameConfig   `mapstructure:"game"`
	Store  StoreConfig  `mapstructure:"store"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimit      int           `mapstructure:"rate_limit"` // requests per minute per client, 0 disables
	TLSCert        string        `mapstructure:"tls_cert"`
	TLSKey         string        `mapstructure:"tls_key"`
}

// DataConfig points at the static question banks and translation catalogs.
type DataConfig struct {
	QuestionsDir    string   `mapstructure:"questions_dir"`
	TranslationsDir string   `mapstructure:"translations_dir"`
	Languages       []string `mapstructure:"languages"`
	DefaultLanguage string   `mapstructure:"default_language"`
}

// GameConfig holds engine and session settings.
type GameConfig struct {
	// CustomPolicy is "per-tag" or "any-tag".
	CustomPolicy string        `mapstructure:"custom_policy"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	// SweepInterval is how often the memory store drops expired sessions.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// StoreConfig selects the session backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "redis"
}

// RedisConfig supports the single, sentinel and cluster modes of go-redis.
type RedisConfig struct {
	Mode string `mapstructure:"mode"`
	// Addrs wins over Addr when both are set.
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
	MaxRetries int      `mapstructure:"max_retries"`
	KeyPrefix  string   `mapstructure:"key_prefix"`
}

// Addresses returns the configured Redis endpoints.
func (r RedisConfig) Addresses() []string {
	if len(r.Addrs) > 0 {
		return r.Addrs
	}
	if r.Addr != "" {
		return []string{r.Addr}
	}
	return nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 10*time.Second)
	vip.SetDefault("server.write_timeout", 30*time.Second)
	vip.SetDefault("server.idle_timeout", 60*time.Second)
	vip.SetDefault("server.request_timeout", 15*time.Second)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "https://localhost:5173"})
	vip.SetDefault("server.rate_limit", 120)

	vip.SetDefault("data.questions_dir", "data")
	vip.SetDefault("data.translations_dir", "translations")
	vip.SetDefault("data.languages", []string{"fr", "en"})
	vip.SetDefault("data.default_language", "fr")

	vip.SetDefault("game.custom_policy", "per-tag")
	vip.SetDefault("game.session_ttl", 24*time.Hour)
	vip.SetDefault("game.sweep_interval", 10*time.Minute)

	vip.SetDefault("store.driver", "memory")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.key_prefix", "bierephilo:session:")
}

func bindEnv(vip *viper.Viper) {
	vip.BindEnv("server.port", "PORT")
	vip.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	vip.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	vip.BindEnv("server.request_timeout", "SERVER_REQUEST_TIMEOUT")
	vip.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	vip.BindEnv("server.rate_limit", "RATE_LIMIT")
	vip.BindEnv("server.tls_cert", "TLS_CERT")
	vip.BindEnv("server.tls_key", "TLS_KEY")

	vip.BindEnv("data.questions_dir", "QUESTIONS_DIR")
	vip.BindEnv("data.translations_dir", "TRANSLATIONS_DIR")
	vip.BindEnv("data.languages", "LANGUAGES")
	vip.BindEnv("data.default_language", "DEFAULT_LANGUAGE")

	vip.BindEnv("game.custom_policy", "CUSTOM_POLICY")
	vip.BindEnv("game.session_ttl", "SESSION_TTL")

	vip.BindEnv("store.driver", "SESSION_STORE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")
	vip.BindEnv("redis.key_prefix", "REDIS_KEY_PREFIX")
}

// Load reads the optional config file at path, overlays environment variables
// and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	vip := viper.New()
	setDefaults(vip)
	bindEnv(vip)

	if path != "" {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				log.Printf("[Config] %s not found, using environment and defaults", path)
			} else {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// comma-separated env values arrive as a single element
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Data.Languages = splitList(cfg.Data.Languages)
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	if len(c.Data.Languages) == 0 {
		return errors.New("at least one language is required")
	}
	if !contains(c.Data.Languages, c.Data.DefaultLanguage) {
		return fmt.Errorf("default language %q is not in languages %v", c.Data.DefaultLanguage, c.Data.Languages)
	}
	switch c.Game.CustomPolicy {
	case "per-tag", "any-tag":
	default:
		return fmt.Errorf("unsupported custom policy %q", c.Game.CustomPolicy)
	}
	if c.Game.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if len(c.Redis.Addresses()) == 0 {
			return errors.New("redis store requires REDIS_ADDR or REDIS_ADDRS")
		}
	default:
		return fmt.Errorf("unsupported session store %q", c.Store.Driver)
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
