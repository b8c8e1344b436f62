// Package config loads application configuration from config.yaml and
// environment overrides using viper. Components receive the parsed Config by
// value; there is no package-level configuration state.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Mail   MailConfig   `mapstructure:"mail"`
	App    AppConfig    `mapstructure:"app"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a libpq-compatible connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Enabled  bool          `mapstructure:"enabled"`
}

type MailConfig struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	From    string `mapstructure:"from"`
	BaseURL string `mapstructure:"base_url"`
	Enabled bool   `mapstructure:"enabled"`
}

type AppConfig struct {
	// EditTokenSecret keys the HMAC that derives per-signup edit credentials.
	EditTokenSecret string `mapstructure:"edit_token_secret"`
	// AdminJWTSecret verifies admin session tokens issued by the auth service.
	AdminJWTSecret string `mapstructure:"admin_jwt_secret"`
	// PurgeInterval is how often the unconfirmed-signup purge runs.
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
	// TxRetries bounds retries of serializable transactions.
	TxRetries int `mapstructure:"tx_retries"`
}

// Load reads config.yaml from the given directory, applies environment
// overrides (EVENTSIGNUP_DB_HOST and the like), and fills in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("eventsignup")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env and defaults are enough for dev.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.App.EditTokenSecret == "" {
		return nil, fmt.Errorf("app.edit_token_secret is required")
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "eventsignup")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.cache_ttl", time.Minute)
	v.SetDefault("redis.enabled", false)

	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", "25")
	v.SetDefault("mail.from", "noreply@localhost")
	v.SetDefault("mail.enabled", false)

	v.SetDefault("app.purge_interval", 5*time.Minute)
	v.SetDefault("app.tx_retries", 4)
}
