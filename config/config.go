package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode         string       `mapstructure:"mode"`
	Server       ServerConfig `mapstructure:"server"`
	JWT          JWTConfig    `mapstructure:"jwt"`
	Auth         AuthConfig   `mapstructure:"auth"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	HTTPPort string        `mapstructure:"HTTPPort"`
	Timeout  time.Duration `mapstructure:"HTTPTimeout"`
}

// JWTConfig holds the token signing settings. The secret is process-wide
// and immutable after startup; rotating it invalidates every issued token.
type JWTConfig struct {
	SecretKey string        `mapstructure:"secretKey"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL"`
	Issuer    string        `mapstructure:"issuer"`
	Audience  string        `mapstructure:"audience"`
}

type AuthConfig struct {
	BcryptCost int `mapstructure:"bcryptCost"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

type MetricsConfig struct {
	Port string `mapstructure:"port"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Environment variables override file values, e.g. JWT_SECRETKEY,
	// REPOSITORIES_POSTGRES_PASSWORD.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.JWT.SecretKey == "" {
		return Config{}, fmt.Errorf("jwt.secretKey must be configured")
	}
	if config.JWT.TokenTTL <= 0 {
		config.JWT.TokenTTL = 15 * time.Minute
	}

	return config, nil
}
