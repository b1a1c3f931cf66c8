package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Digital-Creators-Team/chain-slots-engine/logging"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment      string                 `mapstructure:"environment"`
	Server           ServerConfig           `mapstructure:"server"`
	Bridge           BridgeConfig           `mapstructure:"bridge"`
	Redis            RedisConfig            `mapstructure:"redis"`
	Kafka            KafkaConfig            `mapstructure:"kafka"`
	JWT              JWTConfig              `mapstructure:"jwt"`
	Logging          logging.Config         `mapstructure:"logging"`
	ExternalServices ExternalServicesConfig `mapstructure:"external_services"`
	Wallet           WalletConfig           `mapstructure:"wallet"`
	Game             GameConfig             `mapstructure:"game"`
}

// WalletConfig identifies the wallet this host operates. Keys stay in the
// remote signer; only the address lives here.
type WalletConfig struct {
	Address string `mapstructure:"address"`
	// TokenDecimals is how many decimal places one token carries; base
	// units are token * 10^TokenDecimals.
	TokenDecimals int32 `mapstructure:"token_decimals"`
}

// GameConfig points at the game definition (single file or merged directory).
type GameConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
}

// BridgeConfig holds game-surface bridge policy configuration
type BridgeConfig struct {
	// AllowedOrigin restricts inbound messages to a single trusted origin.
	// Empty means any origin is accepted (development only).
	AllowedOrigin string `mapstructure:"allowed_origin"`
	// SpinCooldown is the minimum interval between accepted spin requests,
	// measured from the last accepted spin.
	SpinCooldown time.Duration `mapstructure:"spin_cooldown"`
	// ClaimWindow is how long a submitted spin may wait for its outcome
	// before it is expired and its reservation released.
	ClaimWindow time.Duration `mapstructure:"claim_window"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers       []string          `mapstructure:"brokers"`
	ConsumerGroup string            `mapstructure:"consumer_group"`
	Topics        map[string]string `mapstructure:"topics"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// ExternalServicesConfig holds external service configurations
type ExternalServicesConfig struct {
	ChainService  ServiceConfig `mapstructure:"chain_service"`
	SignerService ServiceConfig `mapstructure:"signer_service"`
}

// ServiceConfig holds external service configuration
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from YAML file using Viper
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	// Enable environment variable substitution
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// LoadByEnv loads configuration based on environment using Viper
func LoadByEnv(configDir string) (*Config, error) {
	v := viper.New()

	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	env := viper.GetString("ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	v.SetConfigName(fmt.Sprintf("config-%s", env))
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Bridge.SpinCooldown == 0 {
		c.Bridge.SpinCooldown = time.Second
	}
	if c.Bridge.ClaimWindow == 0 {
		c.Bridge.ClaimWindow = 2 * time.Minute
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.ExternalServices.ChainService.Timeout == 0 {
		c.ExternalServices.ChainService.Timeout = 30 * time.Second
	}
	if c.ExternalServices.SignerService.Timeout == 0 {
		c.ExternalServices.SignerService.Timeout = 10 * time.Second
	}
	if c.Game.ConfigPath == "" {
		c.Game.ConfigPath = "config/game"
	}
	if c.Wallet.TokenDecimals == 0 {
		c.Wallet.TokenDecimals = 6
	}
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return c.Addr
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
