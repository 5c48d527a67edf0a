package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ChallengeStoreMemory = "memory"
	ChallengeStoreRedis  = "redis"

	UsageModeDirect = "direct"
	UsageModeQueue  = "queue"

	// DevelopmentSigningKey is used when auth.signingKey is not configured.
	// Never rely on it outside local development.
	DevelopmentSigningKey = "keyauth-development-signing-key"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Auth      AuthConfig
	Challenge ChallengeConfig
	Usage     UsageConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	SigningKey       string        `mapstructure:"signingKey"`
	Issuer           string        `mapstructure:"issuer"`
	TokenTTL         time.Duration `mapstructure:"tokenTTL"`
	ChallengeTTL     time.Duration `mapstructure:"challengeTTL"`
	AdminAPIKey      string        `mapstructure:"adminApiKey"`
	SecretSealingKey string        `mapstructure:"secretSealingKey"`
}

type ChallengeConfig struct {
	Store string `mapstructure:"store"`
}

type UsageConfig struct {
	Mode string `mapstructure:"mode"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// UsesDevelopmentSigningKey reports whether tokens are signed with the
// built-in fallback key.
func (c *AuthConfig) UsesDevelopmentSigningKey() bool {
	return c.SigningKey == "" || c.SigningKey == DevelopmentSigningKey
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.readTimeout", 5*time.Second)
	viper.SetDefault("server.writeTimeout", 10*time.Second)
	viper.SetDefault("server.idleTimeout", 120*time.Second)
	viper.SetDefault("server.shutdownPeriod", 15*time.Second)

	viper.SetDefault("database.url", "")
	viper.SetDefault("database.maxOpenConns", 25)
	viper.SetDefault("database.maxIdleConns", 25)
	viper.SetDefault("database.connMaxLifetime", 5*time.Minute)

	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", "0")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	viper.SetDefault("auth.signingKey", DevelopmentSigningKey)
	viper.SetDefault("auth.issuer", "keyauth-service")
	viper.SetDefault("auth.tokenTTL", time.Hour)
	viper.SetDefault("auth.challengeTTL", 5*time.Minute)
	viper.SetDefault("auth.adminApiKey", "")
	viper.SetDefault("auth.secretSealingKey", "")

	viper.SetDefault("challenge.store", ChallengeStoreMemory)
	viper.SetDefault("usage.mode", UsageModeDirect)
	viper.SetDefault("cors.allowedOrigins", []string{})

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AllowEmptyEnv(true)

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
