package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	DatabaseDriver                string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath                  string        `mapstructure:"DATABASE_PATH"`
	DiscordClientID               string        `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string        `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string        `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string        `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	JWTSecret                     string        `mapstructure:"JWT_SECRET"`
	RedisURL                      string        `mapstructure:"REDIS_URL"`
	StatsCacheTTL                 time.Duration `mapstructure:"STATS_CACHE_TTL"`
	StoreTimeout                  time.Duration `mapstructure:"STORE_TIMEOUT"`
	RegistrationIDPrefix          string        `mapstructure:"REGISTRATION_ID_PREFIX"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_PATH", "checkin.db")
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	viper.SetDefault("STATS_CACHE_TTL", "5m")
	viper.SetDefault("STORE_TIMEOUT", "5s")
	viper.SetDefault("REGISTRATION_ID_PREFIX", "REG")

	viper.BindEnv("DATABASE_DRIVER")
	viper.BindEnv("DATABASE_PATH")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("REDIS_URL")
	viper.BindEnv("STATS_CACHE_TTL")
	viper.BindEnv("STORE_TIMEOUT")
	viper.BindEnv("REGISTRATION_ID_PREFIX")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
