package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Telegram WebApp auth. AuthMode must be an explicit "enforced" or
	// "disabled"; there is no environment-sniffed default.
	BotToken string `mapstructure:"bot_token"`
	AuthMode string `mapstructure:"auth_mode"`

	// Session tokens for the signal WebSocket.
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	// Storage (users/servers/channels).
	DSN string `mapstructure:"dsn"`

	// ICE servers handed to clients; audio itself never touches this server.
	STUNServers []string `mapstructure:"stun_servers"`
}

func Load() (*Config, error) {
	// Secrets (BOT_TOKEN, JWT_SECRET, DB_DSN) come from the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("auth_mode", "enforced")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("stun_servers", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
	})

	_ = v.BindEnv("bot_token", "BOT_TOKEN")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("dsn", "DB_DSN")
	_ = v.BindEnv("secret", "COOKIE_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Auth: %s\n", cfg.Mode, cfg.Port, cfg.AuthMode)
	return &cfg, nil
}
