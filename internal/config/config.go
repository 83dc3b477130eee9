package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuracion del servicio. Ningun componente del
// core lee variables de entorno directamente; todo entra por aqui.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	ClientURL   string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	ServerURL   string `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTSecret   string `env:"JWT_SECRET,required"`
	JWTTTLHours int    `env:"JWT_TTL_HOURS" envDefault:"168"`

	LLMAPIKey  string `env:"LLM_API_KEY,required"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-4.1-mini"`
	LLMAudioModel string `env:"LLM_AUDIO_MODEL" envDefault:"whisper-1"`

	GoogleClientID        string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"GOOGLE_CLIENT_SECRET"`
	TikTokClientKey       string `env:"TIKTOK_CLIENT_KEY"`
	TikTokClientSecret    string `env:"TIKTOK_CLIENT_SECRET"`
	InstagramClientID     string `env:"INSTAGRAM_CLIENT_ID"`
	InstagramClientSecret string `env:"INSTAGRAM_CLIENT_SECRET"`

	DefaultDailyLimit  int `env:"DEFAULT_DAILY_LIMIT" envDefault:"10"`
	DefaultWeeklyLimit int `env:"DEFAULT_WEEKLY_LIMIT" envDefault:"50"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuracion desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
