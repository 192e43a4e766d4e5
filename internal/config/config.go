package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	WhatsApp WhatsAppConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port        string
	Environment string
	LogFilePath string
	UploadsDir  string
	RedisURL    string
}

type DatabaseConfig struct {
	Connection string
}

type WhatsAppConfig struct {
	PhoneID     string
	AccessToken string
	VerifyToken string
	AppSecret   string
}

type APIKeys struct {
	GoogleGemini string
	LlamaCloud   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:        getEnv("APP_PORT", "8000"),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "app.log"),
			UploadsDir:  getEnv("UPLOADS_DIR", "./uploads"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		WhatsApp: WhatsAppConfig{
			PhoneID:     getEnv("PHONE_ID", ""),
			AccessToken: getEnv("ACCESS_TOKEN", ""),
			VerifyToken: getEnv("VERIFY_TOKEN", ""),
			AppSecret:   getEnv("APP_SECRET", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GEMINI_API_KEY", ""),
			LlamaCloud:   getEnv("LLAMA_CLOUD_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
