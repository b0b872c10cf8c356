package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Asana    AsanaConfig
	Workers  WorkersConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	APIKey       string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	Token   string
	BaseURL string
}

type AsanaConfig struct {
	Token   string
	BaseURL string
}

type WorkersConfig struct {
	ReportWorkers int
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			APIKey:       getEnv("API_KEY", ""),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./ascope.db"),
		},
		GitHub: GitHubConfig{
			Token:   getEnv("GITHUB_ACCESS_TOKEN", ""),
			BaseURL: getEnv("GITHUB_BASE_URL", ""),
		},
		Asana: AsanaConfig{
			Token:   getEnv("ASANA_ACCESS_TOKEN", ""),
			BaseURL: getEnv("ASANA_BASE_URL", ""),
		},
		Workers: WorkersConfig{
			ReportWorkers: getEnvAsInt("REPORT_WORKERS", 2),
		},
	}

	return nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}
