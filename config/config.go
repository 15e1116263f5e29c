package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Model           string

	PromptsDir string
	RubricsDir string

	// ReplySamples is the number of concurrent recipient samples used for
	// majority voting.
	ReplySamples int
	MaxTurns     int

	// AllowTestBypass gates the recipient bypass token. Off by default;
	// never enable it on an externally reachable deployment.
	AllowTestBypass bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] No .env file found, using environment variables")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DB_URL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:           getEnv("EMAILGAME_MODEL", "gpt-4o"),
		PromptsDir:      getEnv("EMAILGAME_PROMPTS_DIR", "prompts"),
		RubricsDir:      getEnv("EMAILGAME_RUBRICS_DIR", "rubrics"),
		ReplySamples:    getEnvInt("EMAILGAME_REPLY_SAMPLES", 5),
		MaxTurns:        getEnvInt("EMAILGAME_MAX_TURNS", 5),
		AllowTestBypass: getEnvBool("EMAILGAME_ALLOW_TEST_BYPASS", false),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[ERROR] Invalid integer for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[ERROR] Invalid boolean for %s: %q, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}
