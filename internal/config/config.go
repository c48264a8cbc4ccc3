package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	CRM      CRMConfig
	Ai       AIConfig
	Agent    AgentConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string // Empty disables the JWT guard
}

type DatabaseConfig struct {
	Connection string // Empty disables transcript persistence
}

type CRMConfig struct {
	Provider      string // "salesforce" or "file"
	Username      string
	Password      string
	SecurityToken string
	ClientID      string
	ClientSecret  string
	LoginURL      string
	APIVersion    string
	RecordLimit   int
	FixturesDir   string
	CacheTTL      time.Duration
}

type AIConfig struct {
	LLMProvider         string // "ollama", "openai", "gemini"
	LLMModel            string
	OllamaBaseURL       string
	OpenAIBaseURL       string
	OpenAIAPIKey        string
	GeminiAPIKey        string
	RequestTimeout      time.Duration
	ScoreConcurrency    int
	ScoreCacheBackend   string // "memory", "redis" or "none"
	ScoreCacheTTL       time.Duration
	PromptsFile         string
	FollowUpTemperature float64
}

type AgentConfig struct {
	MaxIterations int
	SessionIdle   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		CRM: CRMConfig{
			Provider:      getEnv("CRM_PROVIDER", "salesforce"),
			Username:      getEnv("SF_USERNAME", ""),
			Password:      getEnv("SF_PASSWORD", ""),
			SecurityToken: getEnv("SF_TOKEN", ""),
			ClientID:      getEnv("SF_CLIENT_ID", ""),
			ClientSecret:  getEnv("SF_CLIENT_SECRET", ""),
			LoginURL:      getEnv("SF_LOGIN_URL", "https://login.salesforce.com"),
			APIVersion:    getEnv("SF_API_VERSION", "v59.0"),
			RecordLimit:   getEnvAsInt("CRM_RECORD_LIMIT", 50),
			FixturesDir:   getEnv("CRM_FIXTURES_DIR", "fixtures"),
			CacheTTL:      getEnvAsDuration("CRM_CACHE_TTL", 5*time.Minute),
		},
		Ai: AIConfig{
			LLMProvider:         getEnv("LLM_PROVIDER", "openai"),
			LLMModel:            getEnv("LLM_MODEL", "gpt-4"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
			GeminiAPIKey:        getEnv("GOOGLE_GEMINI_API_KEY", ""),
			RequestTimeout:      getEnvAsDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
			ScoreConcurrency:    getEnvAsInt("SCORE_CONCURRENCY", 1),
			ScoreCacheBackend:   getEnv("SCORE_CACHE_BACKEND", "memory"),
			ScoreCacheTTL:       getEnvAsDuration("SCORE_CACHE_TTL", 30*time.Minute),
			PromptsFile:         getEnv("PROMPTS_FILE", ""),
			FollowUpTemperature: getEnvAsFloat("FOLLOWUP_TEMPERATURE", 0.7),
		},
		Agent: AgentConfig{
			MaxIterations: getEnvAsInt("AGENT_MAX_ITERATIONS", 8),
			SessionIdle:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
