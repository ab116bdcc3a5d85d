package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Session store
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string
	EventsTopic  string

	// Remote assist service (symptom analysis, simulation content)
	AssistBaseURL        string
	AssistRequestTimeout time.Duration

	// Speech services
	SpeechBaseURL        string
	SpeechRequestTimeout time.Duration
	SpeechLanguage       string
	SpeechVoiceType      string

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Catalog files
	VocabularyPath string
	RedactRulePath string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 8*1024*1024)),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carepath"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carepath123"),
		PostgresDB:       getEnv("POSTGRES_DB", "carepath"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "carepath-platform"),
		EventsTopic:  getEnv("KAFKA_EVENTS_TOPIC", "carepath.intake.events"),

		AssistBaseURL:        getEnv("ASSIST_BASE_URL", "http://localhost:8090"),
		AssistRequestTimeout: getDuration("ASSIST_REQUEST_TIMEOUT", 30*time.Second),

		SpeechBaseURL:        getEnv("SPEECH_BASE_URL", "http://localhost:8091"),
		SpeechRequestTimeout: getDuration("SPEECH_REQUEST_TIMEOUT", 60*time.Second),
		SpeechLanguage:       getEnv("SPEECH_LANGUAGE", "en"),
		SpeechVoiceType:      getEnv("SPEECH_VOICE_TYPE", "female"),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", ""),

		VocabularyPath: getEnv("VOCABULARY_PATH", ""),
		RedactRulePath: getEnv("REDACT_RULE_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
