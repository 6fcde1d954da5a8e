package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Addr                 string
	SecretKey            string
	DatabaseURL          string
	PostsPerPage         int
	Languages            []string
	MSTranslatorKey      string
	MSTranslatorRegion   string
	MSTranslatorEndpoint string
	RedisURL             string
	TemplatesDir         string
	LogLevel             string
	LogFormat            string
}

// loadConfig reads .env (if any) and then the process environment.
// It reports whether a .env file was found.
func loadConfig() (Config, bool) {
	dotenv := godotenv.Load() == nil

	return Config{
		Addr:                 getEnv("ADDR", ":5000"),
		SecretKey:            getEnv("SECRET_KEY", "you-wont-guess"),
		DatabaseURL:          getEnv("DATABASE_URL", "sqlite:///app.db"),
		PostsPerPage:         getEnvInt("POSTS_PER_PAGE", 25),
		Languages:            splitList(getEnv("LANGUAGES", "en,es")),
		MSTranslatorKey:      os.Getenv("MS_TRANSLATOR_KEY"),
		MSTranslatorRegion:   os.Getenv("MS_TRANSLATOR_REGION"),
		MSTranslatorEndpoint: os.Getenv("MS_TRANSLATOR_ENDPOINT"),
		RedisURL:             os.Getenv("REDIS_URL"),
		TemplatesDir:         getEnv("TEMPLATES_DIR", "templates"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}, dotenv
}

// getEnv treats an empty variable the same as an unset one.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
