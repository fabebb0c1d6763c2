package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultPort                  = "8080"
	DefaultAccessTokenExpiryMin  = 15
	DefaultRefreshTokenExpiryMin = 10080 // 7 days
	DefaultMaxActiveSessions     = 5
	DefaultLoginMaxAttempts      = 5
	DefaultLockoutMinutes        = 15
	DefaultLogLevel              = "info"
)

type Config struct {
	Env  string
	Port string

	DBURL         string
	RedisAddr     string
	RedisPassword string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int

	MaxActiveSessions int
	LoginMaxAttempts  int
	LockoutMinutes    int

	CookieSecure bool
	LogLevel     string
}

// Load reads config/.env.dev or config/.env.prod depending on ENV, then
// resolves every setting from the environment. Values already present in the
// environment win over the file.
func Load() *Config {
	env := getEnv("ENV", "development")

	suffix := "dev"
	if env == "production" {
		suffix = "prod"
	}
	if err := godotenv.Load(fmt.Sprintf("config/.env.%s", suffix)); err != nil {
		log.Printf("No config/.env.%s file found, relying on environment", suffix)
	}

	return &Config{
		Env:                env,
		Port:               getEnv("PORT", DefaultPort),
		DBURL:              mustGetEnv("DB_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		RefreshExpiryMin:   getEnvAsInt("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiryMin),
		MaxActiveSessions:  getEnvAsInt("MAX_ACTIVE_SESSIONS", DefaultMaxActiveSessions),
		LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts),
		LockoutMinutes:     getEnvAsInt("LOCKOUT_MINUTES", DefaultLockoutMinutes),
		CookieSecure:       getEnvAsBool("COOKIE_SECURE", env == "production"),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}
