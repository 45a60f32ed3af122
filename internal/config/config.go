package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ReturnPolicyCashOnly = "cash_only"
	ReturnPolicyAny      = "any"
)

type Config struct {
	Port                    string
	AllowedOrigin           string
	DatabaseURL             string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	ReportTTLSeconds        int
	AuthSecret              string
	AccessTokenTTLMinutes   int
	ReclassifySettledCredit bool
	ReturnPolicy            string
}

func Load() Config {
	// A missing .env file is fine; real deployments export variables directly.
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("REPORT_CACHE_TTL_SECONDS", "20"))
	if err != nil || ttl < 1 {
		ttl = 20
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	returnPolicy := strings.ToLower(strings.TrimSpace(getEnv("RETURN_POLICY", ReturnPolicyCashOnly)))
	if returnPolicy != ReturnPolicyCashOnly && returnPolicy != ReturnPolicyAny {
		log.Printf("[config] unknown RETURN_POLICY %q, falling back to %s", returnPolicy, ReturnPolicyCashOnly)
		returnPolicy = ReturnPolicyCashOnly
	}

	cfg := Config{
		Port:                    getEnv("PORT", "8080"),
		AllowedOrigin:           getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 redisDB,
		ReportTTLSeconds:        ttl,
		AuthSecret:              strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:   tokenTTL,
		ReclassifySettledCredit: getBoolEnv("RECLASSIFY_SETTLED_CREDIT", true),
		ReturnPolicy:            returnPolicy,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBoolEnv(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
