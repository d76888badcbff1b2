package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	MySQLDSN    string
	RedisURL    string
	JWTSecret   string
	Port        string
	TokenTTLMin int
	FrontendURL string
	EnableSSL   bool
	SSLCert     string
	SSLKey      string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	_ = godotenv.Load()

	ttl, _ := strconv.Atoi(getenv("TOKEN_TTL_MIN", "1440"))
	ssl, _ := strconv.ParseBool(os.Getenv("ENABLE_SSL"))
	return Config{
		MySQLDSN:    getenv("MYSQL_DSN", "branchline:branchline@tcp(127.0.0.1:3306)/branchline?parseTime=true"),
		RedisURL:    getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:   getenv("JWT_SECRET", "dev-secret-key"),
		Port:        getenv("PORT", "8080"),
		TokenTTLMin: ttl,
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),
		EnableSSL:   ssl,
		SSLCert:     os.Getenv("SSL_CERT"),
		SSLKey:      os.Getenv("SSL_KEY"),
	}
}
