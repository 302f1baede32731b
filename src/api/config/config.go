package config

import (
	"log"
	"os"
)

type Config struct {
	MySQLDSN       string
	RedisURL       string
	JWTSecret      string
	Port           string
	MeritsURL      string
	MeritsAPIKey   string
	ColdStorageURL string
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
	return Config{
		MySQLDSN:       getenv("MYSQL_DSN", "daoscape:daoscape@tcp(127.0.0.1:3306)/daoscape?parseTime=true"),
		RedisURL:       getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:      getenv("JWT_SECRET", "c0a1b57cf7f9f6f1f3bd7c70a2e0d9564cc0ff4b1b4e3dd22a0f7f0a6c9daa11"),
		Port:           getenv("PORT", "8080"),
		MeritsURL:      getenv("MERITS_URL", "https://merits.blockscout.com"),
		MeritsAPIKey:   os.Getenv("MERITS_API_KEY"),
		ColdStorageURL: os.Getenv("COLD_STORAGE_URL"),
	}
}
