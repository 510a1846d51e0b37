package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything read from the environment at startup.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DBConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret    []byte
	ExpiresIn time.Duration
}

// Load reads the .env file if present and assembles the configuration.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}

	return &Config{
		Server: ServerConfig{
			Addr:         getEnv("SERVER_ADDR", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", "10s"),
			WriteTimeout: getDuration("WRITE_TIMEOUT", "10s"),
		},
		DB: DBConfig{
			DSN: getEnv("DATABASE_DSN", fmt.Sprintf(
				"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
				getEnv("DB_HOST", "localhost"),
				getEnv("DB_USER", "fanlink"),
				getEnv("DB_PASSWORD", "fanlink"),
				getEnv("DB_NAME", "fanlinkdb"),
				getEnv("DB_PORT", "5432"),
			)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:    []byte(mustEnv("JWT_SECRET")),
			ExpiresIn: getDuration("JWT_EXPIRES_IN", "72h"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s environment variable is required", key)
	}
	return v
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return d
}
