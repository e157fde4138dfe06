package config

import (
	"crypto/rsa"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Config struct {
	JWTPublicKey      *rsa.PublicKey
	JWTSecret         []byte
	DatabaseURL       string
	Port              string
	RedisAddress      string
	RedisPassword     string
	RabbitMQURL       string
	GuardianMailQueue string
	NotifyTimeout     time.Duration
	AllowedOrigins    []string
	LogLevel          string
}

func Load() *Config {
	var publicKey *rsa.PublicKey
	secret := os.Getenv("JWT_SECRET")
	publicKeyPath := os.Getenv("PUBLIC_KEY_PATH")
	if secret == "" && publicKeyPath == "" {
		publicKeyPath = "/etc/certs/public.pem"
	}
	if publicKeyPath != "" {
		key, err := loadPublicKey(publicKeyPath)
		if err != nil {
			panic("Failed to load public key: " + err.Error())
		}
		publicKey = key
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mailQueue := os.Getenv("GUARDIAN_MAIL_QUEUE")
	if mailQueue == "" {
		mailQueue = "guardian-mail"
	}

	notifyTimeout := 5 * time.Second
	if raw := os.Getenv("NOTIFY_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			panic("NOTIFY_TIMEOUT must be a positive duration, got " + raw)
		}
		notifyTimeout = d
	}

	origins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = splitList(raw)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	cfg := &Config{
		JWTPublicKey:      publicKey,
		DatabaseURL:       dbURL,
		Port:              port,
		RedisAddress:      os.Getenv("REDIS_ADDRESS"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		GuardianMailQueue: mailQueue,
		NotifyTimeout:     notifyTimeout,
		AllowedOrigins:    origins,
		LogLevel:          logLevel,
	}
	// An RS256 key wins; the shared secret only serves the legacy login endpoint.
	if publicKey == nil {
		cfg.JWTSecret = []byte(secret)
	}
	return cfg
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return publicKey, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
