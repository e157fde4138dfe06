package config

import "os"

// RelayConfig holds configuration for the outbox relay service.
// This is a minimal config that only includes what the relay needs.
type RelayConfig struct {
	DatabaseURL        string
	RabbitMQURL        string
	IncidentEventQueue string
	HealthPort         string
	LogLevel           string
}

func LoadRelayConfig() *RelayConfig {
	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		panic("RABBITMQ_URL environment variable is required")
	}

	queue := os.Getenv("INCIDENT_EVENT_QUEUE")
	if queue == "" {
		queue = "incident-events"
	}

	healthPort := os.Getenv("RELAY_HEALTH_PORT")
	if healthPort == "" {
		healthPort = "8090"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &RelayConfig{
		DatabaseURL:        dbURL,
		RabbitMQURL:        rabbitURL,
		IncidentEventQueue: queue,
		HealthPort:         healthPort,
		LogLevel:           logLevel,
	}
}
