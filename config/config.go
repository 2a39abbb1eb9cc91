package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server Server
	DB     Database
	Redis  Redis
	Kafka  Kafka
	PayPal PayPal
	Mail   Mail
	OpenAI OpenAI
	Observ Observability
}

type Server struct {
	Port    string
	Env     string
	BaseURL string
}

type Database struct {
	URL string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Kafka struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type PayPal struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	TimeoutSeconds int
}

type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type OpenAI struct {
	APIKey string
	Model  string
}

type Observability struct {
	JaegerEndpoint string
}

// Load reads configuration from the environment. DATABASE_URL and the
// PayPal client credentials have no defaults: the process must not
// start without them.
func Load() (*Config, error) {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	paypalID := os.Getenv("PAYPAL_CLIENT_ID")
	paypalSecret := os.Getenv("PAYPAL_CLIENT_SECRET")
	if paypalID == "" || paypalSecret == "" {
		return nil, fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET must be set")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	mailPort, _ := strconv.Atoi(getEnv("MAIL_PORT", "587"))
	paypalTimeout, _ := strconv.Atoi(getEnv("PAYPAL_TIMEOUT_SECONDS", "30"))

	mailUsername := os.Getenv("MAIL_USERNAME")

	cfg := &Config{
		Server: Server{
			Port:    getEnv("PORT", "8080"),
			Env:     getEnv("ENV", "development"),
			BaseURL: getEnv("BASE_URL", "http://localhost:8080"),
		},
		DB: Database{
			URL: databaseURL,
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: Kafka{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "digital-store-mail"),
		},
		PayPal: PayPal{
			BaseURL:        getEnv("PAYPAL_BASE_URL", "https://api.sandbox.paypal.com"),
			ClientID:       paypalID,
			ClientSecret:   paypalSecret,
			TimeoutSeconds: paypalTimeout,
		},
		Mail: Mail{
			Host:     getEnv("MAIL_SERVER", "smtp.gmail.com"),
			Port:     mailPort,
			Username: mailUsername,
			Password: os.Getenv("MAIL_PASSWORD"),
			Sender:   getEnv("MAIL_DEFAULT_SENDER", mailUsername),
		},
		OpenAI: OpenAI{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		Observ: Observability{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
