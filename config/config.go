package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Payments PaymentsConfig `yaml:"payments"`
	Auth     AuthConfig     `yaml:"auth"`
	Orders   OrdersConfig   `yaml:"orders"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address      string `yaml:"address"`
	PublicDomain string `yaml:"public_domain"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL is the form golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	ManifestsTopic string   `yaml:"manifests_topic"`
	GroupID        string   `yaml:"group_id"`
}

type PaymentsConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	BagPriceCents int64  `yaml:"bag_price_cents"`
	Currency      string `yaml:"currency"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type OrdersConfig struct {
	HistoryCacheTTLSeconds int `yaml:"history_cache_ttl_seconds"`
	DispatchLockTTLSeconds int `yaml:"dispatch_lock_ttl_seconds"`
	DispatchTimeoutSeconds int `yaml:"dispatch_timeout_seconds"`
}

type WorkerConfig struct {
	RetrySweepMinutes int `yaml:"retry_sweep_minutes"`
	RetryBatchSize    int `yaml:"retry_batch_size"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
