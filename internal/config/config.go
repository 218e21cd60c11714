// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	AppName                 string `yaml:"app_name"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	SMSProvider             `yaml:"sms_provider"`
	PaymentProvider         `yaml:"payment_provider"`
	Jobs                    `yaml:"jobs"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к RabbitMQ
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// SMSProvider структура для настройки SMS-шлюза, через который уходят OTP-коды
type SMSProvider struct {
	SMSAddress string        `yaml:"address"`
	SMSAPIKey  string        `yaml:"api_key"`
	SMSTimeout time.Duration `yaml:"timeout"`
	OTPTTL     time.Duration `yaml:"otp_ttl"`
}

// PaymentProvider структура для настройки платёжного шлюза
type PaymentProvider struct {
	PaymentAddress  string `yaml:"address"`
	PaymentShopID   string `yaml:"shop_id"`
	PaymentCurrency string `yaml:"currency"`
}

// Jobs структура с интервалами фоновых задач.
// Интервалы фиксированы конфигом и не меняются во время работы.
type Jobs struct {
	TrialExpiryInterval   time.Duration `yaml:"trial_expiry_interval"`
	TrialExpiryDailySweep time.Duration `yaml:"trial_expiry_daily_sweep"`
	TrialEndingInterval   time.Duration `yaml:"trial_ending_interval"`
	DueItemsInterval      time.Duration `yaml:"due_items_interval"`
}

// MustLoad функция для загрузки конфига, завершает процесс при любой ошибке чтения
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if cfg.TrialExpiryInterval == 0 {
		cfg.TrialExpiryInterval = time.Hour
	}
	if cfg.TrialExpiryDailySweep == 0 {
		cfg.TrialExpiryDailySweep = 24 * time.Hour
	}
	if cfg.TrialEndingInterval == 0 {
		cfg.TrialEndingInterval = 24 * time.Hour
	}
	if cfg.DueItemsInterval == 0 {
		cfg.DueItemsInterval = time.Minute
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	return &cfg
}
