package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"agora"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env-default:"localhost:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type StripeConfig struct {
	APIKey            string `yaml:"api_key" env-default:""`
	WebhookSecret     string `yaml:"webhook_secret" env-default:""`
	TestMode          bool   `yaml:"test_mode" env-default:"false"`
	TestKey           string `yaml:"test_key" env-default:""`
	TestWebhookSecret string `yaml:"test_webhook_secret" env-default:""`
	SuccessURL        string `yaml:"success_url" env-default:""`
	CancelURL         string `yaml:"cancel_url" env-default:""`
}

type MailConfig struct {
	APIKey    string `yaml:"api_key" env-default:""`
	FromEmail string `yaml:"from_email" env-default:""`
	FromName  string `yaml:"from_name" env-default:"Agora"`
	InviteURL string `yaml:"invite_url" env-default:""`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	APIKey  string `yaml:"api_key" env-default:""`
}

type WaitlistConfig struct {
	PositionTTL time.Duration `yaml:"position_ttl" env-default:"30s"`
	CountTTL    time.Duration `yaml:"count_ttl" env-default:"300s"`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Listen   Listen         `yaml:"listen"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Mail     MailConfig     `yaml:"mail"`
	Telegram TelegramConfig `yaml:"telegram"`
	Waitlist WaitlistConfig `yaml:"waitlist"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
