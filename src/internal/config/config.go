package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logs     LogsSettings   `mapstructure:"logs"`
	App      Application    `mapstructure:"app"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Push     PushConfig     `mapstructure:"push"`
	Routes   RoutesConfig   `mapstructure:"routes"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name    string `mapstructure:"name"`
	Timeout int    `mapstructure:"timeout"`
	Version string `mapstructure:"version"`
}

type BackendConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
}

// StorageConfig selects the durable backend for the session snapshot.
// Driver is one of "redis", "mongo" or "memory".
type StorageConfig struct {
	Driver    string      `mapstructure:"driver"`
	Namespace string      `mapstructure:"namespace"`
	Redis     Redis       `mapstructure:"redis"`
	Mongo     MongoConfig `mapstructure:"mongo"`
}

type Redis struct {
	Url      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	Db       int    `mapstructure:"db"`
}

type MongoConfig struct {
	Url        string `mapstructure:"url"`
	DbName     string `mapstructure:"dbname"`
	Collection string `mapstructure:"collection"`
	Timeout    int    `mapstructure:"timeout"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url           string `mapstructure:"url"`
	Exchange      string `mapstructure:"exchange"`
	ExchangeType  string `mapstructure:"exchange-type"`
	ReceivedQueue string `mapstructure:"received-queue"`
	ResponseQueue string `mapstructure:"response-queue"`
	Durable       bool   `mapstructure:"durable"`
	AutoDelete    bool   `mapstructure:"auto-delete"`
	Internal      bool   `mapstructure:"internal"`
	NoWait        bool   `mapstructure:"no-wait"`
	Exclusive     bool   `mapstructure:"exclusive"`
	AutoAck       bool   `mapstructure:"auto-ack"`
	Consumer      string `mapstructure:"consumer"`
}

type RealtimeConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
}

type PushConfig struct {
	ChannelName           string `mapstructure:"channel-name"`
	RequirePhysicalDevice bool   `mapstructure:"require-physical-device"`
}

type RoutesConfig struct {
	PublicPrefix string `mapstructure:"public-prefix"`
	PublicEntry  string `mapstructure:"public-entry"`
	PrivateEntry string `mapstructure:"private-entry"`
}

func Load() *Configuration {
	cfg := read()
	logrus.Info("Configuration loaded")

	// Override with environment variables
	backendUrl := os.Getenv("BACKEND_URL")
	if backendUrl != "" {
		cfg.Backend.URL = backendUrl
	}

	storageDriver := os.Getenv("STORAGE_DRIVER")
	if storageDriver != "" {
		cfg.Storage.Driver = storageDriver
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Storage.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Storage.Redis.Db = db
		}
	}

	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Storage.Mongo.Url = mongoUri
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	realtimeUrl := os.Getenv("REALTIME_URL")
	if realtimeUrl != "" {
		cfg.Realtime.URL = realtimeUrl
	}

	return cfg
}

func read() *Configuration {
	viper.SetConfigFile("src/internal/config/cfg.yml")
	viper.AutomaticEnv()
	viper.SetConfigType("yml")

	setDefaults()

	var config Configuration

	// A missing config file is not fatal for the client: boot on defaults
	// and let the session hydrate as logged out.
	if err := viper.ReadInConfig(); err != nil {
		logrus.WithError(err).Warn("Config file not readable, using defaults")
	}

	if err := viper.Unmarshal(&config); err != nil {
		logrus.Panicf("Error unmarshalling config file, %s", err)
	}

	return &config
}

func setDefaults() {
	viper.SetDefault("app.name", "buildhub-client")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.timeout", 10)
	viper.SetDefault("logs.level", "info")
	viper.SetDefault("backend.url", "http://localhost:8080")
	viper.SetDefault("backend.timeout", 10)
	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("storage.namespace", "buildhub:client:session")
	viper.SetDefault("storage.mongo.dbname", "buildhub")
	viper.SetDefault("storage.mongo.collection", "client_sessions")
	viper.SetDefault("storage.mongo.timeout", 10)
	viper.SetDefault("queue.rabbitmq.exchange", "buildhub.notifications")
	viper.SetDefault("queue.rabbitmq.exchange-type", "topic")
	viper.SetDefault("queue.rabbitmq.received-queue", "notifications.received")
	viper.SetDefault("queue.rabbitmq.response-queue", "notifications.response")
	viper.SetDefault("queue.rabbitmq.durable", true)
	viper.SetDefault("queue.rabbitmq.auto-ack", true)
	viper.SetDefault("realtime.url", "ws://localhost:8080/ws")
	viper.SetDefault("realtime.timeout", 10)
	viper.SetDefault("push.channel-name", "default")
	viper.SetDefault("push.require-physical-device", true)
	viper.SetDefault("routes.public-prefix", "/auth")
	viper.SetDefault("routes.public-entry", "/auth/login")
	viper.SetDefault("routes.private-entry", "/projects")
}
