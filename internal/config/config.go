package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
	DriverNATS   = "nats"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Room     RoomConfig     `yaml:"room"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

type HTTPConfig struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"5s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
	SecureCookies  bool          `yaml:"secure_cookies" env:"HTTP_SECURE_COOKIES" env-default:"false"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"redis"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"2s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"1s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"1s"`
	MaxRetries   int           `yaml:"max_retries" env-default:"2"`
}

type RoomConfig struct {
	TTL             time.Duration `yaml:"ttl" env:"ROOM_TTL" env-default:"20m"`
	DefaultMaxUsers int           `yaml:"default_max_users" env-default:"5"`
	MinUsers        int           `yaml:"min_users" env-default:"2"`
	MaxUsers        int           `yaml:"max_users" env-default:"10"`
}

type RealtimeConfig struct {
	Driver           string `yaml:"driver" env:"REALTIME_DRIVER" env-default:"redis"`
	NATSURL          string `yaml:"nats_url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	SubscriberBuffer int    `yaml:"subscriber_buffer" env-default:"32"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 5 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverRedis
	}
	if c.Realtime.Driver == "" {
		c.Realtime.Driver = DriverRedis
	}
	if c.Realtime.SubscriberBuffer <= 0 {
		c.Realtime.SubscriberBuffer = 32
	}
	if c.Room.TTL <= 0 {
		c.Room.TTL = 20 * time.Minute
	}
	if c.Room.MinUsers <= 0 {
		c.Room.MinUsers = 2
	}
	if c.Room.MaxUsers < c.Room.MinUsers {
		c.Room.MaxUsers = 10
	}
	if c.Room.DefaultMaxUsers < c.Room.MinUsers || c.Room.DefaultMaxUsers > c.Room.MaxUsers {
		c.Room.DefaultMaxUsers = 5
	}
}
