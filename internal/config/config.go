package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string   `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis    `yaml:"redis"`
	Registry   Registry `yaml:"registry"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Registry struct {
	Capacity        int           `yaml:"capacity" env:"REGISTRY_CAPACITY" env-default:"1000"`
	CleanupInterval time.Duration `yaml:"cleanup-interval" env:"REGISTRY_CLEANUP_INTERVAL" env-default:"5s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
