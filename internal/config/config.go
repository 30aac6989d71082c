package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"5000"`
	BridgePort string `yaml:"bridge-port" env:"BRIDGE_PORT" env-default:"9090"`
	Redis      Redis  `yaml:"redis"`
	Client     Client `yaml:"client"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Client configures the terminal client and the polling cadence of the
// pairing and gameplay loops.
type Client struct {
	ServerHost   string        `yaml:"server-host" env:"SERVER_HOST" env-default:"localhost"`
	ServerPort   string        `yaml:"server-port" env:"SERVER_PORT" env-default:"5000"`
	PollInterval time.Duration `yaml:"poll-interval" env:"POLL_INTERVAL" env-default:"1s"`
	ReadTimeout  time.Duration `yaml:"read-timeout" env:"READ_TIMEOUT" env-default:"10s"`
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

func (that *Client) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", that.ServerHost, that.ServerPort)
}
