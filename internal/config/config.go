package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"7350"`
	Redis             Redis  `yaml:"redis"`
	SQLiteStoragePath string `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./data/accounts.db"`
	Match             Match  `yaml:"match"`
	AI                AI     `yaml:"ai"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Match holds the process-wide timing constants every match is created with.
type Match struct {
	TickRate             int `yaml:"tick-rate" env-default:"5"`
	MaxEmptySec          int `yaml:"max-empty-sec" env-default:"30"`
	DelayBetweenGamesSec int `yaml:"delay-between-games-sec" env-default:"5"`
	TurnTimeFastSec      int `yaml:"turn-time-fast-sec" env-default:"10"`
	TurnTimeNormalSec    int `yaml:"turn-time-normal-sec" env-default:"20"`
}

type AI struct {
	Address string        `yaml:"address" env:"AI_ADDRESS"`
	Timeout time.Duration `yaml:"timeout" env:"AI_TIMEOUT" env-default:"2s"`
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
