package bot

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Auth struct {
		RedisURL string `toml:"redis_url"`
	} `toml:"auth"`
	Bot struct {
		Token    string  `toml:"token"`
		AdminIDs []int64 `toml:"admin_ids"`
	} `toml:"bot"`
	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`
}

func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is not specified in config")
	}

	return &config, nil
}
