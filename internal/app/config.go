package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type Config struct {
	Server struct {
		Port       string `toml:"port"`
		EnableAuth bool   `toml:"enable_auth"`
	} `toml:"server"`

	Auth struct {
		RedisURL         string `toml:"redis_url"`
		TokenHeader      string `toml:"token_header"`
		TokenKeyTemplate string `toml:"token_key_template"`
	} `toml:"auth"`

	API struct {
		InstructorHeader string         `toml:"instructor_header"`
		RequiredHeaders  []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Export struct {
		OutputDir    string  `toml:"output_dir"`
		EveryMinutes int     `toml:"every_minutes"`
		ProjectIDs   []int64 `toml:"project_ids"`
	} `toml:"export"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if config.Database.DSN == "" {
		return nil, fmt.Errorf("Database DSN is not specified in config")
	}

	logger.Debug.Printf("Loaded config for server on %s", config.Server.Port)

	return &config, nil
}
