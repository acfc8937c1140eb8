package main

import (
	"flag"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kamrat/internal/app"
	"github.com/shrimpsizemoose/kamrat/internal/bot"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	cfg, err := bot.ReadConfig(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to read config: %v", err)
	}

	entityStore, err := app.NewStore(cfg.Database.DSN, cfg.Database.MigrationsDir)
	if err != nil {
		logger.Error.Fatalf("Failed to create store: %v", err)
	}
	defer entityStore.Close()

	b, err := bot.New(cfg, entityStore)
	if err != nil {
		logger.Error.Fatalf("Failed to create bot: %v", err)
	}

	logger.Info.Println("Bot initialized successfully")
	if err := b.Start(); err != nil {
		logger.Error.Fatalf("Bot error: %v", err)
	}
}
