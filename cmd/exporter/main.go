package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kamrat/internal/app"
	"github.com/shrimpsizemoose/kamrat/internal/export"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	exporter, err := export.NewCSVExporter(service.Config, service.Reporter)
	if err != nil {
		logger.Error.Fatalf("Failed to initialize CSV exporter: %v", err)
	}
	exporter.Start()

	logger.Info.Println("Exporter running, snapshots go to", service.Config.Export.OutputDir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	exporter.Stop()
	logger.Info.Println("Exporter stopped")
}
