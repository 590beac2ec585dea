package main

import (
	"flag"

	"alert-agent/internal/config"
	"alert-agent/pkg/logger"

	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to JSON config file (absolute)")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	if err := logger.Init(cfg.Logging.Path); err != nil {
		panic(err)
	}
	defer logger.Info("Agent shutting down")

	agent, err := SetupAgent(cfg)
	if err != nil {
		logger.Fatal("Failed to set up agent", zap.Error(err))
	}

	if err := agent.Start(); err != nil {
		logger.Fatal("Agent error", zap.Error(err))
	}
}
