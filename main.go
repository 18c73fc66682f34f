package main

import (
	"github.com/8934528/Imposter-System/config"
	"github.com/8934528/Imposter-System/logger"
	"github.com/8934528/Imposter-System/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg)

	// Start Server
	logger.Log.Infof("Starting imposter game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
