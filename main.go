package main

import (
	"log"

	"smartbin-server/confs"
	"smartbin-server/db"
	"smartbin-server/server"

	"go.uber.org/zap"
)

func main() {
	// load config
	if err := confs.LoadConfig(); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	cfg := confs.FromEnv()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// connect to database Postgres
	database, err := db.Connect()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	logger.Info("database connection established")

	// run server
	srv := server.NewServer(database, cfg, logger)
	srv.Start()
}
