package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"flyto/internal/cli"
	"flyto/internal/config"
	"flyto/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fatal Error: %v", err)
	}
	if err := logger.Init(cfg.LogFile, cfg.LogLevel); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}

	err = cli.Execute()
	_ = logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
