package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/tollgate/internal/auth/app"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (falls back to CONFIG_PATH)")
	flag.Parse()

	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
