package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/saleel/nymdrive/internal/provider"
	"github.com/saleel/nymdrive/internal/provider/config"
)

func main() {
	// A missing .env file is fine; variables from the environment win.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := provider.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
