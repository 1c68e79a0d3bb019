package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/saleel/nymdrive/internal/client"
	"github.com/saleel/nymdrive/internal/client/config"
)

func main() {
	// A missing .env file is fine; variables from the environment win.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := client.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
