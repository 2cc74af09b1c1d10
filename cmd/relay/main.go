package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/filegate/internal/relay"
	"github.com/dmitrijs2005/filegate/internal/relay/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:], os.Environ())
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := relay.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
