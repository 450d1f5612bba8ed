package main

import (
	"context"
	"log"
	"os"

	"github.com/haneul-lab/lobbychat/internal/logging"
	"github.com/haneul-lab/lobbychat/internal/server"
)

func main() {
	logger := logging.NewJSONLogger(os.Stdout)
	logger.Info(context.Background(), "starting lobby chat server")

	cfg := server.NewConfigFromEnv()

	app, err := server.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
