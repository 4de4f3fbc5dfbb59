package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/subtrackr/currency/cli/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	config := &cmd.Config{
		Ctx:   ctx,
		Build: buildService(ctx, &logger),
	}

	if err := cmd.Execute(config); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}
