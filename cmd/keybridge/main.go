package main

import (
	"context"
	"os"
	"os/signal"

	"keybridge/cmd/keybridge/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
