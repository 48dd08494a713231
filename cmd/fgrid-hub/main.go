package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/fleetgrid-io/fleetgrid/cmd/fgrid-hub/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.NewHubCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
