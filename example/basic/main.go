package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/zoneflow/zonebridge"
)

func main() {
	rt, err := zonebridge.Conf("../../config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
