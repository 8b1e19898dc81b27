package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/zoneflow/zonebridge"
)

func main() {
	observe, updates, closeObserver := zonebridge.NewChannelObserver(64)
	defer closeObserver()

	rt, err := zonebridge.Conf("../../config.yaml", zonebridge.WithOnUpdate(observe))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for u := range updates {
			fmt.Printf("%s -> %.1f mW\n", u.Key, u.Reading.PowerMW)
		}
	}()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
