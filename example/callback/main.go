package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/zoneflow/zonebridge"
)

func main() {
	onUpdate := func(u zonebridge.Update) {
		fmt.Printf("%s %s current=%.1fmA voltage=%.2fV power=%.1fmW\n",
			u.ReceivedAt.Format(time.RFC3339),
			u.Key,
			u.Reading.CurrentMA,
			u.Reading.VoltageV,
			u.Reading.PowerMW,
		)
	}

	rt, err := zonebridge.Conf("../../config.yaml", zonebridge.WithOnUpdate(onUpdate))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
