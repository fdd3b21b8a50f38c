package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zereker/indisocket"
)

// Lists the properties of the CCD simulator on a local daemon until
// interrupted.
func main() {
	client := indisocket.NewClient(indisocket.ConnectTimeoutOption(5 * time.Second))

	ctx := context.Background()
	if err := client.Connect(ctx, indisocket.DefaultHost, indisocket.DefaultPort); err != nil {
		slog.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	if err := client.Send(indisocket.GetProperties(indisocket.DefaultProtocolVersion, "CCD Simulator", "")); err != nil {
		slog.Error("failed to send request", "error", err)
		client.Disconnect()
		os.Exit(1)
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			slog.Info("shutting down...")
			client.Terminate()
		case <-done:
		}
	}()

	for {
		record, err := client.Read()
		if err != nil {
			slog.Error("read failed", "error", err)
			break
		}
		if record.IsSentinel() {
			break
		}
		fmt.Println(record)
	}

	close(done)
	if err := client.Disconnect(); err != nil {
		slog.Error("disconnect failed", "error", err)
	}
}
