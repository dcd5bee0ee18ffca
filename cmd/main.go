package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spooldock/spooldock/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	if err := a.Start(); err != nil {
		a.Log.Error("Startup failed", "error", err)
		a.Shutdown(time.Second)
		os.Exit(1)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		a.Log.Info("Shutting down", "signal", sig.String())
		a.Shutdown(10 * time.Second)
		<-done
	case err := <-done:
		if err != nil {
			a.Log.Error("Server failed", "error", err)
			a.Shutdown(time.Second)
			os.Exit(1)
		}
		a.Shutdown(time.Second)
	}
}
