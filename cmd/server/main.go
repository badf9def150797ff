package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/bridge"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Server host")
	flag.IntVar(&cfg.Sandbox.TimeoutMS, "timeout", cfg.Sandbox.TimeoutMS, "Default script timeout in milliseconds")
	flag.IntVar(&cfg.Sandbox.PoolSize, "pool", cfg.Sandbox.PoolSize, "Maximum concurrent script runs")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	srv, err := bridge.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
