package main

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/streamaggregator"
	"AddrSpectra/internal/metrics"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting ns-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize a new StreamAggregator
	streamAgg, err := streamaggregator.NewStreamAggregator(cfg)
	if err != nil {
		log.Fatalf("Failed to create stream aggregator: %v", err)
	}

	// 3. Start the aggregator
	if err := streamAgg.Start(); err != nil {
		log.Fatalf("Failed to start stream aggregator: %v", err)
	}

	// 4. Expose the live rankings to Prometheus
	var metricsServer *http.Server
	if cfg.Metrics.ListenAddr != "" {
		router, _ := metrics.Router(streamAgg.Manager().Tasks())
		metricsServer = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: router}
		go func() {
			log.Printf("Metrics server starting on %s", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server failed: %v", err)
			}
		}()
	}

	// 5. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping aggregator...")
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Printf("Metrics server forced to shutdown: %v", err)
		}
		cancel()
	}
	streamAgg.Stop()
	log.Println("Shutdown complete.")
}
