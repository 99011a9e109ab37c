package main

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/query"
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "addrspectra.query"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	querier, err := newQuerier(cfg)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}
	defer querier.Close()

	// HTTP API
	server := &http.Server{
		Addr:    cfg.API.HttpListenAddr,
		Handler: query.NewRouter(querier),
	}
	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// gRPC health endpoint for orchestrators
	var grpcServer *grpc.Server
	var healthServer *health.Server
	if cfg.API.GrpcListenAddr != "" {
		lis, err := net.Listen("tcp", cfg.API.GrpcListenAddr)
		if err != nil {
			log.Fatalf("Failed to listen on %s: %v", cfg.API.GrpcListenAddr, err)
		}
		grpcServer = grpc.NewServer()
		healthServer = health.NewServer()
		healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		go func() {
			log.Printf("gRPC health server starting on %s", cfg.API.GrpcListenAddr)
			if err := grpcServer.Serve(lis); err != nil {
				log.Printf("gRPC server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}

// newQuerier picks the first enabled ClickHouse writer, falling back to the first enabled SQLite writer.
func newQuerier(cfg *config.Config) (query.Querier, error) {
	var sqliteDef *config.WriterDef
	for i, writerDef := range cfg.Aggregator.Histogram.Writers {
		if !writerDef.Enabled {
			continue
		}
		switch writerDef.Type {
		case "clickhouse":
			log.Println("Found enabled ClickHouse writer, querying ClickHouse.")
			return query.NewClickHouseQuerier(writerDef.ClickHouse)
		case "sqlite":
			if sqliteDef == nil {
				sqliteDef = &cfg.Aggregator.Histogram.Writers[i]
			}
		}
	}
	if sqliteDef != nil {
		log.Printf("Querying SQLite database %s.", sqliteDef.SQLite.Path)
		return query.NewSQLiteQuerier(sqliteDef.SQLite)
	}
	return nil, errors.New("no enabled clickhouse or sqlite writer in config")
}

