package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"comanda/internal/client"
	"comanda/internal/config"
	"comanda/internal/gateway"
	"comanda/internal/history"
	"comanda/internal/monitoring"
	"comanda/internal/reconcile"
	"comanda/internal/transport"
)

var (
	port        = flag.Int("port", 0, "Gateway port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Gateway.Port = *port
	}
	if *metricsPort != 0 {
		cfg.MetricsConfig.Port = *metricsPort
	}

	backend := client.New(cfg.Backend.BaseURL, cfg.Auth.Token, cfg.Timeout())
	if err := backend.Ping(ctx); err != nil {
		log.Printf("Warning: backend at %s is not reachable yet: %v", cfg.Backend.BaseURL, err)
	}

	monitor := monitoring.NewMonitor()

	socket := transport.New(cfg.Backend.SocketURL)
	recon := reconcile.New(backend, socket, monitor, cfg.KitchenPoll())
	socket.Connect(ctx)
	recon.Start(ctx)

	var audit gateway.Auditor
	if cfg.History.DBPath != "" {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer store.Close()
		audit = store
	}

	server := gateway.NewServer(backend, recon, monitor, audit, cfg.Auth.JWTSecret)

	if cfg.MetricsConfig.Enabled {
		go startMetricsServer(cfg.MetricsConfig.Port)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler: server.Router(),
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Gateway shutdown error: %v", err)
		}

		recon.Stop()
		socket.Close()
		cancel()
	}()

	log.Printf("Starting gateway on port %d", cfg.Gateway.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Gateway server error: %v", err)
	}
}

func startMetricsServer(port int) {
	metricsRouter := gin.Default()
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	log.Printf("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("Metrics server error: %v", err)
	}
}
