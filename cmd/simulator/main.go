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

	"comanda/internal/simulator"
)

var port = flag.Int("port", 3000, "Simulator port")

func main() {
	flag.Parse()

	sim := simulator.New()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: sim.Router(),
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down simulator...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Simulator shutdown error: %v", err)
		}
	}()

	log.Printf("Starting backend simulator on port %d", *port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Simulator server error: %v", err)
	}
}
