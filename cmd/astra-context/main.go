package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/astra-rag/astra-context/internal/config"
	"github.com/astra-rag/astra-context/internal/mcp"
	"github.com/astra-rag/astra-context/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Astra Context MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		fmt.Printf("Vector Extension: %v\n", storage.VectorExtensionAvailable)
		os.Exit(0)
	}

	// Log to stderr (stdout reserved for MCP protocol)
	log.SetOutput(os.Stderr)
	logger := log.New(os.Stderr, "", log.LstdFlags)

	// Load .env if present; API keys for embedding providers live there.
	_ = godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Printf("Astra Context MCP Server v%s starting...", version)
	logger.Printf("Build Mode: %s, Driver: %s, Vector Extension: %v",
		storage.BuildMode, storage.DriverName, storage.VectorExtensionAvailable)
	logger.Printf("Embedding provider: %s, data dir: %s", cfg.Embedding.Provider, cfg.DataDir)

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create MCP server: %v", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Fatalf("Server error: %v", err)
		}
	}

	logger.Println("Server stopped")
}
