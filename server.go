package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olgasafonova/gleif-mcp-server/internal/base"
	"github.com/olgasafonova/gleif-mcp-server/internal/config"
	"github.com/olgasafonova/gleif-mcp-server/internal/gleif"
	"github.com/olgasafonova/gleif-mcp-server/tools"
	"github.com/olgasafonova/gleif-mcp-server/tracing"
)

const (
	// maxRequestBody bounds MCP request bodies in HTTP mode
	maxRequestBody = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// newDispatcher builds the GLEIF client and dispatcher for cfg.
func newDispatcher(cfg config.Config, logger *slog.Logger) (*gleif.Dispatcher, func()) {
	client := base.NewClient(
		base.WithLogger(logger),
		base.WithBaseURL(cfg.BaseURL),
		base.WithUserAgent(cfg.UserAgent),
		base.WithTimeout(cfg.Timeout),
	)
	return gleif.NewDispatcher(client), client.Close
}

// newMCPServer creates an MCP server with every GLEIF tool registered.
func newMCPServer(dispatcher *gleif.Dispatcher, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Title:   ServerTitle,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: serverInstructions,
	})

	tools.NewHandlerRegistry(dispatcher, logger).RegisterAll(server)
	return server
}

// serve runs the server on the configured transport until ctx is done.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	defer recoverPanic(logger, "serve")

	if err := tools.Validate(gleif.DefaultCatalog()); err != nil {
		return err
	}

	tracingCfg := tracing.DefaultConfig()
	tracingCfg.ServiceVersion = ServerVersion
	tracingCfg.UpstreamURL = cfg.BaseURL
	tracingCfg.Transport = cfg.Transport
	shutdownTracing, err := tracing.Setup(ctx, tracingCfg)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	dispatcher, closeClient := newDispatcher(cfg, logger)
	defer closeClient()

	server := newMCPServer(dispatcher, logger)

	logger.Info("Starting GLEIF MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"transport", cfg.Transport,
		"gleif_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"tracing", tracingCfg.Enabled,
	)

	if cfg.Transport == config.TransportHTTP {
		return runHTTP(ctx, cfg.HTTPAddr, server, dispatcher.Catalog(), logger)
	}

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runHTTP serves the streamable MCP endpoint plus health, info and metrics.
func runHTTP(ctx context.Context, addr string, server *mcp.Server, catalog *gleif.Catalog, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newHTTPHandler(server, catalog, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP transport listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP transport")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// newHTTPHandler routes the HTTP transport endpoints.
func newHTTPHandler(server *mcp.Server, catalog *gleif.Catalog, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /{$}", handleInfo(catalog))

	return NewSecurityMiddleware(mux, logger, SecurityConfig{MaxBodySize: maxRequestBody})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServerName,
	})
}

type serverInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Endpoints   []string `json:"endpoints"`
	Tools       []string `json:"tools"`
}

func handleInfo(catalog *gleif.Catalog) http.HandlerFunc {
	info := serverInfo{
		Name:        ServerTitle,
		Version:     ServerVersion,
		Description: "MCP tools for the GLEIF LEI REST API v1.0",
		Endpoints:   []string{"/mcp", "/health", "/metrics"},
		Tools:       catalog.Names(),
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, info)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
