package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-regions/internal/config"
	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
	"github.com/Epistemic-Technology/pdf-regions/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $PDF_REGIONS_CONFIG)")
	httpAddr := flag.String("http", "", "serve streamable HTTP on this address instead of stdio")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		// Fall back to stderr if logger initialization fails
		panic(err)
	}

	log.Info("Starting pdf-regions server")

	srv := server.CreateServer(cfg, log)

	if *httpAddr != "" {
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)

		mux := http.NewServeMux()
		mux.Handle("/mcp", handler)

		log.Info("Listening on %s", *httpAddr)
		if err := http.ListenAndServe(*httpAddr, mux); err != nil {
			log.Fatal("Server failed: %v", err)
		}
		return
	}

	err = srv.Run(context.Background(), &mcp.StdioTransport{})
	if err != nil {
		log.Fatal("Server failed: %v", err)
	}
}
