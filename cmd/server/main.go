package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"saferoute/pkg/api"
	"saferoute/pkg/graph"
	"saferoute/pkg/routing"
	"saferoute/pkg/zone"
)

func main() {
	tablePath := flag.String("table", "table.bin", "Path to routing table binary")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	tolerance := flag.Float64("tolerance", zone.DefaultToleranceMeters, "Default danger-zone buffer in meters (per-request override allowed)")
	flag.Parse()

	start := time.Now()

	// Load the routing table.
	log.Printf("Loading routing table from %s...", *tablePath)
	t, err := graph.ReadBinary(*tablePath)
	if err != nil {
		log.Fatalf("Failed to load routing table: %v", err)
	}
	log.Printf("Loaded: %d nodes, %d edges", t.NumNodes, t.NumEdges)

	// Build the routing engine and its snap index.
	log.Println("Building spatial snap index...")
	engine := routing.NewEngine(t)

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	// Setup HTTP server.
	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	stats := api.StatsResponse{
		NumNodes:               t.NumNodes,
		NumEdges:               t.NumEdges,
		DefaultToleranceMeters: *tolerance,
	}

	handlers := api.NewHandlers(engine, stats, *tolerance)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
