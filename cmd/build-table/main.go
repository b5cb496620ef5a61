package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"saferoute/pkg/graph"
	roads "saferoute/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	overpass := flag.Bool("overpass", false, "Fetch road data from the Overpass API instead of a PBF file (requires --bbox)")
	overpassURL := flag.String("overpass-url", "", "Overpass interpreter endpoint (default: public instance)")
	bbox := flag.String("bbox", "", "Bounding box: minLat,minLng,maxLat,maxLng (filter for PBF, required for Overpass)")
	output := flag.String("output", "table.bin", "Output routing table file path")
	largest := flag.Bool("largest-component", false, "Keep only the largest connected component")
	flag.Parse()

	if *input == "" && !*overpass {
		fmt.Fprintln(os.Stderr, "Usage: build-table --input <file.osm.pbf> [--bbox minLat,minLng,maxLat,maxLng] [--output table.bin] [--largest-component]")
		fmt.Fprintln(os.Stderr, "       build-table --overpass --bbox minLat,minLng,maxLat,maxLng [--output table.bin]")
		os.Exit(1)
	}

	var box roads.BBox
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		box = roads.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Printf("Bounding box: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()
	ctx := context.Background()

	// Step 1: Acquire raw road geometry.
	var data *roads.RoadData
	if *overpass {
		if box.IsZero() {
			log.Fatal("--overpass requires --bbox")
		}
		log.Println("Fetching road data from Overpass...")
		var err error
		data, err = roads.NewOverpassClient(*overpassURL).FetchBBox(ctx, box)
		if err != nil {
			log.Fatalf("Failed to fetch road data: %v", err)
		}
	} else {
		log.Println("Opening OSM file...")
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("Failed to open input file: %v", err)
		}
		defer f.Close()

		log.Println("Parsing OSM data...")
		data, err = roads.ParsePBF(ctx, f)
		if err != nil {
			log.Fatalf("Failed to parse OSM data: %v", err)
		}
		data = roads.FilterBBox(data, box)
	}
	log.Printf("Road data: %d nodes, %d ways", len(data.Nodes), len(data.Ways))

	// Step 2: Build the routing table.
	log.Println("Building routing table...")
	t, err := graph.Build(data.Nodes, data.Ways)
	if err != nil {
		log.Fatalf("Failed to build routing table: %v", err)
	}
	log.Printf("Table: %d nodes, %d edges", t.NumNodes, t.NumEdges)

	// Step 3: Optionally keep only the largest connected component.
	if *largest {
		componentNodes := graph.LargestComponent(t)
		log.Printf("Largest component: %d nodes (%.1f%%)", len(componentNodes), float64(len(componentNodes))/float64(t.NumNodes)*100)
		t = graph.FilterToComponent(t, componentNodes)
		log.Printf("Filtered table: %d nodes, %d edges", t.NumNodes, t.NumEdges)
	}

	// Step 4: Serialize.
	log.Printf("Writing table to %s...", *output)
	if err := graph.WriteBinary(*output, t); err != nil {
		log.Fatalf("Failed to write table: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
