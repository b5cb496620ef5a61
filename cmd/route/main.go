package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"

	"saferoute/pkg/graph"
	"saferoute/pkg/routing"
	"saferoute/pkg/zone"
)

func main() {
	tablePath := flag.String("table", "table.bin", "Path to routing table binary")
	zonesPath := flag.String("zones", "", "Path to danger zones GeoJSON (FeatureCollection of polygons)")
	tolerance := flag.Float64("tolerance", zone.DefaultToleranceMeters, "Danger-zone buffer in meters")
	from := flag.String("from", "", "Start coordinate: lat,lng (snapped to the nearest road node)")
	to := flag.String("to", "", "Goal coordinate: lat,lng (snapped to the nearest road node)")
	fromNode := flag.Int64("from-node", 0, "Start node ID (alternative to --from)")
	toNode := flag.Int64("to-node", 0, "Goal node ID (alternative to --to)")
	output := flag.String("output", "-", "Output GeoJSON path ('-' for stdout)")
	flag.Parse()

	if (*from == "") == (*fromNode == 0) || (*to == "") == (*toNode == 0) {
		fmt.Fprintln(os.Stderr, "Usage: route --table table.bin [--zones zones.geojson] [--tolerance 40] --from lat,lng --to lat,lng [--output route.geojson]")
		fmt.Fprintln(os.Stderr, "       (or --from-node / --to-node with routing table node IDs)")
		os.Exit(1)
	}

	log.Printf("Loading routing table from %s...", *tablePath)
	t, err := graph.ReadBinary(*tablePath)
	if err != nil {
		log.Fatalf("Failed to load routing table: %v", err)
	}
	log.Printf("Loaded: %d nodes, %d edges", t.NumNodes, t.NumEdges)

	var zones []zone.Zone
	if *zonesPath != "" {
		zones, err = zone.LoadGeoJSON(*zonesPath)
		if err != nil {
			log.Fatalf("Failed to load danger zones: %v", err)
		}
		log.Printf("Loaded %d danger zones (tolerance %.0f m)", len(zones), *tolerance)
	}
	set := zone.NewSet(*tolerance, zones...)

	engine := routing.NewEngine(t)
	ctx := context.Background()

	var route *routing.Route
	if *from != "" {
		start, err := parseLatLng(*from)
		if err != nil {
			log.Fatalf("Invalid --from: %v", err)
		}
		end, err := parseLatLng(*to)
		if err != nil {
			log.Fatalf("Invalid --to: %v", err)
		}
		route, err = engine.Plan(ctx, start, end, set)
		if err != nil {
			fatalRoute(err)
		}
	} else {
		route, err = engine.FindRoute(ctx, osm.NodeID(*fromNode), osm.NodeID(*toNode), set)
		if err != nil {
			fatalRoute(err)
		}
	}

	log.Printf("Route found: %d nodes, %.1f m", len(route.NodeIDs), route.TotalDistanceMeters)

	fc := buildFeatureCollection(route, zones)
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode GeoJSON: %v", err)
	}
	data = append(data, '\n')

	if *output == "-" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	log.Printf("Route written to %s", *output)
}

// buildFeatureCollection packages the route and the zones it avoided into
// one FeatureCollection any GeoJSON renderer can display.
func buildFeatureCollection(route *routing.Route, zones []zone.Zone) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, len(route.Points))
	for i, p := range route.Points {
		line[i] = orb.Point{p.Lng, p.Lat}
	}
	rf := geojson.NewFeature(line)
	rf.Properties = geojson.Properties{
		"kind":                  "route",
		"total_distance_meters": route.TotalDistanceMeters,
	}
	fc.Append(rf)

	for _, z := range zones {
		zf := geojson.NewFeature(orb.Polygon{z.Ring()})
		zf.Properties = geojson.Properties{"kind": "danger_zone"}
		fc.Append(zf)
	}

	return fc
}

func parseLatLng(s string) (routing.LatLng, error) {
	var ll routing.LatLng
	if _, err := fmt.Sscanf(s, "%f,%f", &ll.Lat, &ll.Lng); err != nil {
		return ll, fmt.Errorf("expected lat,lng: %w", err)
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return ll, fmt.Errorf("coordinates out of range: %s", s)
	}
	return ll, nil
}

func fatalRoute(err error) {
	if errors.Is(err, routing.ErrNoSafeRoute) {
		log.Fatal("No safe route exists under the given zones and tolerance; retry with a smaller --tolerance or different endpoints")
	}
	log.Fatalf("Route query failed: %v", err)
}
