package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/osm"
)

// DefaultOverpassURL is the public Overpass API interpreter endpoint.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// OverpassClient fetches raw road geometry from an Overpass API endpoint.
type OverpassClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewOverpassClient creates a client for the given endpoint.
// An empty endpoint selects the public Overpass instance.
func NewOverpassClient(endpoint string) *OverpassClient {
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}
	return &OverpassClient{
		URL:        endpoint,
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// overpassElement is one entry of the Overpass JSON "elements" array.
type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// FetchBBox downloads all highway ways inside the bounding box and returns
// the car-drivable road geometry, filtered the same way as the PBF parser.
func (c *OverpassClient) FetchBBox(ctx context.Context, bbox BBox) (*RoadData, error) {
	query := fmt.Sprintf(`[out:json][timeout:60];
(
way["highway"](%f,%f,%f,%f);
);
out body;
>;
out skel qt;`, bbox.MinLat, bbox.MinLng, bbox.MaxLat, bbox.MaxLng)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	return roadDataFromElements(decoded.Elements), nil
}

// roadDataFromElements converts Overpass elements into RoadData, applying
// the same drivability and direction rules as the PBF parser.
func roadDataFromElements(elements []overpassElement) *RoadData {
	coords := make(map[osm.NodeID]RawNode)
	var ways []RawWay

	for _, el := range elements {
		switch el.Type {
		case "node":
			id := osm.NodeID(el.ID)
			coords[id] = RawNode{ID: id, Lat: el.Lat, Lon: el.Lon}
		case "way":
			tags := tagsFromMap(el.Tags)
			if !isCarAccessible(tags) {
				continue
			}
			if len(el.Nodes) < 2 {
				continue
			}
			fwd, bwd := directionFlags(tags)
			if !fwd && !bwd {
				continue
			}
			nodeIDs := make([]osm.NodeID, len(el.Nodes))
			for i, id := range el.Nodes {
				nodeIDs[i] = osm.NodeID(id)
			}
			ways = append(ways, rawWayFromFlags(nodeIDs, fwd, bwd))
		}
	}

	data := &RoadData{}
	for _, w := range ways {
		data.Ways = append(data.Ways, splitAtMissing(w, coords)...)
	}
	seen := make(map[osm.NodeID]bool, len(coords))
	for _, w := range data.Ways {
		for _, id := range w.NodeIDs {
			if !seen[id] {
				seen[id] = true
				data.Nodes = append(data.Nodes, coords[id])
			}
		}
	}

	log.Printf("Overpass: %d nodes, %d ways after filtering", len(data.Nodes), len(data.Ways))
	return data
}

// tagsFromMap converts the Overpass JSON tag object into osm.Tags.
// Sorted by key so the result is deterministic.
func tagsFromMap(m map[string]string) osm.Tags {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tags := make(osm.Tags, 0, len(m))
	for _, k := range keys {
		tags = append(tags, osm.Tag{Key: k, Value: m[k]})
	}
	return tags
}
