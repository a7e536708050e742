package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Place is one geocoder match.
type Place struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Coordinate  types.Coordinate `json:"coordinate"`
	Category    string           `json:"category,omitempty"`
	Type        string           `json:"type,omitempty"`
	Importance  float64          `json:"importance"`
}

// SearchOptions bound a search to a circle around a center point. A zero
// RadiusKm means no distance filtering.
type SearchOptions struct {
	Center   types.Coordinate
	RadiusKm float64
	Limit    int
}

// Searcher is the geospatial verification boundary. An empty result slice is
// a valid answer, not an error.
type Searcher interface {
	Geocode(ctx context.Context, name string) (*Place, error)
	Search(ctx context.Context, query string, opts SearchOptions) ([]Place, error)
}

var _ Searcher = (*NominatimClient)(nil)

// NominatimClient talks to a Nominatim-compatible endpoint over HTTP. The
// public endpoint requires a descriptive user agent and at most one request
// per second, so calls are spaced by minRequestGap.
type NominatimClient struct {
	logger        *slog.Logger
	client        *http.Client
	baseURL       string
	userAgent     string
	maxCandidates int
	maxRetries    int
	minRequestGap time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

func NewNominatimClient(cfg config.GeocoderConfig, logger *slog.Logger) *NominatimClient {
	return &NominatimClient{
		logger:        logger,
		client:        &http.Client{Timeout: cfg.Timeout},
		baseURL:       cfg.BaseURL,
		userAgent:     cfg.UserAgent,
		maxCandidates: cfg.MaxCandidates,
		maxRetries:    cfg.MaxRetries,
		minRequestGap: cfg.MinRequestGap,
	}
}

// nominatimResult mirrors the jsonv2 response shape; lat/lon arrive as strings.
type nominatimResult struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Geocode resolves a single name to its best match, or nil when unknown.
func (c *NominatimClient) Geocode(ctx context.Context, name string) (*Place, error) {
	results, err := c.query(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	p := results[0]
	return &p, nil
}

// Search returns matches for query, filtered to opts.RadiusKm around
// opts.Center when a radius is set.
func (c *NominatimClient) Search(ctx context.Context, query string, opts SearchOptions) ([]Place, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = c.maxCandidates
	}

	results, err := c.query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if opts.RadiusKm <= 0 {
		return results, nil
	}

	within := make([]Place, 0, len(results))
	for _, p := range results {
		dist := types.DistanceKm(opts.Center, p.Coordinate)
		if dist <= opts.RadiusKm {
			within = append(within, p)
		} else {
			c.logger.DebugContext(ctx, "Skipping out-of-radius candidate",
				slog.String("query", query),
				slog.String("candidate", p.DisplayName),
				slog.Float64("distance_km", dist),
				slog.Float64("radius_km", opts.RadiusKm),
			)
		}
	}
	return within, nil
}

func (c *NominatimClient) query(ctx context.Context, q string, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")
	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	if m := metrics.Get(); m != nil {
		m.GeocoderLookupsTotal.Add(ctx, 1)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		raw, err := c.doRequest(ctx, endpoint)
		if err != nil {
			lastErr = err
			c.logger.WarnContext(ctx, "Geocoder request failed",
				slog.String("query", q),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
			continue
		}

		places := make([]Place, 0, len(raw))
		for _, r := range raw {
			lat, latErr := strconv.ParseFloat(r.Lat, 64)
			lon, lonErr := strconv.ParseFloat(r.Lon, 64)
			if latErr != nil || lonErr != nil {
				continue
			}
			places = append(places, Place{
				Name:        r.Name,
				DisplayName: r.DisplayName,
				Coordinate:  types.Coordinate{Latitude: lat, Longitude: lon},
				Category:    r.Category,
				Type:        r.Type,
				Importance:  r.Importance,
			})
		}
		return places, nil
	}
	return nil, fmt.Errorf("geocoder query %q exhausted retries: %w", q, lastErr)
}

func (c *NominatimClient) doRequest(ctx context.Context, endpoint string) ([]nominatimResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoder request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	return results, nil
}

// throttle spaces requests by minRequestGap, honouring context cancellation.
func (c *NominatimClient) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.minRequestGap - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
