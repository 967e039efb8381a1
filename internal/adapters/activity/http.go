package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ratingd/pkg/fault"
	"ratingd/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// HTTPFetcher talks to the activity-tracker collaborator over HTTP.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client, e.g. to tighten timeouts.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithFetcherLogger sets a logger for fetch diagnostics.
func WithFetcherLogger(log logger.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if log != nil {
			f.logger = log
		}
	}
}

// NewHTTPFetcher creates a fetcher against the tracker's base URL.
func NewHTTPFetcher(baseURL string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}

	// Apply all options
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// countsRequest is the tracker's request body.
type countsRequest struct {
	Handles map[string]string `json:"handles"`
}

// countsResponse is the tracker's response contract: per-source counts,
// their sum, and per-source failure messages.
type countsResponse struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
	Errors []string       `json:"errors"`
}

// Fetch asks the tracker for the member's solved counts across all
// linked handles.
func (f *HTTPFetcher) Fetch(ctx context.Context, handles map[string]string) (Snapshot, error) {
	body, err := json.Marshal(countsRequest{Handles: handles})
	if err != nil {
		return Snapshot{}, fault.Wrap(fault.Validation, err, "encode handles")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/counts", bytes.NewReader(body))
	if err != nil {
		return Snapshot{}, fault.Wrap(fault.External, err, "build tracker request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Snapshot{}, fault.Wrap(fault.External, err, "call activity tracker")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fault.New(fault.External, "activity tracker returned %s", resp.Status)
	}

	var decoded countsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Snapshot{}, fault.Wrap(fault.External, err, "decode tracker response")
	}

	if len(decoded.Counts) == 0 && len(decoded.Errors) > 0 {
		// Every source failed; nothing usable came back.
		return Snapshot{}, fault.New(fault.External, "all sources failed: %v", decoded.Errors)
	}

	if f.logger != nil && len(decoded.Errors) > 0 {
		f.logger.Warn(ctx, "partial activity snapshot",
			logger.Int("sources_failed", len(decoded.Errors)),
			logger.Any("errors", decoded.Errors),
		)
	}

	snap := Snapshot{
		TotalSolved: decoded.Total,
		PerSource:   decoded.Counts,
		Errors:      decoded.Errors,
	}

	// Some tracker builds omit the precomputed total.
	if snap.TotalSolved == 0 && len(snap.PerSource) > 0 {
		for _, n := range snap.PerSource {
			snap.TotalSolved += n
		}
	}

	if snap.TotalSolved < 0 {
		return Snapshot{}, fault.New(fault.External, "tracker reported negative total %d", snap.TotalSolved)
	}
	return snap, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)

// String implements fmt.Stringer for debug logs.
func (f *HTTPFetcher) String() string {
	return fmt.Sprintf("activity tracker at %s", f.baseURL)
}
