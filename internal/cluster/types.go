// Package cluster holds the JSON shapes the master's ops endpoints return
// and a small HTTP helper for reading them.
package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// WorkerInfo describes one positional worker as seen by the master.
type WorkerInfo struct {
	ID               string    `json:"id"`
	Index            int       `json:"index"`
	Addr             string    `json:"addr"`
	Connected        bool      `json:"connected"`
	Stores           int       `json:"stores"`
	HealthStatus     string    `json:"health_status,omitempty"`
	LastHealthCheck  time.Time `json:"last_health_check,omitempty"`
	ConsecutiveFails int       `json:"consecutive_fails,omitempty"`
}

// WorkersResponse is the body of the master's /workers endpoint.
type WorkersResponse struct {
	Workers []WorkerInfo `json:"workers"`
}

// StatsResponse is the body of the master's /stats endpoint: the latest
// reducer report plus when it arrived.
type StatsResponse struct {
	Received        time.Time      `json:"received"`
	Reports         int            `json:"reports"`
	RequestCounts   map[string]int `json:"requestCounts"`
	WorkerRequests  map[string]int `json:"workerRequests"`
	StoreSales      map[string]int `json:"storeSales"`
	LastUpdateMilli int64          `json:"lastUpdate"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// GetJSON fetches url and decodes the JSON body into out.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decode %s", url)
}
