package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// Check is one named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Readiness runs its checks on demand and reports them as one JSON document.
type Readiness struct {
	Checks []Check
}

// DBCheck probes the database pool.
func DBCheck(pool Pinger) Check {
	return Check{Name: "db", Probe: func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}}
}

// HTTPCheck probes an upstream by GETting url and expecting a 2xx.
func HTTPCheck(name, url string) Check {
	return Check{Name: name, Probe: func(ctx context.Context) error {
		if url == "" {
			return fmt.Errorf("%s url not configured", name)
		}
		client := &http.Client{Timeout: 2 * time.Second}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return fmt.Errorf("%s status %d", name, resp.StatusCode)
	}}
}

type checkResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// Handler serves /readyz: 200 when every check passes, 503 otherwise.
func (rd *Readiness) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		allOK := true
		results := make([]checkResult, 0, len(rd.Checks))
		for _, c := range rd.Checks {
			res := checkResult{Name: c.Name, OK: true}
			if err := c.Probe(ctx); err != nil {
				res.OK = false
				res.Details = err.Error()
				allOK = false
			}
			results = append(results, res)
		}

		status := http.StatusOK
		if !allOK {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"ready": allOK, "checks": results})
	}
}
