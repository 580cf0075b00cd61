package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

const defaultProbeAddr = "127.0.0.1:8080"

// HealthCmd exits non-zero unless the server's health endpoint answers ok.
// It is the container health probe, so it does not touch storage.
type HealthCmd struct {
	Addr    string        `help:"Server listen address" env:"STOREFRONT_LISTEN_ADDR" default:"127.0.0.1:8080"`
	Timeout time.Duration `help:"Probe timeout" default:"2s"`
}

// Run executes the command.
func (c *HealthCmd) Run(rt *runtime) error {
	ctx, cancel := context.WithTimeout(rt.ctx, c.Timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/api/v1/health", normalizeAddr(c.Addr))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe: status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("health probe: decode body: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("health probe: status %q", body.Status)
	}
	return nil
}

// normalizeAddr ensures the probe connects to loopback rather than the
// bind-all address. Containers bind 0.0.0.0 but the probe runs inside the
// same container, so loopback is reachable and more correct.
func normalizeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultProbeAddr
	}

	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
