package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotReady means the local inference server never answered its health
// check inside the allowed window. It is distinct from an engine error: the
// analysis itself was never attempted.
var ErrNotReady = errors.New("inference server not ready")

// waitReady polls the configured health endpoint until it answers 200 or
// the window closes. The bounded poll replaces a fixed start-up sleep so a
// slow server start shows up as a clear, attributable error.
func (r *Runner) waitReady(ctx context.Context) error {
	if r.cfg.HealthURL == "" {
		return nil
	}
	timeout := r.cfg.ReadyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	interval := r.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: interval}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if probe(ctx, client, r.cfg.HealthURL) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s did not answer within %s", ErrNotReady, r.cfg.HealthURL, timeout)
		case <-ticker.C:
		}
	}
}

func probe(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
