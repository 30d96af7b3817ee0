package met

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wsilva/contrail/pkg/logger"
)

// Client fetches wind-field subsets from the reanalysis service
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new reanalysis service client
func NewClient(config Config, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("met-client"),
	}
}

// FetchGrid requests the wind grid for the given window, retrying with
// exponential backoff per the configured policy
func (c *Client) FetchGrid(ctx context.Context, req GridRequest) (*Grid, error) {
	if len(req.Levels) == 0 {
		req.Levels = c.config.PressureLevels
	}

	var lastErr error
	attempts := c.config.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.config.Retry.Delay(attempt)
			c.logger.Info("Retrying reanalysis fetch",
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", attempts),
				logger.Duration("backoff", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		grid, err := c.fetchOnce(ctx, req)
		if err != nil {
			lastErr = err
			c.logger.Warn("Reanalysis fetch failed, may retry",
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", attempts))
			continue
		}
		if attempt > 0 {
			c.logger.Info("Reanalysis fetch succeeded after retries",
				logger.Int("attempts_needed", attempt+1))
		}
		return grid, nil
	}
	return nil, fmt.Errorf("met: all %d fetch attempts failed: %w", attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, req GridRequest) (*Grid, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grid request: %w", err)
	}

	url := c.config.BaseURL + "/v1/wind-grid"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("Fetching reanalysis wind grid",
		logger.Time("start", req.Start),
		logger.Time("end", req.End),
		logger.Int("levels", len(req.Levels)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request to reanalysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reanalysis service returned status %d: %s", resp.StatusCode, string(msg))
	}

	var payload gridPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("error decoding wind grid: %w", err)
	}

	grid, err := newGrid(&payload)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Wind grid fetched",
		logger.Int("times", len(grid.Times)),
		logger.Int("levels", len(grid.Levels)),
		logger.Int("lat_points", len(grid.Latitudes)),
		logger.Int("lon_points", len(grid.Longitudes)))
	return grid, nil
}
