package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/wsilva/contrail/internal/fuel"
	"github.com/wsilva/contrail/internal/trajectory"
	"github.com/wsilva/contrail/pkg/logger"
)

// Client invokes the external aircraft-performance and contrail models
// over HTTP
type Client struct {
	config     Config
	fuelProps  fuel.Properties
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a model service client. The SAF blend percentage is
// resolved to fuel properties once at construction.
func NewClient(config Config, log *logger.Logger) (*Client, error) {
	props, err := fuel.Blend(config.SAFPctBlend)
	if err != nil {
		return nil, err
	}
	return &Client{
		config:    config,
		fuelProps: props,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("model-client"),
	}, nil
}

// FuelProperties returns the blend properties sent with every request
func (c *Client) FuelProperties() fuel.Properties {
	return c.fuelProps
}

// EvalPerformance runs the performance model for one flight, returning
// per-waypoint engine efficiency, fuel flow and aircraft mass
func (c *Client) EvalPerformance(ctx context.Context, f *trajectory.Flight) (*PerformanceOutput, error) {
	input, err := c.flightInput(f)
	if err != nil {
		return nil, err
	}

	var out PerformanceOutput
	if err := c.post(ctx, "/v1/performance", f.ID, input, &out); err != nil {
		return nil, err
	}
	n := len(f.Waypoints)
	if len(out.EngineEfficiency) != n || len(out.FuelFlow) != n || len(out.AircraftMass) != n {
		return nil, &Error{Kind: KindModel, FlightID: f.ID,
			Err: fmt.Errorf("performance output length mismatch: %d waypoints, %d/%d/%d values",
				n, len(out.EngineEfficiency), len(out.FuelFlow), len(out.AircraftMass))}
	}
	return &out, nil
}

// EvalCocip runs the contrail model for one flight
func (c *Client) EvalCocip(ctx context.Context, f *trajectory.Flight) (*CocipOutput, error) {
	input, err := c.flightInput(f)
	if err != nil {
		return nil, err
	}
	req := CocipRequest{
		FlightInput:          input,
		DtIntegrationMinutes: c.config.DtIntegrationMinutes,
		RhiAdj:               c.config.RhiAdj,
		Fuel:                 c.fuelProps,
	}

	var out CocipOutput
	if err := c.post(ctx, "/v1/cocip", f.ID, req, &out); err != nil {
		return nil, err
	}
	if out.Summary.FlightID == "" {
		out.Summary.FlightID = f.ID
	}
	return &out, nil
}

// flightInput converts a flight into the request payload, validating the
// columns the models require
func (c *Client) flightInput(f *trajectory.Flight) (FlightInput, error) {
	if len(f.Waypoints) == 0 {
		return FlightInput{}, &Error{Kind: KindMissingColumn, FlightID: f.ID,
			Err: fmt.Errorf("flight has no waypoints")}
	}
	if f.AircraftType == "" {
		return FlightInput{}, &Error{Kind: KindMissingColumn, FlightID: f.ID,
			Err: fmt.Errorf("missing aircraft_type attribute")}
	}
	for i, wp := range f.Waypoints {
		if math.IsNaN(wp.Groundspeed) && math.IsNaN(wp.TrueAirspeed) {
			return FlightInput{}, &Error{Kind: KindMissingColumn, FlightID: f.ID,
				Err: fmt.Errorf("waypoint %d has neither groundspeed nor true_airspeed", i)}
		}
		if math.IsNaN(wp.Latitude) || math.IsNaN(wp.Longitude) || math.IsNaN(wp.AltitudeM) {
			return FlightInput{}, &Error{Kind: KindMissingColumn, FlightID: f.ID,
				Err: fmt.Errorf("waypoint %d has no position", i)}
		}
	}

	waypoints := make([]WaypointInput, len(f.Waypoints))
	for i, wp := range f.Waypoints {
		waypoints[i] = WaypointInput{
			Time:         wp.Time,
			Latitude:     wp.Latitude,
			Longitude:    wp.Longitude,
			AltitudeM:    wp.AltitudeM,
			TrueAirspeed: optFloat(wp.TrueAirspeed),
			Groundspeed:  optFloat(wp.Groundspeed),
		}
	}
	return FlightInput{
		FlightID:     f.ID,
		AircraftType: f.AircraftType,
		WingspanM:    f.WingspanM,
		NvpmEiN:      f.NvpmEiN,
		Waypoints:    waypoints,
	}, nil
}

// post sends one request with retry-on-transport-failure. Service-side
// evaluation failures (HTTP 422) are not retried: the model is
// deterministic, a failed flight stays failed.
func (c *Client) post(ctx context.Context, path, flightID string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Kind: KindModel, FlightID: flightID,
			Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying model request",
				logger.String("path", path),
				logger.String("flight_id", flightID),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return &Error{Kind: KindDownload, FlightID: flightID, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return &Error{Kind: KindDownload, FlightID: flightID, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(target)
			resp.Body.Close()
			if err != nil {
				return &Error{Kind: KindModel, FlightID: flightID,
					Err: fmt.Errorf("failed to decode response: %w", err)}
			}
			return nil
		case http.StatusUnprocessableEntity:
			var svcErr serviceError
			_ = json.NewDecoder(resp.Body).Decode(&svcErr)
			resp.Body.Close()
			return &Error{Kind: KindModel, FlightID: flightID,
				Err: fmt.Errorf("model evaluation failed: %s", svcErr.Error)}
		default:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(msg))
		}
	}
	return &Error{Kind: KindDownload, FlightID: flightID,
		Err: fmt.Errorf("all %d attempts failed: %w", c.config.MaxRetries+1, lastErr)}
}

func optFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
