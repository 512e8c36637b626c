package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/simgym/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// StepPath is the control-plane endpoint performing one simulation step.
const StepPath = "/env_step"

// maxResponseSize caps how much of a step response is read.
const maxResponseSize = 8 << 20

// StepClient implements ports.Stepper against the control-plane HTTP server.
type StepClient struct {
	clientBase
}

// NewStepClient creates a client for the control plane at baseURL.
func NewStepClient(baseURL string, opts ...Option) *StepClient {
	return &StepClient{clientBase: newClientBase(baseURL, opts)}
}

// BaseURL returns the normalized control-plane address.
func (c *StepClient) BaseURL() string {
	return c.baseURL
}

// Step sends the action and maps the reply into a step result.
// Connection errors, timeouts, non-2xx statuses and malformed bodies all yield
// domain.FailedStep; no retry is attempted.
func (c *StepClient) Step(ctx context.Context, action float64) domain.StepResult {
	res, err := c.step(ctx, action)
	if err != nil {
		c.logger.Warn("Step failed", "action", action, "err", err)
		return domain.FailedStep(err)
	}
	return res
}

func (c *StepClient) step(ctx context.Context, action float64) (domain.StepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]float64{domain.KeyAction: action})
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("failed to encode action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+StepPath, bytes.NewReader(body))
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("failed to build step request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("step request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return domain.StepResult{}, fmt.Errorf("%w: %s", domain.ErrUnexpectedStatus, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("failed to read step response: %w", err)
	}
	return DecodeStepResponse(data)
}

// DecodeStepResponse parses a step reply body.
// next_state is passed through untouched; reward is coerced to float64 (default 0.0)
// and done to bool (default false). A JSON null counts as absent.
func DecodeStepResponse(data []byte) (domain.StepResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.StepResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if fields == nil {
		return domain.StepResult{}, fmt.Errorf("%w: body is not an object", domain.ErrMalformedResponse)
	}

	var reward float64
	if err := weakDecode(fields[domain.KeyReward], &reward); err != nil {
		return domain.StepResult{}, fmt.Errorf("%w: reward: %v", domain.ErrMalformedResponse, err)
	}

	var done bool
	if err := weakDecode(fields[domain.KeyDone], &done); err != nil {
		return domain.StepResult{}, fmt.Errorf("%w: done: %v", domain.ErrMalformedResponse, err)
	}

	return domain.StepResult{
		Observation: domain.NewObservation(fields[domain.KeyNextState]),
		Reward:      reward,
		Done:        done,
		Info:        map[string]any{},
	}, nil
}

// weakDecode coerces a raw JSON scalar into out, accepting numeric strings and bools.
// Missing and null values leave out untouched.
func weakDecode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return err
		}
		v = f
	}
	return mapstructure.WeakDecode(v, out)
}
