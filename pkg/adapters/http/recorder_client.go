package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/simgym/pkg/domain"
	"github.com/aretw0/simgym/pkg/session"
)

// RecorderClient talks to a recorder server. Unlike StepClient it returns errors;
// retrying is up to the caller.
type RecorderClient struct {
	clientBase
}

// NewRecorderClient creates a client for the recorder at baseURL.
func NewRecorderClient(baseURL string, opts ...Option) *RecorderClient {
	return &RecorderClient{clientBase: newClientBase(baseURL, opts)}
}

// Record posts one experience to the current episode.
func (c *RecorderClient) Record(ctx context.Context, exp domain.Experience) error {
	return c.do(ctx, http.MethodPost, ExperiencePath, exp, nil)
}

// EndEpisode asks the recorder to persist the episode and returns its number.
func (c *RecorderClient) EndEpisode(ctx context.Context) (int, error) {
	var resp EpisodeEndResponse
	if err := c.do(ctx, http.MethodPost, EpisodeEndPath, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Episode, nil
}

// SetEpisode moves the recorder's episode counter to n.
func (c *RecorderClient) SetEpisode(ctx context.Context, n int) (session.Status, error) {
	var st session.Status
	err := c.do(ctx, http.MethodPut, EpisodePath, EpisodeEndResponse{Episode: n}, &st)
	return st, err
}

// Status fetches the recorder's episode counter and buffer size.
func (c *RecorderClient) Status(ctx context.Context) (session.Status, error) {
	var st session.Status
	err := c.do(ctx, http.MethodGet, StatusPath, nil, &st)
	return st, err
}

func (c *RecorderClient) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s: %s: %s", domain.ErrUnexpectedStatus, method, path, resp.Status, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
