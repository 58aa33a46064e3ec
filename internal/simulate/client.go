package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const maxResponseBytes = 1 << 20

// Client talks to the WorldCup HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a client with a per-request timeout. A non-empty token is
// sent as the bearer token of result submissions.
func NewClient(baseURL string, timeout time.Duration, token string) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
	}
}

// do sends a JSON request and returns the status and the raw body.
func (c *Client) do(ctx context.Context, method, path string, body any, auth bool) (int, []byte, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	status, data, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: GET %s: %d %s", ErrUnexpectedStatus, path, status, bytes.TrimSpace(data))
	}
	return json.Unmarshal(data, out)
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	status, data, err := c.do(ctx, http.MethodGet, "/healthz", nil, false)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: %d %s", ErrUnhealthy, status, bytes.TrimSpace(data))
	}
	return nil
}

// IssueBracket draws a bracket of size.
func (c *Client) IssueBracket(ctx context.Context, genre, tag string, size int) (Bracket, error) {
	req := map[string]any{"size": size, "genre": genre, "tag": tag}
	status, data, err := c.do(ctx, http.MethodPost, "/worldcup/brackets", req, false)
	if err != nil {
		return Bracket{}, err
	}
	if status != http.StatusCreated {
		return Bracket{}, fmt.Errorf("%w: issue bracket: %d %s", ErrUnexpectedStatus, status, bytes.TrimSpace(data))
	}
	var b Bracket
	if err := json.Unmarshal(data, &b); err != nil {
		return Bracket{}, fmt.Errorf("decode bracket: %w", err)
	}
	return b, nil
}

// Submit posts a result. A 409 rejection is returned as an Outcome that is
// not accepted, not as an error.
func (c *Client) Submit(ctx context.Context, s Submission) (Outcome, error) {
	status, data, err := c.do(ctx, http.MethodPost, "/worldcup/results", s, true)
	if err != nil {
		return Outcome{}, err
	}
	switch status {
	case http.StatusOK, http.StatusConflict:
		var out Outcome
		if err := json.Unmarshal(data, &out); err != nil {
			return Outcome{}, fmt.Errorf("decode outcome: %w", err)
		}
		return out, nil
	default:
		return Outcome{}, fmt.Errorf("%w: submit %s: %d %s", ErrUnexpectedStatus, s.BracketID, status, bytes.TrimSpace(data))
	}
}

// Ranking reads the top limit rows.
func (c *Client) Ranking(ctx context.Context, limit int) ([]RankingRow, error) {
	var rows []RankingRow
	if err := c.getJSON(ctx, "/worldcup/ranking?limit="+strconv.Itoa(limit), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CandidateStats reads the authoritative stats of one track.
func (c *Client) CandidateStats(ctx context.Context, id uint64) (CandidateStats, error) {
	var st CandidateStats
	if err := c.getJSON(ctx, "/worldcup/candidates/"+strconv.FormatUint(id, 10)+"/stats", &st); err != nil {
		return CandidateStats{}, err
	}
	return st, nil
}
