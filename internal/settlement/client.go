package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	HandsPath            = "/api/v1/hands/"
	defaultTimeout       = 5 * time.Second
	maxResponseBodyBytes = 1 << 20
)

var (
	ErrNotConfigured     = errors.New("settlement service url not configured")
	ErrAlreadySaved      = errors.New("hand already saved")
	ErrServer            = errors.New("settlement server error")
	ErrNetwork           = errors.New("settlement network error")
	ErrMalformedResponse = errors.New("settlement response malformed")
)

// Client talks to the hand settlement and history service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit stores a completed hand and returns the service's record with winnings.
func (c Client) Submit(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal settlement request: %w", err)
	}

	var out Response
	if err := c.do(ctx, http.MethodPost, HandsPath, bytes.NewReader(body), http.StatusCreated, &out); err != nil {
		return Response{}, err
	}
	if out.HandID != req.HandID {
		return Response{}, fmt.Errorf("%w: response for hand %q, submitted %q", ErrMalformedResponse, out.HandID, req.HandID)
	}
	return out, nil
}

// History returns the most recent hands, newest first.
func (c Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := HandsPath
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out []HistoryEntry
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c Client) do(ctx context.Context, method, path string, body io.Reader, wantStatus int, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrAlreadySaved
	case resp.StatusCode != wantStatus:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	return nil
}
