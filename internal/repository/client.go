package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrTransport marks requests that never produced an HTTP response.
var ErrTransport = errors.New("request could not complete")

// APIError represents a non-2xx backend response
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client performs HTTP calls against the marketplace backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a backend client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req, token)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Msg("Sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		log.Debug().
			Int("status", apiErr.Status).
			Str("path", req.URL.Path).
			Str("message", apiErr.Message).
			Msg("Request rejected")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError reads {"message"} or {"error"} from the body, falling back to raw text.
func decodeError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &errResp); err == nil {
		msg = errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
	} else {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = resp.Status
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: msg,
		Code:    strings.TrimSpace(errResp.Code),
	}
}

func addAuthHeader(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
