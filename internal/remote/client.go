package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nhle/taskboard/internal/apperrors"
)

// Store is the document-store protocol the repository depends on. Paths
// are slash-separated keys into the JSON tree (e.g. "tasks/task_1").
type Store interface {
	// Get decodes the value at path into out. It reports false when the
	// store holds null there.
	Get(ctx context.Context, path string, out interface{}) (bool, error)

	// Put replaces the value at path.
	Put(ctx context.Context, path string, value interface{}) error

	// Patch merges fields into the object at path. Keys may themselves be
	// slash paths ("subtasks/0/done"); sibling fields are left untouched.
	Patch(ctx context.Context, path string, fields map[string]interface{}) error

	// Post appends value under path and returns the generated key.
	Post(ctx context.Context, path string, value interface{}) (string, error)

	// Delete removes the value at path.
	Delete(ctx context.Context, path string) error
}

// DefaultTimeout bounds a single request when none is configured.
const DefaultTimeout = 15 * time.Second

// Client is a thin HTTP client for a JSON document store that addresses
// data as "<base>/<path>.json". It does not retry or batch; every failure
// goes straight back to the caller.
type Client struct {
	baseURL    string
	prefix     string
	token      string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithAuthToken sends token as the "auth" query parameter.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new document store client. The baseURL should be the
// root URL of the store (e.g., https://board.example.com).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithPrefix returns a copy of the client whose paths are all rooted under
// prefix. It is how a session selects the guest or member collections.
func (c *Client) WithPrefix(prefix string) *Client {
	cp := *c
	cp.prefix = strings.Trim(prefix, "/")
	return &cp
}

// BaseURL returns the store root without prefix or credentials.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Prefix returns the path prefix the client is scoped to.
func (c *Client) Prefix() string {
	return c.prefix
}

// Get performs an HTTP GET and unmarshals the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if out == nil {
		return true, nil
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, fmt.Errorf("unmarshaling response from GET %s: %w", path, err)
	}
	return true, nil
}

// Put performs an HTTP PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, value interface{}) error {
	_, err := c.do(ctx, http.MethodPut, path, value)
	return err
}

// Patch performs an HTTP PATCH with the given fields.
func (c *Client) Patch(ctx context.Context, path string, fields map[string]interface{}) error {
	_, err := c.do(ctx, http.MethodPatch, path, fields)
	return err
}

// postResponse is the store's answer to a POST. The generated key comes
// back in "name", not "id".
type postResponse struct {
	Name string `json:"name"`
}

// Post performs an HTTP POST and returns the key generated by the store.
func (c *Client) Post(ctx context.Context, path string, value interface{}) (string, error) {
	body, err := c.do(ctx, http.MethodPost, path, value)
	if err != nil {
		return "", err
	}

	var resp postResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response from POST %s: %w", path, err)
	}
	if resp.Name == "" {
		return "", fmt.Errorf("POST %s: store returned no generated key", path)
	}
	return resp.Name, nil
}

// Delete performs an HTTP DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// URL returns the full request URL for path.
func (c *Client) URL(path string) string {
	var segments []string
	for _, part := range []string{c.prefix, path} {
		part = strings.Trim(part, "/")
		if part != "" {
			segments = append(segments, part)
		}
	}

	u := c.baseURL + "/" + strings.Join(segments, "/") + ".json"
	if c.token != "" {
		u += "?auth=" + url.QueryEscape(c.token)
	}
	return u
}

// do builds the request, sends it and classifies the outcome. It returns
// the raw response body on success.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.NetworkError{Method: method, Path: path, Err: err}
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, &apperrors.NetworkError{Method: method, Path: path, Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if method == http.MethodGet {
			return nil, &apperrors.RemoteReadError{
				Path:   path,
				Status: resp.StatusCode,
				Body:   msg,
			}
		}
		return nil, &apperrors.RemoteWriteError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   msg,
		}
	}

	return respBody, nil
}
