// API service for making raw HTTP requests to the crawl backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request describes one backend call. The body is kept as bytes so the call can be replayed.
type Request struct {
	Method    string
	Path      string
	Body      []byte // JSON body, nil for none
	RequestID string // sent as X-Request-ID when set
}

// NewJSONRequest builds a [Request] whose body is v encoded as JSON.
func NewJSONRequest(method, path string, v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return &Request{Method: method, Path: path, Body: body}, nil
}

// APIService provides raw HTTP access to the crawl backend. It knows nothing about sessions.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the backend at baseURL.
//
// The client should carry the cookie jar that holds the backend's session cookies.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the backend root URL.
func (a *APIService) BaseURL() string { return a.baseURL }

// HTTPClient returns the underlying client, shared with the event stream.
func (a *APIService) HTTPClient() *http.Client { return a.httpClient }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Err returns an [*APIError] for non-2xx responses and nil otherwise.
func (r *APIResponse) Err(req *Request) error {
	if r.OK() {
		return nil
	}
	return &APIError{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: r.StatusCode,
		Body:       strings.TrimSpace(string(r.Body)),
	}
}

// Do performs req and returns the raw response. Only transport failures are errors.
func (a *APIService) Do(ctx context.Context, req *Request) (*APIResponse, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, a.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
