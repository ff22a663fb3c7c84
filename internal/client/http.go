package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// HTTPClient implements Client using the HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Domains ---

func (c *HTTPClient) CreateDomain(ctx context.Context, slug string) (*model.Domain, error) {
	var d model.Domain
	if err := c.doJSON(ctx, http.MethodPost, "/v1/domains", map[string]string{"slug": slug}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) GetDomain(ctx context.Context, slug string) (*model.Domain, error) {
	var d model.Domain
	if err := c.doJSON(ctx, http.MethodGet, "/v1/domains/"+url.PathEscape(slug), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) ListDomains(ctx context.Context, req service.PageRequest) (model.Page[*model.Domain], error) {
	return getList(ctx, c, "/v1/domains", req, decodeAs[model.Domain])
}

func (c *HTTPClient) DeleteDomain(ctx context.Context, slug string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/domains/"+url.PathEscape(slug), nil, nil)
}

// --- Configs ---

func configPath(domain, key string) string {
	return "/v1/configs/" + url.PathEscape(domain) + "/" + url.PathEscape(key)
}

func (c *HTTPClient) CreateConfig(ctx context.Context, domain, key string) (*model.Config, error) {
	var cfg model.Config
	if err := c.doJSON(ctx, http.MethodPost, "/v1/configs/"+url.PathEscape(domain), map[string]string{"key": key}, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *HTTPClient) GetConfig(ctx context.Context, domain, key string) (*model.Config, error) {
	var cfg model.Config
	if err := c.doJSON(ctx, http.MethodGet, configPath(domain, key), nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *HTTPClient) ListConfigs(ctx context.Context, domain string, req service.PageRequest) (model.Page[*model.Config], error) {
	return getList(ctx, c, "/v1/configs/"+url.PathEscape(domain), req, decodeAs[model.Config])
}

func (c *HTTPClient) DeleteConfig(ctx context.Context, domain, key string) error {
	return c.doJSON(ctx, http.MethodDelete, configPath(domain, key), nil, nil)
}

// --- Versions ---

// versionResponse is a version as the server renders it: "id" is the
// version index and "type" tags the JSON value.
type versionResponse struct {
	ID        int64           `json:"id"`
	Value     json.RawMessage `json:"value"`
	Type      model.ValueType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// version decodes the value by its type tag, so integer precision and
// integral floats survive.
func (r *versionResponse) version() (*model.Version, error) {
	text := string(r.Value)
	if r.Type == model.TypeString {
		if err := json.Unmarshal(r.Value, &text); err != nil {
			return nil, fmt.Errorf("decoding version value: %w", err)
		}
	}
	value, err := model.DecodeValue(r.Type, text)
	if err != nil {
		return nil, fmt.Errorf("decoding version value: %w", err)
	}
	return &model.Version{Index: r.ID, Value: value, CreatedAt: r.CreatedAt}, nil
}

func decodeVersion(raw json.RawMessage) (*model.Version, error) {
	var r versionResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding version: %w", err)
	}
	return r.version()
}

func (c *HTTPClient) getVersion(ctx context.Context, path string) (*model.Version, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeVersion(raw)
}

func (c *HTTPClient) CreateVersion(ctx context.Context, domain, key string, value model.Value) (*model.Version, error) {
	var raw json.RawMessage
	body := map[string]model.Value{"value": value}
	if err := c.doJSON(ctx, http.MethodPost, configPath(domain, key)+"/versions", body, &raw); err != nil {
		return nil, err
	}
	return decodeVersion(raw)
}

func (c *HTTPClient) ListVersions(ctx context.Context, domain, key string, req service.PageRequest) (model.Page[*model.Version], error) {
	return getList(ctx, c, configPath(domain, key)+"/versions", req, decodeVersion)
}

func (c *HTTPClient) GetCurrentVersion(ctx context.Context, domain, key string) (*model.Version, error) {
	return c.getVersion(ctx, configPath(domain, key)+"/versions/current")
}

func (c *HTTPClient) GetVersion(ctx context.Context, domain, key string, index int64) (*model.Version, error) {
	return c.getVersion(ctx, configPath(domain, key)+"/versions/"+strconv.FormatInt(index, 10))
}

// --- Health ---

// Ping succeeds when the server reports itself healthy.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server status %q", resp.Status)
	}
	return nil
}

// --- internal helpers ---

// APIError represents an error response from the server. Code is the
// machine-readable code from the error body, when there was one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// listResponse is the list envelope. Next and Prev are links carrying the
// neighbouring offsets.
type listResponse struct {
	Data       []json.RawMessage `json:"data"`
	Pagination struct {
		Count  int     `json:"count"`
		Offset int     `json:"offset"`
		Limit  int     `json:"limit"`
		Next   *string `json:"next"`
		Prev   *string `json:"prev"`
	} `json:"pagination"`
}

func decodeAs[T any](raw json.RawMessage) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decoding item: %w", err)
	}
	return v, nil
}

func getList[T any](ctx context.Context, c *HTTPClient, path string, req service.PageRequest, decode func(json.RawMessage) (T, error)) (model.Page[T], error) {
	q := url.Values{}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return model.Page[T]{}, err
	}
	items := make([]T, 0, len(resp.Data))
	for _, raw := range resp.Data {
		item, err := decode(raw)
		if err != nil {
			return model.Page[T]{}, err
		}
		items = append(items, item)
	}
	page := model.Page[T]{
		Items:  items,
		Count:  resp.Pagination.Count,
		Limit:  resp.Pagination.Limit,
		Offset: resp.Pagination.Offset,
	}
	var err error
	if page.NextOffset, err = linkOffset(resp.Pagination.Next); err != nil {
		return model.Page[T]{}, err
	}
	if page.PrevOffset, err = linkOffset(resp.Pagination.Prev); err != nil {
		return model.Page[T]{}, err
	}
	return page, nil
}

// linkOffset extracts the offset query parameter of a page link.
func linkOffset(link *string) (*int, error) {
	if link == nil {
		return nil, nil
	}
	u, err := url.Parse(*link)
	if err != nil {
		return nil, fmt.Errorf("parsing page link: %w", err)
	}
	n, err := strconv.Atoi(u.Query().Get("offset"))
	if err != nil {
		return nil, fmt.Errorf("page link %q: %w", *link, err)
	}
	return &n, nil
}

// errorResponse turns a failed response into an error. Registry error codes
// become *service.Error wrapping the *APIError.
func errorResponse(status int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) != nil || errResp.Code == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	apiErr := &APIError{StatusCode: status, Code: errResp.Code, Message: errResp.Message}
	if kind, ok := service.KindFromCode(errResp.Code); ok {
		return &service.Error{Kind: kind, Err: apiErr}
	}
	return apiErr
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return errorResponse(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
