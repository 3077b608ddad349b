package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/presets/internal/model"
)

// HTTPClient implements PresetsClient using the presets HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string, creds Credentials) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) SavePreset(ctx context.Context, req *SavePresetRequest) (*model.Preset, error) {
	var preset model.Preset
	if err := c.doJSON(ctx, http.MethodPost, "/v1/presets", req, &preset); err != nil {
		return nil, err
	}
	return &preset, nil
}

func (c *HTTPClient) GetPreset(ctx context.Context, id string) (*model.Preset, error) {
	var preset model.Preset
	if err := c.doJSON(ctx, http.MethodGet, "/v1/presets/"+url.PathEscape(id), nil, &preset); err != nil {
		return nil, err
	}
	return &preset, nil
}

func (c *HTTPClient) SetVisibility(ctx context.Context, id string, isPublic bool) (*VisibilityResult, error) {
	body := map[string]bool{"is_public": isPublic}
	var resp VisibilityResult
	if err := c.doJSON(ctx, http.MethodPut, "/v1/presets/"+url.PathEscape(id)+"/visibility", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) DeletePreset(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/presets/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListOwned(ctx context.Context, req *ListRequest) (*model.Page, error) {
	return c.list(ctx, "mine", req)
}

func (c *HTTPClient) ListPublic(ctx context.Context, req *ListRequest) (*model.Page, error) {
	return c.list(ctx, "public", req)
}

func (c *HTTPClient) list(ctx context.Context, scope string, req *ListRequest) (*model.Page, error) {
	q := url.Values{}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}

	path := "/v1/tools/" + url.PathEscape(req.ToolID) + "/presets/" + scope
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page model.Page
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	if page.Presets == nil {
		page.Presets = []*model.Preset{}
	}
	return &page, nil
}

func (c *HTTPClient) ToggleReaction(ctx context.Context, presetID string, symbol model.Symbol) (*model.ToggleResult, error) {
	body := map[string]string{"symbol": string(symbol)}
	var result model.ToggleResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/presets/"+url.PathEscape(presetID)+"/reactions", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetEvents returns the audit trail of a preset.
func (c *HTTPClient) GetEvents(ctx context.Context, presetID string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/presets/"+url.PathEscape(presetID)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// StreamEvent is one event received from the live stream.
type StreamEvent struct {
	ID    string          `json:"id,omitempty"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// StreamEvents connects to the server's event stream and calls fn for each
// event until ctx is done, the server closes the stream, or fn returns an
// error. topics and presetID narrow the stream; both may be empty.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string, presetID string, fn func(StreamEvent) error) error {
	q := url.Values{}
	if len(topics) > 0 {
		q.Set("topics", strings.Join(topics, ","))
	}
	if presetID != "" {
		q.Set("preset", presetID)
	}
	path := "/v1/events/stream"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(fmt.Errorf("performing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var evt StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			evt.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			evt.Data = json.RawMessage(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case line == "" && evt.Data != nil:
			if err := fn(evt); err != nil {
				return err
			}
			evt = StreamEvent{}
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return transportError(fmt.Errorf("reading stream: %w", err))
	}
	return nil
}

// --- internal helpers ---

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	switch {
	case c.creds.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	case c.creds.UserID != "":
		req.Header.Set("X-User-ID", c.creds.UserID)
	}
	return req, nil
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

	req, err := c.newRequest(ctx, method, path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(fmt.Errorf("performing request: %w", err))
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(fmt.Errorf("reading response: %w", err))
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
		return newAPIError(resp.StatusCode, errResp.Error)
	}
	return newAPIError(resp.StatusCode, strings.TrimSpace(string(respBody)))
}
