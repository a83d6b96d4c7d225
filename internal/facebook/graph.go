package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// DefaultGraphURL is the Graph API root.
const DefaultGraphURL = "https://graph.facebook.com"

// GraphSDK implements SDK over the Graph API HTTP interface.
type GraphSDK struct {
	baseURL string
	client  *http.Client

	mu      sync.RWMutex
	appID   string
	version string
}

// NewGraphSDK returns an SDK talking to baseURL (DefaultGraphURL when
// empty). A nil client uses http.DefaultClient.
func NewGraphSDK(baseURL string, client *http.Client) *GraphSDK {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GraphSDK{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		version: DefaultVersion,
	}
}

// Init records the app id and API version for later calls.
func (g *GraphSDK) Init(cfg InitConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appID = cfg.AppID
	if cfg.Version != "" {
		g.version = cfg.Version
	}
	return nil
}

// AppID returns the app id set by Init.
func (g *GraphSDK) AppID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.appID
}

// API calls path with params. An access_token param is sent as a bearer
// token instead of a form value. Graph error objects become *APIError.
func (g *GraphSDK) API(ctx context.Context, path, method string, params map[string]any) (map[string]any, error) {
	g.mu.RLock()
	endpoint := g.baseURL + "/" + g.version + "/" + strings.TrimLeft(path, "/")
	g.mu.RUnlock()

	form := url.Values{}
	token := ""
	for k, v := range params {
		if k == "access_token" {
			token = fmt.Sprint(v)
			continue
		}
		form.Set(k, formValue(v))
	}

	method = strings.ToUpper(method)
	var body io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		if len(form) > 0 {
			endpoint += "?" + form.Encode()
		}
	} else {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("facebook: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	client := g.client
	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var out struct {
		Error *APIError `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("facebook: read response: %w", err)
	}
	_ = json.Unmarshal(raw, &out)
	if out.Error != nil {
		return nil, out.Error
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode), Code: resp.StatusCode}
	}

	res := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("facebook: decode response: %w", err)
		}
	}
	return res, nil
}

func formValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool, int, int64, float64, json.Number:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
