// Package facebook is the Facebook social-provider helper: it keeps the
// current user's access data, initialises the SDK and posts Open Graph
// actions on the user's behalf.
package facebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/govright/platform-services/internal/kv"
)

// KeyPrefix namespaces access data in storage.
const KeyPrefix = "$Facebook$"

// DefaultVersion is the Graph API version used when Init is given none.
const DefaultVersion = "v2.3"

var (
	ErrMissingSDK         = errors.New("missing Facebook SDK")
	ErrMissingNamespace   = errors.New("missing-app-namespace")
	ErrMissingAccessToken = errors.New("missing-access-token")
)

// APIError is an error object returned by the Graph API.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	return "facebook: " + e.Message
}

// AccessData is what the login flow hands over about the user's Facebook
// session.
type AccessData struct {
	AccessToken string `json:"accessToken"`
	AppID       string `json:"appId"`
	Namespace   string `json:"namespace"`
}

func (d AccessData) fields() [3][2]string {
	return [3][2]string{
		{"accessToken", d.AccessToken},
		{"appId", d.AppID},
		{"namespace", d.Namespace},
	}
}

// InitConfig is passed to SDK.Init.
type InitConfig struct {
	AppID   string `json:"appId"`
	Cookie  bool   `json:"cookie"`
	XFBML   *bool  `json:"xfbml,omitempty"`
	Version string `json:"version"`
}

// SDK is the Facebook platform surface the helper drives.
type SDK interface {
	Init(cfg InitConfig) error
	API(ctx context.Context, path, method string, params map[string]any) (map[string]any, error)
}

// Client holds access data for one user session.
type Client struct {
	sdk    SDK
	store  kv.Storage
	logger *slog.Logger

	mu      sync.Mutex
	data    AccessData
	version string
}

// New creates a client. sdk may be nil, in which case Init and PostAction
// fail with ErrMissingSDK.
func New(store kv.Storage, sdk SDK, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{sdk: sdk, store: store, logger: logger}
}

// SetDefaultVersion replaces DefaultVersion as the Graph API version used
// by Init.
func (c *Client) SetDefaultVersion(v string) {
	c.mu.Lock()
	c.version = v
	c.mu.Unlock()
}

// Init loads stored access data and initialises the SDK. The app id
// defaults to the stored one, cookies are always off, xfbml defaults to
// true and the version to the client default. The effective config is
// returned.
func (c *Client) Init(cfg InitConfig) (InitConfig, error) {
	if c.sdk == nil {
		c.logger.Error("facebook: missing Facebook SDK")
		return cfg, ErrMissingSDK
	}
	if _, err := c.LoadAccessData(); err != nil {
		return cfg, err
	}
	if cfg.AppID == "" {
		cfg.AppID = c.AppID()
	}
	cfg.Cookie = false
	if cfg.XFBML == nil {
		on := true
		cfg.XFBML = &on
	}
	if cfg.Version == "" {
		c.mu.Lock()
		cfg.Version = c.version
		c.mu.Unlock()
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if err := c.sdk.Init(cfg); err != nil {
		return cfg, fmt.Errorf("facebook: init: %w", err)
	}
	return cfg, nil
}

// PostAction publishes action of the app namespace for the current user.
// data is modified: access_token is set and fb:explicitly_shared defaults
// to true.
func (c *Client) PostAction(ctx context.Context, action string, data map[string]any) (map[string]any, error) {
	ns := c.Namespace()
	token := c.AccessToken()
	if ns == "" {
		c.logger.Error("facebook: missing app namespace")
		return nil, ErrMissingNamespace
	}
	if token == "" {
		c.logger.Error("facebook: missing access token")
		return nil, ErrMissingAccessToken
	}
	if c.sdk == nil {
		return nil, ErrMissingSDK
	}
	if data == nil {
		data = make(map[string]any)
	}
	data["access_token"] = token
	if data["fb:explicitly_shared"] == nil {
		data["fb:explicitly_shared"] = true
	}

	res, err := c.sdk.API(ctx, "me/"+ns+":"+action, "post", data)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("facebook: action posted", slog.String("action", action))
	return res, nil
}

// AppID returns the cached app id, "" when unknown.
func (c *Client) AppID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.AppID
}

// Namespace returns the cached app namespace.
func (c *Client) Namespace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.Namespace
}

// AccessToken returns the cached user access token.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.AccessToken
}

// SaveAccessData clears previous data and stores d, durably when remember
// is set and for the session otherwise. The in-memory cache is left empty
// until the next LoadAccessData.
func (c *Client) SaveAccessData(d AccessData, remember bool) error {
	if err := c.ClearStorage(); err != nil {
		return err
	}
	st := c.store.Pick(remember)
	for _, f := range d.fields() {
		if err := st.Set(KeyPrefix+f[0], f[1]); err != nil {
			return fmt.Errorf("facebook: save %s: %w", f[0], err)
		}
	}
	return nil
}

// LoadAccessData returns the cached access data, reading it from local and
// then session storage when no app id is cached yet.
func (c *Client) LoadAccessData() (AccessData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data.AppID != "" {
		return c.data, nil
	}
	var d AccessData
	for _, dst := range []struct {
		key string
		ptr *string
	}{
		{"accessToken", &d.AccessToken},
		{"appId", &d.AppID},
		{"namespace", &d.Namespace},
	} {
		v, err := c.store.Lookup(KeyPrefix + dst.key)
		if err != nil {
			return AccessData{}, fmt.Errorf("facebook: load %s: %w", dst.key, err)
		}
		*dst.ptr = v
	}
	c.data = d
	return d, nil
}

// ClearStorage forgets cached and stored access data.
func (c *Client) ClearStorage() error {
	c.mu.Lock()
	c.data = AccessData{}
	c.mu.Unlock()
	for _, f := range (AccessData{}).fields() {
		if err := c.store.Remove(KeyPrefix + f[0]); err != nil {
			return fmt.Errorf("facebook: clear %s: %w", f[0], err)
		}
	}
	return nil
}
