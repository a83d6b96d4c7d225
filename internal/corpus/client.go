// Package corpus is a thin client for the LoopBack REST API of the GovRight
// corpus: the User model and the access token bookkeeping around it.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/govright/platform-services/internal/apperr"
)

// ID is a LoopBack model id; the API emits strings or numbers.
type ID string

// UnmarshalJSON accepts a string or a number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("corpus: id must be a string or number: %s", b)
	}
	*id = ID(n.String())
	return nil
}

// Credentials for Users/login. Exactly one of Username and Email is sent.
// RememberMe defaults to true.
type Credentials struct {
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password"`
	RememberMe *bool  `json:"-"`
}

// User is the corpus User model.
type User struct {
	ID       ID             `json:"id"`
	Username string         `json:"username,omitempty"`
	Email    string         `json:"email,omitempty"`
	Profile  map[string]any `json:"profile,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// LoginResult is the access token returned by Users/login?include=user.
type LoginResult struct {
	ID      string `json:"id"`
	TTL     int64  `json:"ttl"`
	Created string `json:"created,omitempty"`
	UserID  ID     `json:"userId"`
	User    *User  `json:"user"`
}

// HTTPError is a LoopBack error response.
type HTTPError struct {
	Status  int    `json:"statusCode"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("corpus: %d %s", e.Status, e.Message)
}

// Unwrap maps 401 and 404 to the shared sentinels.
func (e *HTTPError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case http.StatusNotFound:
		return apperr.ErrNotFound
	}
	return nil
}

// Client talks to the corpus API on behalf of the user held in tokens.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenStore
	logger  *slog.Logger
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, tokens *TokenStore, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}
}

// Tokens returns the token store the client authenticates with.
func (c *Client) Tokens() *TokenStore { return c.tokens }

// Login exchanges credentials for an access token and saves it.
func (c *Client) Login(ctx context.Context, cred Credentials) (*LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/Users/login?include=user", cred, &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, errors.New("corpus: login response without token")
	}
	remember := cred.RememberMe == nil || *cred.RememberMe
	c.tokens.SetUser(res.ID, string(res.UserID))
	c.tokens.SetRememberMe(remember)
	if err := c.tokens.Save(); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout invalidates the token server-side. Local token state is cleared
// whatever the outcome.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/Users/logout", nil, nil)
	c.tokens.ClearUser()
	if cerr := c.tokens.ClearStorage(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// IsAuthenticated reports whether a user id is known.
func (c *Client) IsAuthenticated() bool {
	return c.tokens.CurrentUserID() != ""
}

// GetCurrent fetches the user owning the current token.
func (c *Client) GetCurrent(ctx context.Context) (*User, error) {
	id := c.tokens.CurrentUserID()
	if id == "" {
		return nil, fmt.Errorf("corpus: get current user: %w", apperr.ErrUnauthorized)
	}
	var u User
	if err := c.do(ctx, http.MethodGet, "/Users/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("corpus: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("corpus: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.AccessTokenID(); tok != "" {
		req.Header.Set("Authorization", tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("corpus: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error *HTTPError `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&e)
		if e.Error == nil {
			e.Error = &HTTPError{Message: http.StatusText(resp.StatusCode)}
		}
		e.Error.Status = resp.StatusCode
		c.logger.Debug("corpus: request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return e.Error
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("corpus: decode response: %w", err)
	}
	return nil
}
