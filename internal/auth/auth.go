// Package auth is the login helper. It signs users in with corpus
// credentials or through the social login popup, restores sessions from
// saved tokens and keeps the current user.
//
//	attempt, _ := svc.SocialLogin(ctx, authURL, auth.Screen{Width: 1280, Height: 800})
//	user, err := attempt.Wait(ctx)
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/govright/platform-services/internal/corpus"
	"github.com/govright/platform-services/internal/events"
	"github.com/govright/platform-services/internal/facebook"
)

var (
	ErrInvalidPayload        = errors.New("invalid-payload")
	ErrMalformedAccessToken  = errors.New("malformed-access-token")
	ErrMalformedFacebookData = errors.New("malformed-facebook-data")
	ErrSessionExpired        = errors.New("session data is missing or expired")
	ErrNoPendingLogin        = errors.New("no pending social login")
	ErrPopupClosed           = errors.New("login popup closed")
)

var emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)

// UserAPI is the corpus User model surface.
type UserAPI interface {
	Login(ctx context.Context, cred corpus.Credentials) (*corpus.LoginResult, error)
	Logout(ctx context.Context) error
	GetCurrent(ctx context.Context) (*corpus.User, error)
	IsAuthenticated() bool
}

// TokenAPI is the LoopBack token bookkeeping.
type TokenAPI interface {
	SetUser(accessTokenID, userID string)
	SetRememberMe(v bool)
	Save() error
	ClearUser()
	ClearStorage() error
}

// User is the signed-in user.
type User struct {
	ID                 string               `json:"id"`
	FacebookAccessData *facebook.AccessData `json:"facebookAccessData"`
	Profile            map[string]any       `json:"profile,omitempty"`
	Settings           map[string]any       `json:"settings,omitempty"`
	Email              string               `json:"email,omitempty"`
}

// AccessToken is the corpus token carried by the popup payload.
type AccessToken struct {
	ID     string    `json:"id"`
	UserID corpus.ID `json:"userId"`
}

// Payload is the message the social login popup posts back.
type Payload struct {
	CorpusAccessToken  *AccessToken         `json:"corpusAccessToken"`
	FacebookAccessData *facebook.AccessData `json:"facebookAccessData"`
	UserProfile        map[string]any       `json:"userProfile,omitempty"`
	Settings           map[string]any       `json:"settings,omitempty"`
	Email              string               `json:"email,omitempty"`
}

// Credentials identify a corpus user. Username may hold an email address.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Service holds the login state of one user session.
type Service struct {
	users  UserAPI
	tokens TokenAPI
	fb     *facebook.Client
	opener Opener
	bus    *events.Bus
	logger *slog.Logger

	mu      sync.Mutex
	current *User
	pending *Attempt
}

// NewService wires the helper. opener may be nil when social login is not
// used.
func NewService(users UserAPI, tokens TokenAPI, fb *facebook.Client, opener Opener, bus *events.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		tokens: tokens,
		fb:     fb,
		opener: opener,
		bus:    bus,
		logger: logger,
	}
}

// CurrentUser returns the signed-in user, or nil.
func (s *Service) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Service) publish(topic string, data any) {
	if s.bus != nil {
		s.bus.Publish(topic, data)
	}
}

// Login signs in with corpus credentials. The login name is sent as an
// email when Email is set or Username looks like an address.
func (s *Service) Login(ctx context.Context, c Credentials) (*corpus.LoginResult, error) {
	name := c.Username
	if name == "" {
		name = c.Email
	}
	cred := corpus.Credentials{Password: c.Password}
	if c.Email != "" || emailRe.MatchString(name) {
		cred.Email = name
	} else {
		cred.Username = name
	}

	res, err := s.users.Login(ctx, cred)
	if err != nil {
		s.ClearState()
		s.logger.Error("auth: user login failed", slog.String("error", err.Error()))
		return nil, err
	}
	u, _ := s.SetCurrentUser(res)
	s.publish(events.TopicAuthLogin, u)
	return res, nil
}

// SocialLogin opens the login popup at authURL and returns the pending
// attempt. While an attempt is pending and its popup is open, the popup is
// focused and the same attempt returned.
func (s *Service) SocialLogin(ctx context.Context, authURL string, screen Screen) (*Attempt, error) {
	if s.opener == nil {
		return nil, errors.New("auth: no popup opener configured")
	}

	s.mu.Lock()
	if prev := s.pending; prev != nil {
		s.logger.Warn("auth: social login called during pending login")
		if prev.popup == nil {
			// Still opening.
			s.mu.Unlock()
			return prev, nil
		}
		if !prev.popup.Closed() {
			s.mu.Unlock()
			prev.popup.Focus()
			return prev, nil
		}
		prev.settle(nil, ErrPopupClosed)
	}
	a := newAttempt(authURL, PopupFeatures(screen))
	s.pending = a
	s.mu.Unlock()

	w, err := s.opener.Open(authURL, "_blank", a.Features)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.pending == a {
			s.pending = nil
		}
		a.settle(nil, err)
		return nil, fmt.Errorf("auth: open popup: %w", err)
	}
	a.popup = w
	return a, nil
}

// Attempt returns the pending attempt with the given id.
func (s *Service) Attempt(id string) (*Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.ID != id {
		return nil, false
	}
	return s.pending, true
}

// PopupClosed records that the pending attempt's popup was closed. The
// attempt stays pending until the next SocialLogin replaces it.
func (s *Service) PopupClosed(id string) error {
	s.mu.Lock()
	var w Window
	if s.pending != nil && s.pending.ID == id {
		w = s.pending.popup
	}
	s.mu.Unlock()
	if w == nil {
		return ErrNoPendingLogin
	}
	if c, ok := w.(interface{ MarkClosed() }); ok {
		c.MarkClosed()
	}
	return nil
}

// settlePending resolves the pending attempt, if any, and forgets it.
func (s *Service) settlePending(u *User, err error) {
	s.mu.Lock()
	a := s.pending
	s.pending = nil
	s.mu.Unlock()
	if a != nil {
		a.settle(u, err)
	}
}

func (s *Service) reject(err error, msg string) error {
	s.logger.Error("auth: " + msg)
	s.ClearState()
	s.settlePending(nil, err)
	return err
}

// ProcessAuthMessage handles the payload posted by the popup.
func (s *Service) ProcessAuthMessage(ctx context.Context, raw []byte) (*User, error) {
	var p *Payload
	if err := json.Unmarshal(raw, &p); err != nil || p == nil || p.CorpusAccessToken == nil {
		return nil, s.reject(ErrInvalidPayload, "invalid payload")
	}
	if p.CorpusAccessToken.ID == "" {
		return nil, s.reject(ErrMalformedAccessToken, "missing access token")
	}
	if p.FacebookAccessData == nil || p.FacebookAccessData.AppID == "" {
		return nil, s.reject(ErrMalformedFacebookData, "malformed facebook data")
	}

	s.tokens.SetUser(p.CorpusAccessToken.ID, string(p.CorpusAccessToken.UserID))
	s.tokens.SetRememberMe(true)
	if err := s.tokens.Save(); err != nil {
		s.logger.Warn("auth: save token failed", slog.String("error", err.Error()))
	}
	if s.fb != nil {
		if err := s.fb.SaveAccessData(*p.FacebookAccessData, true); err != nil {
			s.logger.Warn("auth: save facebook data failed", slog.String("error", err.Error()))
		}
		s.initFacebook()
	}

	u, _ := s.SetCurrentUser(p)
	s.publish(events.TopicAuthLogin, u)
	s.settlePending(u, nil)
	return u, nil
}

func (s *Service) initFacebook() {
	if _, err := s.fb.Init(facebook.InitConfig{}); err != nil {
		s.logger.Warn("auth: facebook init failed", slog.String("error", err.Error()))
	}
}

// SetCurrentUser builds the current user from a corpus login result or a
// popup payload. Raw JSON is classified by shape: a result carries ttl,
// user and userId.
func (s *Service) SetCurrentUser(data any) (*User, error) {
	var u *User
	switch v := data.(type) {
	case *corpus.LoginResult:
		u = fromLogin(v)
	case corpus.LoginResult:
		u = fromLogin(&v)
	case *Payload:
		u = fromPayload(v)
	case Payload:
		u = fromPayload(&v)
	case []byte:
		return s.setFromJSON(v)
	case json.RawMessage:
		return s.setFromJSON(v)
	default:
		return nil, fmt.Errorf("auth: unsupported user data %T", data)
	}
	if u == nil {
		return nil, ErrInvalidPayload
	}
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
	return u, nil
}

func (s *Service) setFromJSON(raw []byte) (*User, error) {
	var probe struct {
		TTL    int64           `json:"ttl"`
		User   json.RawMessage `json:"user"`
		UserID corpus.ID       `json:"userId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("auth: decode user data: %w", err)
	}
	if probe.TTL != 0 && len(probe.User) > 0 && string(probe.User) != "null" && probe.UserID != "" {
		var res corpus.LoginResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("auth: decode login result: %w", err)
		}
		return s.SetCurrentUser(&res)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("auth: decode payload: %w", err)
	}
	return s.SetCurrentUser(&p)
}

func fromLogin(r *corpus.LoginResult) *User {
	u := &User{ID: string(r.UserID), FacebookAccessData: &facebook.AccessData{}}
	if r.User != nil {
		u.Profile = r.User.Profile
		u.Settings = r.User.Settings
		u.Email = r.User.Email
	}
	return u
}

func fromPayload(p *Payload) *User {
	if p.CorpusAccessToken == nil {
		return nil
	}
	return &User{
		ID:                 string(p.CorpusAccessToken.UserID),
		FacebookAccessData: p.FacebookAccessData,
		Profile:            p.UserProfile,
		Settings:           p.Settings,
		Email:              p.Email,
	}
}

// CheckLogin restores the session from saved corpus and Facebook data.
func (s *Service) CheckLogin(ctx context.Context) (*User, error) {
	if !s.users.IsAuthenticated() {
		s.ClearState()
		return nil, ErrSessionExpired
	}
	cu, err := s.users.GetCurrent(ctx)
	if err != nil {
		s.logger.Error("auth: session restore failed", slog.String("error", err.Error()))
		s.ClearState()
		return nil, err
	}

	u := &User{
		ID:       string(cu.ID),
		Profile:  cu.Profile,
		Settings: cu.Settings,
		Email:    cu.Email,
	}
	if s.fb != nil {
		fd, err := s.fb.LoadAccessData()
		if err != nil {
			s.logger.Warn("auth: load facebook data failed", slog.String("error", err.Error()))
		}
		u.FacebookAccessData = &fd
		s.initFacebook()
	}

	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
	s.publish(events.TopicAuthLogin, u)
	return u, nil
}

// ClearState forgets tokens, Facebook data and the current user.
func (s *Service) ClearState() {
	s.tokens.ClearUser()
	if err := s.tokens.ClearStorage(); err != nil {
		s.logger.Warn("auth: clear token storage failed", slog.String("error", err.Error()))
	}
	if s.fb != nil {
		if err := s.fb.ClearStorage(); err != nil {
			s.logger.Warn("auth: clear facebook storage failed", slog.String("error", err.Error()))
		}
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Logout signs out server-side and always clears the client state, even
// when the server call fails.
func (s *Service) Logout(ctx context.Context) {
	if err := s.users.Logout(ctx); err != nil {
		s.logger.Error("auth: logout error", slog.String("error", err.Error()))
	}
	s.ClearState()
	s.publish(events.TopicAuthLogout, nil)
}
