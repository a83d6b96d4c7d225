package api

import (
	"errors"
	"net/url"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/govright/platform-services/internal/auth"
	"github.com/govright/platform-services/internal/docservice"
	"github.com/govright/platform-services/internal/models"
)

// DocumentView is the decorated document response (aliased from the domain layer).
type DocumentView = docservice.DocumentView

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.DocumentMeta `json:"documents" validate:"required"`
	Total     int                   `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// LocaleRequest selects the current locale.
type LocaleRequest struct {
	Code string `json:"code" example:"ar" validate:"required"`
}

// Validate implements validation.Validatable.
func (r LocaleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required),
	)
}

// LocalesRequest restricts the available locales.
type LocalesRequest struct {
	Codes []string `json:"codes" validate:"required"`
}

// Validate implements validation.Validatable.
func (r LocalesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Codes, validation.Required),
	)
}

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

func absoluteURL(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

// LoginRequest carries corpus credentials.
type LoginRequest auth.Credentials

// Validate implements validation.Validatable.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.When(r.Email == "", validation.Required.Error("username or email is required"))),
		validation.Field(&r.Email, validation.Match(emailRe).Error("must be an email address")),
		validation.Field(&r.Password, validation.Required),
	)
}

// SocialLoginRequest opens the social login popup.
type SocialLoginRequest struct {
	URL    string      `json:"url,omitempty" example:"https://corpus.govright.org/auth/facebook"`
	Screen auth.Screen `json:"screen"`
}

// Validate implements validation.Validatable.
func (r SocialLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.By(absoluteURL)),
	)
}

// AttemptResponse reports a social login attempt.
type AttemptResponse struct {
	ID       string     `json:"id"`
	URL      string     `json:"url"`
	Features string     `json:"features"`
	Done     bool       `json:"done"`
	User     *auth.User `json:"user,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Message kinds accepted by POST /messages.
const (
	ShowNotFound   = "404"
	ShowTransition = "transition"
	ShowSuccess    = "success"
	ShowError      = "error"
	ShowConfirm    = "confirm"
)

// ShowRequest asks the front end to display a message.
type ShowRequest struct {
	Kind    string `json:"kind" example:"success" validate:"required"`
	Title   string `json:"title,omitempty"`
	Content any    `json:"content,omitempty"`
	OK      string `json:"ok,omitempty"`
	Cancel  string `json:"cancel,omitempty"`
}

// Validate implements validation.Validatable.
func (r ShowRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required,
			validation.In(ShowNotFound, ShowTransition, ShowSuccess, ShowError, ShowConfirm)),
	)
}

// AnswerRequest answers a confirmation message.
type AnswerRequest struct {
	OK bool `json:"ok"`
}
