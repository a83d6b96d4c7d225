// Package message shows UI messages: state transitions to the 404 and
// message pages, toasts, alerts and confirmation dialogs.
package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/govright/platform-services/internal/corpus"
)

// Kind selects how a message is presented.
type Kind string

const (
	KindTransition Kind = "transition"
	KindToast      Kind = "toast"
	KindAlert      Kind = "alert"
	KindConfirm    Kind = "confirm"
)

// UI states targeted by transitions.
const (
	State404     = "site.404"
	StateMessage = "site.message"
)

// Defaults.
const (
	DefaultSuccess       = "Action successfully complete"
	DefaultToastPosition = "bottom right"
	DefaultToastDelayMS  = 3000
	DefaultAlertOK       = "Close"
	DefaultConfirmTitle  = "Are you sure?"
	DefaultConfirmOK     = "Ok"
	DefaultConfirmCancel = "Cancel"
)

// TransitionOptions controls a state transition.
type TransitionOptions struct {
	Location bool `json:"location"`
	Inherit  bool `json:"inherit"`
}

// Message is one UI message. Fields not relevant to Kind are empty.
type Message struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	State   string             `json:"state,omitempty"`
	Params  map[string]string  `json:"params,omitempty"`
	Options *TransitionOptions `json:"options,omitempty"`

	Title               string `json:"title,omitempty"`
	Content             string `json:"content,omitempty"`
	Position            string `json:"position,omitempty"`
	HideDelayMS         int    `json:"hideDelay,omitempty"`
	OK                  string `json:"ok,omitempty"`
	Cancel              string `json:"cancel,omitempty"`
	ClickOutsideToClose bool   `json:"clickOutsideToClose,omitempty"`
}

// Presenter displays messages. For confirmations it reports the user's
// choice; other kinds return true once shown.
type Presenter interface {
	Present(ctx context.Context, m *Message) (bool, error)
}

// Service builds messages and hands them to a Presenter.
type Service struct {
	p Presenter
}

// NewService returns a service presenting through p.
func NewService(p Presenter) *Service {
	return &Service{p: p}
}

func (s *Service) show(ctx context.Context, m *Message) (bool, error) {
	m.ID = uuid.NewString()
	return s.p.Present(ctx, m)
}

func transition(state string, params map[string]string) *Message {
	return &Message{
		Kind:    KindTransition,
		State:   state,
		Params:  params,
		Options: &TransitionOptions{Location: false, Inherit: true},
	}
}

// Error404 moves the UI to the 404 page without changing the location.
func (s *Service) Error404(ctx context.Context, msg string) error {
	_, err := s.show(ctx, transition(State404, map[string]string{"message": msg}))
	return err
}

// Transition moves the UI to the generic message page.
func (s *Service) Transition(ctx context.Context, title, msg string) error {
	_, err := s.show(ctx, transition(StateMessage, map[string]string{"title": title, "message": msg}))
	return err
}

// Success shows a toast.
func (s *Service) Success(ctx context.Context, content string) error {
	if content == "" {
		content = DefaultSuccess
	}
	_, err := s.show(ctx, &Message{
		Kind:        KindToast,
		Content:     content,
		Position:    DefaultToastPosition,
		HideDelayMS: DefaultToastDelayMS,
	})
	return err
}

// Error shows an alert. content may be a string, an error or a decoded
// JSON object; see ErrorText.
func (s *Service) Error(ctx context.Context, title string, content any, ok string) error {
	if ok == "" {
		ok = DefaultAlertOK
	}
	_, err := s.show(ctx, &Message{
		Kind:                KindAlert,
		Title:               title,
		Content:             ErrorText(content),
		OK:                  ok,
		ClickOutsideToClose: true,
	})
	return err
}

// Confirm asks a yes/no question and returns the answer.
func (s *Service) Confirm(ctx context.Context, title, ok, cancel string) (bool, error) {
	if title == "" {
		title = DefaultConfirmTitle
	}
	if ok == "" {
		ok = DefaultConfirmOK
	}
	if cancel == "" {
		cancel = DefaultConfirmCancel
	}
	return s.show(ctx, &Message{
		Kind:   KindConfirm,
		Title:  title,
		OK:     ok,
		Cancel: cancel,
	})
}

// ErrorText extracts the message to display. API error responses shaped
// {"data":{"error":{"message":...}}} and corpus errors yield the server
// message; other objects their "message" field.
func ErrorText(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		var he *corpus.HTTPError
		if errors.As(v, &he) && he.Message != "" {
			return he.Message
		}
		return v.Error()
	case map[string]any:
		if data, ok := v["data"].(map[string]any); ok {
			if e, ok := data["error"].(map[string]any); ok {
				if msg, ok := e["message"].(string); ok && msg != "" {
					return msg
				}
			}
		}
		if msg, ok := v["message"].(string); ok {
			return msg
		}
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
