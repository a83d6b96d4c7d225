package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/govright/platform-services/internal/events"
)

// Popup geometry of the social login window.
const (
	PopupWidth  = 580
	PopupHeight = 400
)

// Screen is the size of the display the popup is centred on.
type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PopupFeatures returns the window feature string for a popup on screen.
func PopupFeatures(screen Screen) string {
	left := screen.Width/2 - 350
	top := screen.Height/2 - 300
	return fmt.Sprintf("toolbar=no,location=no,directories=no,status=no,menubar=no,"+
		"scrollbars=no,resizable=no,copyhistory=no,width=%d,height=%d,top=%d,left=%d",
		PopupWidth, PopupHeight, top, left)
}

// Window is an opened login popup.
type Window interface {
	Focus()
	Closed() bool
}

// Opener opens popup windows.
type Opener interface {
	Open(url, target, features string) (Window, error)
}

// PopupRequest is published on events.TopicAuthPopup for the front end
// that actually owns the windows.
type PopupRequest struct {
	Action   string `json:"action"` // "open" or "focus"
	WindowID string `json:"windowId"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	Features string `json:"features,omitempty"`
}

// BusOpener delegates windows to a remote front end through the bus.
type BusOpener struct {
	Bus *events.Bus
}

// Open publishes an open request and returns a handle the front end
// reports closure through.
func (o BusOpener) Open(url, target, features string) (Window, error) {
	w := &RemoteWindow{ID: uuid.NewString(), bus: o.Bus}
	if o.Bus != nil {
		o.Bus.Publish(events.TopicAuthPopup, PopupRequest{
			Action:   "open",
			WindowID: w.ID,
			URL:      url,
			Target:   target,
			Features: features,
		})
	}
	return w, nil
}

// RemoteWindow is a popup owned by a remote front end.
type RemoteWindow struct {
	ID     string
	bus    *events.Bus
	closed atomic.Bool
}

// Focus asks the front end to raise the window.
func (w *RemoteWindow) Focus() {
	if w.bus != nil {
		w.bus.Publish(events.TopicAuthPopup, PopupRequest{Action: "focus", WindowID: w.ID})
	}
}

// Closed reports whether the front end has reported the window closed.
func (w *RemoteWindow) Closed() bool { return w.closed.Load() }

// MarkClosed records that the window was closed.
func (w *RemoteWindow) MarkClosed() { w.closed.Store(true) }

// Attempt is one pending social login.
type Attempt struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	// Features is the popup window feature string.
	Features string `json:"features"`

	popup Window
	once  sync.Once
	done  chan struct{}
	user  *User
	err   error
}

func newAttempt(url, features string) *Attempt {
	return &Attempt{
		ID:       uuid.NewString(),
		URL:      url,
		Features: features,
		done:     make(chan struct{}),
	}
}

// Done is closed once the attempt is settled.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Result returns the outcome; valid after Done is closed.
func (a *Attempt) Result() (*User, error) { return a.user, a.err }

// Wait blocks until the attempt settles or ctx ends.
func (a *Attempt) Wait(ctx context.Context) (*User, error) {
	select {
	case <-a.done:
		return a.user, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Attempt) settle(u *User, err error) {
	a.once.Do(func() {
		a.user, a.err = u, err
		close(a.done)
	})
}
