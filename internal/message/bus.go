package message

import (
	"context"
	"fmt"
	"sync"

	"github.com/govright/platform-services/internal/apperr"
	"github.com/govright/platform-services/internal/events"
)

// BusPresenter publishes messages on events.TopicMessageShow for the
// front end and waits for confirmation answers reported through Answer.
type BusPresenter struct {
	bus *events.Bus

	mu      sync.Mutex
	waiting map[string]chan bool
}

// NewBusPresenter returns a presenter publishing on bus.
func NewBusPresenter(bus *events.Bus) *BusPresenter {
	return &BusPresenter{bus: bus, waiting: make(map[string]chan bool)}
}

// Present implements Presenter. Confirmations block until answered or ctx
// ends.
func (p *BusPresenter) Present(ctx context.Context, m *Message) (bool, error) {
	if m.Kind != KindConfirm {
		p.bus.Publish(events.TopicMessageShow, *m)
		return true, nil
	}

	ch := make(chan bool, 1)
	p.mu.Lock()
	p.waiting[m.ID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.waiting, m.ID)
		p.mu.Unlock()
	}()

	p.bus.Publish(events.TopicMessageShow, *m)

	select {
	case ok := <-ch:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Pending returns the ids of unanswered confirmations.
func (p *BusPresenter) Pending() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.waiting))
	for id := range p.waiting {
		out = append(out, id)
	}
	return out
}

// Answer delivers the user's choice for confirmation id.
func (p *BusPresenter) Answer(id string, ok bool) error {
	p.mu.Lock()
	ch, found := p.waiting[id]
	if found {
		delete(p.waiting, id)
	}
	p.mu.Unlock()
	if !found {
		return fmt.Errorf("message: confirmation %s: %w", id, apperr.ErrNotFound)
	}
	ch <- ok
	return nil
}
