package corpus

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/govright/platform-services/internal/kv"
)

// TokenKeyPrefix namespaces the LoopBack auth state in storage.
const TokenKeyPrefix = "$LoopBack$"

var tokenProps = []string{"accessTokenId", "currentUserId", "rememberMe"}

// TokenStore keeps the LoopBack access token and the id of the user it
// belongs to. State is persisted durably when rememberMe is set and for the
// session otherwise.
type TokenStore struct {
	store kv.Storage

	mu            sync.RWMutex
	accessTokenID string
	currentUserID string
	rememberMe    bool
}

// NewTokenStore loads any saved state from store.
func NewTokenStore(store kv.Storage) (*TokenStore, error) {
	t := &TokenStore{store: store}
	vals := make(map[string]string, len(tokenProps))
	for _, p := range tokenProps {
		v, err := store.Lookup(TokenKeyPrefix + p)
		if err != nil {
			return nil, fmt.Errorf("corpus: load %s: %w", p, err)
		}
		vals[p] = v
	}
	t.accessTokenID = vals["accessTokenId"]
	t.currentUserID = vals["currentUserId"]
	t.rememberMe, _ = strconv.ParseBool(vals["rememberMe"])
	return t, nil
}

// SetUser records a freshly issued token.
func (t *TokenStore) SetUser(accessTokenID, userID string) {
	t.mu.Lock()
	t.accessTokenID = accessTokenID
	t.currentUserID = userID
	t.mu.Unlock()
}

// SetRememberMe selects durable persistence for the next Save.
func (t *TokenStore) SetRememberMe(v bool) {
	t.mu.Lock()
	t.rememberMe = v
	t.mu.Unlock()
}

// Save writes the state to local storage when rememberMe is set, else to
// session storage.
func (t *TokenStore) Save() error {
	t.mu.RLock()
	vals := map[string]string{
		"accessTokenId": t.accessTokenID,
		"currentUserId": t.currentUserID,
		"rememberMe":    strconv.FormatBool(t.rememberMe),
	}
	st := t.store.Pick(t.rememberMe)
	t.mu.RUnlock()

	for _, p := range tokenProps {
		if err := st.Set(TokenKeyPrefix+p, vals[p]); err != nil {
			return fmt.Errorf("corpus: save %s: %w", p, err)
		}
	}
	return nil
}

// ClearUser forgets the in-memory token.
func (t *TokenStore) ClearUser() {
	t.mu.Lock()
	t.accessTokenID = ""
	t.currentUserID = ""
	t.mu.Unlock()
}

// ClearStorage removes persisted state from both stores.
func (t *TokenStore) ClearStorage() error {
	for _, p := range tokenProps {
		if err := t.store.Remove(TokenKeyPrefix + p); err != nil {
			return fmt.Errorf("corpus: clear %s: %w", p, err)
		}
	}
	return nil
}

// AccessTokenID returns the current token id.
func (t *TokenStore) AccessTokenID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accessTokenID
}

// CurrentUserID returns the id of the token owner.
func (t *TokenStore) CurrentUserID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentUserID
}

// RememberMe reports whether state is persisted durably.
func (t *TokenStore) RememberMe() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rememberMe
}
