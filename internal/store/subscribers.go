package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// SubscriberRegistry holds the set of device tokens notifications fan out
// to. Registration has set semantics: re-registering an existing token only
// refreshes its timestamp and never produces a duplicate delivery target.
type SubscriberRegistry struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

// NewSubscriberRegistry constructs an empty registry.
func NewSubscriberRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{tokens: make(map[string]time.Time)}
}

// Register adds or refreshes a device token.
func (r *SubscriberRegistry) Register(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = time.Now().UTC()
	return nil
}

// Tokens returns a sorted snapshot of the registered tokens.
func (r *SubscriberRegistry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.tokens))
	for t := range r.tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of registered tokens.
func (r *SubscriberRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
