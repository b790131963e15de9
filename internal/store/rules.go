package store

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrValidation marks malformed caller input. It never enters engine state;
// the front door maps it to a 400.
var ErrValidation = errors.New("validation failed")

// RuleStore is the in-memory registry of active alert rules. It is the
// source of truth for what the engine evaluates: the user-facing API adds
// and removes rules at any time, and the engine retires them after firing.
type RuleStore struct {
	mu     sync.RWMutex
	rules  []Rule
	nextID int64
}

// NewRuleStore constructs an empty registry.
func NewRuleStore() *RuleStore {
	return &RuleStore{nextID: 1}
}

// Create validates the spec, assigns the next sequential ID, and appends
// the rule to the active set. IDs are never reused within a process.
func (s *RuleStore) Create(spec RuleSpec) (Rule, error) {
	symbol := NormalizeSymbol(spec.Symbol)
	if symbol == "" {
		return Rule{}, fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	cond, err := ParseCondition(spec.Condition)
	if err != nil {
		return Rule{}, err
	}
	if !spec.HasValue {
		return Rule{}, fmt.Errorf("%w: value is required", ErrValidation)
	}

	kind := KindPrice
	if spec.Kind != "" {
		switch RuleKind(spec.Kind) {
		case KindPrice, KindIndicator:
			kind = RuleKind(spec.Kind)
		default:
			return Rule{}, fmt.Errorf("%w: unknown rule type %q", ErrValidation, spec.Kind)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule := Rule{
		ID:        s.nextID,
		Symbol:    symbol,
		Condition: cond,
		Threshold: spec.Threshold,
		Kind:      kind,
		Name:      spec.Name,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.rules = append(s.rules, rule)
	return rule, nil
}

// List returns the active rules in insertion order.
func (s *RuleStore) List() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Delete removes the rule with the given ID. Deleting an unknown ID is a
// no-op so that a user delete racing the engine's retirement never errors.
func (s *RuleStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(map[int64]struct{}{id: {}})
}

// DeleteMany retires a batch of fired rules in one pass. Unknown IDs are
// skipped with the same idempotence guarantee as Delete.
func (s *RuleStore) DeleteMany(ids []int64) {
	if len(ids) == 0 {
		return
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(set)
}

func (s *RuleStore) deleteLocked(ids map[int64]struct{}) {
	kept := s.rules[:0]
	for _, r := range s.rules {
		if _, gone := ids[r.ID]; !gone {
			kept = append(kept, r)
		}
	}
	s.rules = kept
}

// Symbols returns the deduplicated set of symbols referenced by active
// rules, in first-seen order. The scheduler uses this to build the quote
// request; an empty result means the cycle performs no fetch at all.
func (s *RuleStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.rules))
	var out []string
	for _, r := range s.rules {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		out = append(out, r.Symbol)
	}
	return out
}

// Len reports the number of active rules.
func (s *RuleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}
