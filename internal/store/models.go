package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Condition discriminates the crossing direction of a rule.
type Condition string

const (
	ConditionAbove Condition = "ABOVE"
	ConditionBelow Condition = "BELOW"
)

// RuleKind distinguishes plain price rules from indicator-derived ones.
type RuleKind string

const (
	KindPrice     RuleKind = "price"
	KindIndicator RuleKind = "indicator"
)

// ParseCondition accepts both the canonical names and the comparison
// operators the web client sends.
func ParseCondition(s string) (Condition, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case ">", "ABOVE":
		return ConditionAbove, nil
	case "<", "BELOW":
		return ConditionBelow, nil
	default:
		return "", fmt.Errorf("%w: unknown condition %q", ErrValidation, s)
	}
}

// Operator renders the condition as the operator the client understands.
func (c Condition) Operator() string {
	if c == ConditionBelow {
		return "<"
	}
	return ">"
}

// Rule is a single registered price-threshold alert. Symbol, condition and
// threshold are immutable after creation; the only state transition a rule
// has is removal, either by the owner or by the engine after it fires.
type Rule struct {
	ID        int64           `json:"id"`
	Symbol    string          `json:"symbol"`
	Condition Condition       `json:"condition"`
	Threshold decimal.Decimal `json:"value"`
	Kind      RuleKind        `json:"type,omitempty"`
	Name      string          `json:"name,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DisplayName returns the label used in notification text.
func (r Rule) DisplayName() string {
	if r.Kind == KindIndicator && r.Name != "" {
		return r.Name
	}
	return r.Symbol
}

// RuleSpec carries the caller-supplied fields of a rule registration.
type RuleSpec struct {
	Symbol    string
	Condition string
	Threshold decimal.Decimal
	HasValue  bool
	Kind      string
	Name      string
}

// TriggerEvent records one detected threshold crossing. Events live for the
// duration of a single evaluation cycle and are never persisted.
type TriggerEvent struct {
	Rule       Rule
	Observed   decimal.Decimal
	ObservedAt time.Time
}

// NormalizeSymbol canonicalises instrument identifiers to the dash form
// used as the map key everywhere in the engine ("EUR-USD").
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", "-"))
}
