package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fx-price-alerts/internal/store"
)

// Notification is one rendered push message plus its delivery targets.
type Notification struct {
	Title  string
	Body   string
	Tokens []string
}

// DeliveryResult records the outcome for a single device token.
type DeliveryResult struct {
	Token string
	Err   error
}

// Failed reports how many deliveries in the batch did not go through.
func Failed(results []DeliveryResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Notifier delivers a notification to a set of device tokens. The error
// return covers failures to attempt delivery at all; per-token outcomes are
// in the result slice. An empty token set is a no-op, not an error.
type Notifier interface {
	Send(ctx context.Context, note Notification) ([]DeliveryResult, error)
}

// Render builds the user-facing title and body for a trigger. Indicator
// rules are labelled with their display name instead of the raw symbol.
func Render(event store.TriggerEvent) (title, body string) {
	rule := event.Rule
	title = fmt.Sprintf("FX Alert: %s", rule.DisplayName())
	direction := "above"
	if rule.Condition == store.ConditionBelow {
		direction = "below"
	}
	body = fmt.Sprintf("%s crossed %s %s (last price %s)",
		rule.DisplayName(), direction, rule.Threshold.String(), event.Observed.String())
	return title, body
}

// PushNotifier delivers notifications over an FCM-compatible HTTP API,
// one request per device token, authenticated with a server key.
type PushNotifier struct {
	serverKey string
	baseURL   string
	client    *http.Client
	logger    zerolog.Logger
}

// NewPushNotifier constructs the push delivery adapter.
func NewPushNotifier(serverKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *PushNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://fcm.googleapis.com"
	}

	return &PushNotifier{
		serverKey: serverKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "push_notifier").Logger(),
	}
}

// Send posts the notification to every token. A failing token does not stop
// delivery to the others.
func (n *PushNotifier) Send(ctx context.Context, note Notification) ([]DeliveryResult, error) {
	if len(note.Tokens) == 0 {
		return nil, nil
	}

	results := make([]DeliveryResult, 0, len(note.Tokens))
	for _, token := range note.Tokens {
		err := n.sendOne(ctx, token, note)
		if err != nil {
			n.logger.Warn().Err(err).Str("title", note.Title).Msg("push delivery failed")
		}
		results = append(results, DeliveryResult{Token: token, Err: err})
	}

	n.logger.Info().
		Str("title", note.Title).
		Int("tokens", len(note.Tokens)).
		Int("failed", Failed(results)).
		Msg("notification dispatched")
	return results, nil
}

func (n *PushNotifier) sendOne(ctx context.Context, token string, note Notification) error {
	payload := map[string]any{
		"to":       token,
		"priority": "high",
		"notification": map[string]string{
			"title": note.Title,
			"body":  note.Body,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	url := n.baseURL + "/fcm/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+n.serverKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push provider status %d", resp.StatusCode)
	}

	var result struct {
		Success int `json:"success"`
		Failure int `json:"failure"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if result.Success == 0 && result.Failure > 0 {
			return fmt.Errorf("push provider rejected token")
		}
	}

	return nil
}

var _ Notifier = (*PushNotifier)(nil)

// NopNotifier drops every notification. Used when push delivery is disabled;
// crossings are still detected and rules still retire.
type NopNotifier struct{}

func (NopNotifier) Send(ctx context.Context, note Notification) ([]DeliveryResult, error) {
	return nil, nil
}

var _ Notifier = NopNotifier{}
