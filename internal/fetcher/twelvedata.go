package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fx-price-alerts/internal/store"
)

const pricePath = "/price"

// TwelveDataOptions parameterise the Twelve Data price fetcher.
type TwelveDataOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// TwelveData fetches spot prices from the Twelve Data /price endpoint.
type TwelveData struct {
	opts    TwelveDataOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewTwelveData constructs a Twelve Data fetcher.
func NewTwelveData(opts TwelveDataOptions, logger zerolog.Logger) *TwelveData {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}

	return &TwelveData{
		opts:    opts,
		logger:  logger.With().Str("component", "quote_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchQuotes retrieves current prices for the given symbols. Symbols are
// held internally in dash form ("EUR-USD") but the provider expects slash
// pairs ("EUR/USD"); the returned map is keyed by the dash form again.
// Symbols the provider errored on or omitted are left out of the result.
func (f *TwelveData) FetchQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	if f.opts.APIKey == "" {
		return nil, errors.New("provider api key not configured")
	}

	wire := make([]string, len(symbols))
	for i, s := range symbols {
		wire[i] = strings.ReplaceAll(s, "-", "/")
	}

	endpoint := fmt.Sprintf("%s%s?symbol=%s&apikey=%s",
		f.baseURL, pricePath,
		url.QueryEscape(strings.Join(wire, ",")),
		url.QueryEscape(f.opts.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseProviderError(resp.StatusCode, payload)
	}

	quotes, err := f.decodeQuotes(symbols, payload)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().Int("requested", len(symbols)).Int("returned", len(quotes)).Msg("quotes fetched")
	return quotes, nil
}

// decodeQuotes handles both response shapes: a bare {"price": "..."} object
// when a single symbol was requested, and a map of symbol -> quote object
// otherwise. A provider-level error body uses the same top-level object
// shape with status=error.
func (f *TwelveData) decodeQuotes(symbols []string, payload []byte) (map[string]decimal.Decimal, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	if isErrorObject(top) {
		return nil, parseProviderError(http.StatusOK, payload)
	}

	quotes := make(map[string]decimal.Decimal)

	if raw, ok := top["price"]; ok && len(symbols) == 1 {
		price, err := parsePrice(raw)
		if err != nil {
			return nil, fmt.Errorf("parse price for %s: %w", symbols[0], err)
		}
		quotes[symbols[0]] = price
		return quotes, nil
	}

	for wireSymbol, raw := range top {
		var entry struct {
			Price  json.RawMessage `json:"price"`
			Status string          `json:"status"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Status == "error" || len(entry.Price) == 0 {
			f.logger.Warn().Str("symbol", wireSymbol).Msg("provider returned no price for symbol")
			continue
		}
		price, err := parsePrice(entry.Price)
		if err != nil {
			f.logger.Warn().Str("symbol", wireSymbol).Err(err).Msg("unparseable price, skipping symbol")
			continue
		}
		quotes[store.NormalizeSymbol(wireSymbol)] = price
	}

	return quotes, nil
}

// parsePrice accepts both string and numeric price encodings.
func parsePrice(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(string(raw), `"`)
	if s == "" || s == "null" {
		return decimal.Decimal{}, errors.New("empty price")
	}
	return decimal.NewFromString(s)
}

func isErrorObject(top map[string]json.RawMessage) bool {
	raw, ok := top["status"]
	return ok && strings.Trim(string(raw), `"`) == "error"
}

type providerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func parseProviderError(httpStatus int, payload []byte) error {
	var apiErr providerError
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("provider error (%d): %s", firstNonZero(apiErr.Code, httpStatus), apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("provider error (%d): %s", httpStatus, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("provider error (%d)", httpStatus)
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

var _ QuoteFetcher = (*TwelveData)(nil)
