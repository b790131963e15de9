package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// QuoteFetcher retrieves current prices for a set of normalized symbols.
// The result may omit symbols the provider had no data for; callers must
// treat a missing entry as "no quote this cycle", not as an error.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}
