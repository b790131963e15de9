package store

import (
	"sync"

	"github.com/shopspring/decimal"
)

// PriceCache keeps the most recently observed price per symbol. It is the
// "previous" leg of every crossing comparison. Absence of an entry means the
// symbol has never been observed; the cache never synthesises a zero price,
// because a zero baseline could spuriously satisfy a low threshold.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewPriceCache constructs an empty cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]decimal.Decimal)}
}

// Get returns the last recorded price for the symbol. The boolean is false
// when the symbol has never been observed.
func (c *PriceCache) Get(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[symbol]
	return p, ok
}

// Set overwrites the cached price unconditionally.
func (c *PriceCache) Set(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
}

// Len reports the number of tracked symbols.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prices)
}
