package backtest

// CapitalAllocator tracks the capital each symbol may size positions from
type CapitalAllocator interface {
	// Available returns the capital currently available to the symbol
	Available(symbol string) float64
	// Initial returns the capital the symbol started with
	Initial(symbol string) float64
	// Apply books a realized profit or loss against the symbol
	Apply(symbol string, profit float64)
	// Total returns the capital across all symbols
	Total() float64
}

// NewCapitalAllocator builds the allocator selected by mode
func NewCapitalAllocator(mode CapitalAllocation, initial float64, symbols []string) CapitalAllocator {
	if mode == AllocationPerSymbol && len(symbols) > 0 {
		share := initial / float64(len(symbols))
		balances := make(map[string]float64, len(symbols))
		for _, symbol := range symbols {
			balances[symbol] = share
		}
		return &perSymbolAllocator{share: share, balances: balances, order: symbols}
	}
	return &sharedAllocator{initial: initial, balance: initial}
}

type sharedAllocator struct {
	initial float64
	balance float64
}

func (a *sharedAllocator) Available(string) float64 { return a.balance }

func (a *sharedAllocator) Initial(string) float64 { return a.initial }

func (a *sharedAllocator) Apply(_ string, profit float64) { a.balance += profit }

func (a *sharedAllocator) Total() float64 { return a.balance }

type perSymbolAllocator struct {
	share    float64
	balances map[string]float64
	order    []string
}

func (a *perSymbolAllocator) Available(symbol string) float64 { return a.balances[symbol] }

func (a *perSymbolAllocator) Initial(string) float64 { return a.share }

func (a *perSymbolAllocator) Apply(symbol string, profit float64) { a.balances[symbol] += profit }

// Total sums in configured symbol order so the float result is reproducible
func (a *perSymbolAllocator) Total() float64 {
	total := 0.0
	seen := make(map[string]bool, len(a.order))
	for _, symbol := range a.order {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		total += a.balances[symbol]
	}
	return total
}
