package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yourusername/signal-backtest/internal/models"
)

// Registry maps strategy keys to evaluators
type Registry struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
	aliases    map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		evaluators: make(map[string]Evaluator),
		aliases:    make(map[string]string),
	}
}

// DefaultRegistry returns a registry holding the built-in evaluators. The catalog
// display names are registered as aliases.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewRSIMACDStrategy(), "RSI_MACD_Strategy")
	r.Register(NewBreakoutStrategy(), "Breakout_Strategy")
	r.Register(NewMACrossoverStrategy(), "MA_Crossover_Strategy")
	r.Register(NewBollingerReversionStrategy(), "Bollinger_Reversion_Strategy")
	return r
}

// Register adds an evaluator under its ID and any extra aliases, replacing a previous
// registration with the same key
func (r *Registry) Register(evaluator Evaluator, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := evaluator.ID()
	r.evaluators[id] = evaluator
	for _, alias := range aliases {
		r.aliases[normalizeKey(alias)] = id
	}
}

// Lookup resolves a key or alias to its evaluator
func (r *Registry) Lookup(key string) (Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if evaluator, ok := r.evaluators[key]; ok {
		return evaluator, nil
	}
	if id, ok := r.aliases[normalizeKey(key)]; ok {
		return r.evaluators[id], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, key)
}

// Resolve finds the evaluator for a strategy definition, trying its ID before its name
func (r *Registry) Resolve(definition models.Strategy) (Evaluator, error) {
	if definition.ID != "" {
		if evaluator, err := r.Lookup(definition.ID); err == nil {
			return evaluator, nil
		}
	}
	if definition.Name != "" {
		if evaluator, err := r.Lookup(definition.Name); err == nil {
			return evaluator, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, definition.Key())
}

// IDs lists the registered evaluator IDs in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.evaluators))
	for id := range r.evaluators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
