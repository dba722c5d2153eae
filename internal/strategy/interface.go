package strategy

import (
	"errors"

	"github.com/yourusername/signal-backtest/internal/indicators"
	"github.com/yourusername/signal-backtest/internal/models"
)

// ErrUnknownStrategy is returned when no evaluator is registered for a strategy key
var ErrUnknownStrategy = errors.New("unknown strategy")

// Evaluator decides entries and exits for one strategy family
type Evaluator interface {
	ID() string
	CheckEntry(ctx Context) *EntrySignal
	CheckExit(ctx Context, position models.Position) *ExitSignal
}

// HistoryRequirer is implemented by evaluators that need a minimum number of bars in
// Context.History before they can signal
type HistoryRequirer interface {
	MinHistory(definition models.Strategy) int
}

// MinHistory returns the history length the evaluator needs for the definition, or 0
// when the evaluator does not declare one
func MinHistory(evaluator Evaluator, definition models.Strategy) int {
	if requirer, ok := evaluator.(HistoryRequirer); ok {
		return requirer.MinHistory(definition)
	}
	return 0
}

// Context provides the evaluator with the bars visible at the current step
type Context struct {
	Definition models.Strategy
	Current    models.Bar
	Previous   models.Bar
	// History is the trailing bar window ending at Current, inclusive
	History []models.Bar
	Mode    indicators.Mode
}

// EntrySignal asks the position manager to open a position
type EntrySignal struct {
	Direction models.Direction `json:"direction"`
	Reasoning string           `json:"reasoning"`
}

// ExitSignal asks the position manager to close the open position
type ExitSignal struct {
	Reason models.ExitReason `json:"reason"`
}

// Closes returns the close prices of the history window
func (c Context) Closes() []float64 {
	return models.Closes(c.History)
}
