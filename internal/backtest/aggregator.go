package backtest

import (
	"math"
)

// Recommendations produced by GenerateRecommendation
const (
	RecommendationAccept      = "ACCEPT"
	RecommendationReject      = "REJECT"
	RecommendationNeedsReview = "NEEDS_REVIEW"
)

// Assessment combines the replay, monte carlo and walk-forward views of one strategy
type Assessment struct {
	StrategyID     string             `json:"strategy_id"`
	Performance    Performance        `json:"performance"`
	MonteCarlo     *MonteCarloResult  `json:"monte_carlo,omitempty"`
	WalkForward    *WalkForwardResult `json:"walk_forward,omitempty"`
	CompositeScore float64            `json:"composite_score"`
	Weights        AssessmentWeights  `json:"weights"`
	Recommendation string             `json:"recommendation"`
}

// AssessmentWeights define weighting per method
type AssessmentWeights struct {
	HistoricalReplay float64 `json:"historical_replay"`
	MonteCarlo       float64 `json:"monte_carlo"`
	WalkForward      float64 `json:"walk_forward"`
}

// DefaultAssessmentWeights favours the replay result
func DefaultAssessmentWeights() AssessmentWeights {
	return AssessmentWeights{HistoricalReplay: 0.5, MonteCarlo: 0.25, WalkForward: 0.25}
}

// Assess scores a result. Missing monte carlo or walk-forward results have their weight
// folded into the replay score.
func Assess(result *BacktestResult, monteCarlo *MonteCarloResult, walkForward *WalkForwardResult, weights AssessmentWeights) Assessment {
	perf := result.Performance
	replayWeight := weights.HistoricalReplay
	composite := 0.0

	if monteCarlo != nil {
		composite += normalize(monteCarlo.MeanReturnPercent, -50, 100) * weights.MonteCarlo
	} else {
		replayWeight += weights.MonteCarlo
	}

	consistency := 1.0
	walkForwardReturn := perf.TotalReturnPercent
	if walkForward != nil {
		composite += normalize(walkForward.AverageOutOfSampleReturn, -50, 100) * weights.WalkForward
		consistency = walkForward.ConsistencyScore
		walkForwardReturn = walkForward.AverageOutOfSampleReturn
	} else {
		replayWeight += weights.WalkForward
	}

	composite += CalculateCompositeScore(perf) * replayWeight

	return Assessment{
		StrategyID:     result.Strategy.Key(),
		Performance:    perf,
		MonteCarlo:     monteCarlo,
		WalkForward:    walkForward,
		CompositeScore: composite,
		Weights:        weights,
		Recommendation: GenerateRecommendation(composite, consistency, perf.TotalReturnPercent, walkForwardReturn),
	}
}

// CalculateCompositeScore calculates a 0-1 score from replay metrics
func CalculateCompositeScore(perf Performance) float64 {
	sharpeScore := normalize(perf.SharpeRatio, -2, 3)
	returnScore := normalize(perf.TotalReturnPercent, -50, 100)
	profitFactorScore := normalize(perf.ProfitFactor, 0, 3)
	drawdownPenalty := 1.0 - normalize(perf.MaxDrawdown, 0, 50)
	winRateScore := normalize(perf.WinRate, 0, 100)

	weighted := 0.0
	weighted += sharpeScore * 0.30
	weighted += returnScore * 0.20
	weighted += profitFactorScore * 0.20
	weighted += drawdownPenalty * 0.15
	weighted += winRateScore * 0.15
	return weighted
}

// GenerateRecommendation determines if strategy is acceptable
func GenerateRecommendation(score, consistency, historicalReturn, walkForwardReturn float64) string {
	if score > 0.7 && historicalReturn > 0 && walkForwardReturn > 0 && consistency > 0.6 {
		return RecommendationAccept
	}
	if score < 0.4 || historicalReturn < 0 || walkForwardReturn < 0 || consistency < 0.4 {
		return RecommendationReject
	}
	return RecommendationNeedsReview
}

func normalize(value, min, max float64) float64 {
	if max-min == 0 {
		return 0
	}
	v := (value - min) / (max - min)
	return math.Max(0, math.Min(1, v))
}
