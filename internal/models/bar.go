package models

import "time"

// Bar is one OHLCV sample for a symbol
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Closes extracts the close prices of a bar sequence
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}

// FilterByTime returns the bars whose timestamp falls inside [start, end]
func FilterByTime(bars []Bar, start, end time.Time) []Bar {
	filtered := make([]Bar, 0, len(bars))
	for _, bar := range bars {
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}
		filtered = append(filtered, bar)
	}
	return filtered
}
