package models

import "sort"

// Reading is one indication, identified by test point and trial.
type Reading struct {
	Point int     `json:"point"`
	Trial int     `json:"trial"`
	Value float64 `json:"value"`
}

// Series groups readings by test point, in trial order.
func Series(readings []Reading) map[int][]float64 {
	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Trial < sorted[j].Trial })
	out := make(map[int][]float64)
	for _, r := range sorted {
		out[r.Point] = append(out[r.Point], r.Value)
	}
	return out
}
