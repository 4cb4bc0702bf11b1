package gamification

import "sort"

// Ranked pairs an item with its 1-indexed position.
type Ranked[T any] struct {
	Rank int `json:"rank"`
	Item T   `json:"item"`
}

// Rank orders items by score, highest first. Equal scores keep their input
// order. The input slice is left untouched.
func Rank[T any](items []T, score func(T) float64) []Ranked[T] {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return score(sorted[i]) > score(sorted[j])
	})

	out := make([]Ranked[T], len(sorted))
	for i, item := range sorted {
		out[i] = Ranked[T]{Rank: i + 1, Item: item}
	}
	return out
}

// PositionOf returns the 1-indexed rank of the first item matching, or 0.
func PositionOf[T any](ranked []Ranked[T], match func(T) bool) int {
	for _, r := range ranked {
		if match(r.Item) {
			return r.Rank
		}
	}
	return 0
}

// Average returns the arithmetic mean of the scores, 0 for an empty input.
func Average[T any](items []T, score func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	var total float64
	for _, item := range items {
		total += score(item)
	}
	return total / float64(len(items))
}
