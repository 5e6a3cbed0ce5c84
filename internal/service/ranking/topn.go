// internal/service/ranking/topn.go

package ranking

import (
	"slices"

	"legisdash/internal/domain/dataset"
)

// ValidColumn reports whether c can be ranked on tables of the given kind
func ValidColumn(kind dataset.Kind, c dataset.Column) bool {
	return slices.Contains(dataset.MetricsFor(kind), c)
}

// TopN returns the n records with the largest value in column, descending.
// Records with equal values keep their original relative order.
func TopN(t dataset.Table, column dataset.Column, n int) (dataset.Table, error) {
	if !ValidColumn(t.Kind(), column) {
		return dataset.Empty(t.Kind()), &dataset.InvalidColumnError{Column: column, Kind: t.Kind()}
	}
	if n < 0 {
		return dataset.Empty(t.Kind()), dataset.ErrNegativeLimit
	}
	if n == 0 || t.Len() == 0 {
		return t.Derive(nil), nil
	}

	records := t.Records()
	slices.SortStableFunc(records, func(a, b dataset.Record) int {
		av, _ := a.Metric(column)
		bv, _ := b.Metric(column)
		switch {
		case av > bv:
			return -1
		case av < bv:
			return 1
		}
		return 0
	})

	if n < len(records) {
		records = records[:n]
	}
	return t.Derive(records), nil
}

// Highlight holds the maximum value of each metric column of a table
type Highlight map[dataset.Column]int64

// Highlights computes the per-column maximum for highlighting. Empty tables
// yield an empty map.
func Highlights(t dataset.Table) Highlight {
	h := Highlight{}
	if t.Len() == 0 {
		return h
	}
	for _, c := range dataset.MetricsFor(t.Kind()) {
		var best int64
		for i := 0; i < t.Len(); i++ {
			if v, _ := t.At(i).Metric(c); v > best {
				best = v
			}
		}
		h[c] = best
	}
	return h
}

// IsMax reports whether v is the highlighted maximum of column c
func (h Highlight) IsMax(c dataset.Column, v int64) bool {
	best, ok := h[c]
	return ok && v == best
}
