// internal/domain/dataset/model.go

package dataset

import (
	"time"
)

// Kind identifies which upload layout a table was built from
type Kind string

const (
	KindLegislators Kind = "legislators"
	KindPosts       Kind = "posts"
)

// ParseKind converts a request value into a Kind, defaulting to legislators
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case "", KindLegislators:
		return KindLegislators, true
	case KindPosts:
		return KindPosts, true
	}
	return "", false
}

// Column names a numeric engagement column
type Column string

const (
	ColumnFollowersTwitter Column = "followers_twitter"
	ColumnLikesInstagram   Column = "likes_instagram"
	ColumnViewsTiktok      Column = "views_tiktok"
	ColumnTotalEngagement  Column = "total_engagement"
)

// RequiredMetrics are present on every normalized table
var RequiredMetrics = []Column{
	ColumnFollowersTwitter,
	ColumnLikesInstagram,
	ColumnViewsTiktok,
}

// MetricsFor returns the rankable columns of a table kind
func MetricsFor(kind Kind) []Column {
	if kind == KindPosts {
		return []Column{ColumnFollowersTwitter, ColumnLikesInstagram, ColumnViewsTiktok, ColumnTotalEngagement}
	}
	return RequiredMetrics
}

// Record is one legislator or one post after normalization
type Record struct {
	Name   string `json:"name"`
	Party  string `json:"party"`
	Region string `json:"region"`
	Handle string `json:"handle,omitempty"`

	FollowersTwitter int64 `json:"followers_twitter"`
	LikesInstagram   int64 `json:"likes_instagram"`
	ViewsTiktok      int64 `json:"views_tiktok"`

	// Posts only
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Network         string     `json:"network,omitempty"`
	TotalEngagement int64      `json:"total_engagement,omitempty"`
	PostLink        string     `json:"post_link,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// Metric returns the value of a numeric column
func (r Record) Metric(c Column) (int64, bool) {
	switch c {
	case ColumnFollowersTwitter:
		return r.FollowersTwitter, true
	case ColumnLikesInstagram:
		return r.LikesInstagram, true
	case ColumnViewsTiktok:
		return r.ViewsTiktok, true
	case ColumnTotalEngagement:
		return r.TotalEngagement, true
	}
	return 0, false
}

// SetMetric returns a copy of r with column c set to v
func (r Record) SetMetric(c Column, v int64) Record {
	switch c {
	case ColumnFollowersTwitter:
		r.FollowersTwitter = v
	case ColumnLikesInstagram:
		r.LikesInstagram = v
	case ColumnViewsTiktok:
		r.ViewsTiktok = v
	case ColumnTotalEngagement:
		r.TotalEngagement = v
	}
	return r
}

// Table is an ordered, immutable collection of records sharing a schema.
// Tables are only built through NewTable; every derived table is a new value.
type Table struct {
	kind    Kind
	records []Record
	sourced map[Column]bool
}

// NewTable copies records into a new table. sourced lists the metric columns
// that were read from the source rather than synthesized.
func NewTable(kind Kind, records []Record, sourced []Column) Table {
	t := Table{
		kind:    kind,
		records: make([]Record, len(records)),
		sourced: make(map[Column]bool, len(sourced)),
	}
	copy(t.records, records)
	for _, c := range sourced {
		t.sourced[c] = true
	}
	return t
}

// Empty returns a table without records
func Empty(kind Kind) Table {
	return NewTable(kind, nil, nil)
}

// Derive builds a table with the same kind and sourced columns as t
func (t Table) Derive(records []Record) Table {
	return NewTable(t.kind, records, t.Sourced())
}

// Kind returns the table kind
func (t Table) Kind() Kind {
	return t.kind
}

// Len returns the number of records
func (t Table) Len() int {
	return len(t.records)
}

// At returns the i-th record
func (t Table) At(i int) Record {
	return t.records[i]
}

// Records returns a copy of the records
func (t Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// HasSourced reports whether column c came from the source data
func (t Table) HasSourced(c Column) bool {
	return t.sourced[c]
}

// Sourced returns the sourced metric columns in canonical order
func (t Table) Sourced() []Column {
	var out []Column
	for _, c := range MetricsFor(KindPosts) {
		if t.sourced[c] {
			out = append(out, c)
		}
	}
	return out
}

// Filter defines criteria for filtering a table. Empty fields match anything.
type Filter struct {
	Region  string
	Party   string
	Name    string
	Network string
}

// IsZero reports whether the filter has no constraints
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Options holds the distinct values offered by the filter selectors
type Options struct {
	Regions  []string `json:"regions"`
	Parties  []string `json:"parties"`
	Networks []string `json:"networks,omitempty"`
}
