// internal/service/report/view.go

package report

import (
	"github.com/dustin/go-humanize"

	"legisdash/internal/domain/dataset"
	"legisdash/internal/service/ranking"
)

// Cell is one formatted metric value
type Cell struct {
	Value     int64  `json:"value"`
	Display   string `json:"display"`
	Highlight bool   `json:"highlight"`
}

// Row is a record with its formatted metrics
type Row struct {
	dataset.Record
	Metrics map[dataset.Column]Cell `json:"metrics"`
}

// View is the table shown for a filtered dataset
type View struct {
	Kind    dataset.Kind     `json:"kind"`
	Count   int              `json:"count"`
	Columns []dataset.Column `json:"columns"`
	Rows    []Row            `json:"rows"`
}

// NewView formats every metric with thousands separators and flags the
// per-column maximum
func NewView(t dataset.Table) View {
	columns := dataset.MetricsFor(t.Kind())
	highlights := ranking.Highlights(t)

	rows := make([]Row, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rec := t.At(i)
		cells := make(map[dataset.Column]Cell, len(columns))
		for _, c := range columns {
			v, _ := rec.Metric(c)
			cells[c] = Cell{
				Value:     v,
				Display:   humanize.Comma(v),
				Highlight: highlights.IsMax(c, v),
			}
		}
		rows = append(rows, Row{Record: rec, Metrics: cells})
	}

	return View{
		Kind:    t.Kind(),
		Count:   t.Len(),
		Columns: columns,
		Rows:    rows,
	}
}
