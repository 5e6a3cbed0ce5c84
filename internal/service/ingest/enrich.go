// internal/service/ingest/enrich.go

package ingest

import (
	"legisdash/internal/domain/dataset"
)

// Enrich left-joins the engagement metrics of secondary onto primary by name.
// Every primary record is kept in its original order. Only metric columns that
// secondary read from its source are copied; the first secondary record with a
// given name wins. Records without a match keep their own values.
func Enrich(primary, secondary dataset.Table) dataset.Table {
	columns := secondary.Sourced()
	if len(columns) == 0 || secondary.Len() == 0 {
		return primary
	}

	byName := make(map[string]dataset.Record, secondary.Len())
	for i := 0; i < secondary.Len(); i++ {
		rec := secondary.At(i)
		if rec.Name == "" {
			continue
		}
		if _, seen := byName[rec.Name]; !seen {
			byName[rec.Name] = rec
		}
	}

	records := primary.Records()
	for i, rec := range records {
		match, ok := byName[rec.Name]
		if !ok {
			continue
		}
		for _, c := range columns {
			v, _ := match.Metric(c)
			rec = rec.SetMetric(c, v)
		}
		if rec.Handle == "" {
			rec.Handle = match.Handle
		}
		records[i] = rec
	}

	sourced := primary.Sourced()
	for _, c := range columns {
		if !primary.HasSourced(c) {
			sourced = append(sourced, c)
		}
	}
	return dataset.NewTable(primary.Kind(), records, sourced)
}
