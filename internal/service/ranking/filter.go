// internal/service/ranking/filter.go

package ranking

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"legisdash/internal/domain/dataset"
)

// Filter returns the records of t matching every constraint of f, in their
// original order. Equality constraints compare exactly; the name constraint is
// a case-insensitive substring match. A zero filter returns t unchanged.
func Filter(t dataset.Table, f dataset.Filter) dataset.Table {
	if f.IsZero() {
		return t
	}

	var needle string
	if f.Name != "" {
		needle = fold(f.Name)
	}

	var out []dataset.Record
	for i := 0; i < t.Len(); i++ {
		rec := t.At(i)
		if f.Region != "" && rec.Region != f.Region {
			continue
		}
		if f.Party != "" && rec.Party != f.Party {
			continue
		}
		if f.Network != "" && rec.Network != f.Network {
			continue
		}
		if needle != "" && (rec.Name == "" || !strings.Contains(fold(rec.Name), needle)) {
			continue
		}
		out = append(out, rec)
	}
	return t.Derive(out)
}

// fold applies full Unicode case folding
func fold(s string) string {
	return cases.Fold().String(s)
}

// Options collects the sorted distinct non-empty values for the selectors
func Options(t dataset.Table) dataset.Options {
	regions := map[string]struct{}{}
	parties := map[string]struct{}{}
	networks := map[string]struct{}{}
	for i := 0; i < t.Len(); i++ {
		rec := t.At(i)
		if rec.Region != "" {
			regions[rec.Region] = struct{}{}
		}
		if rec.Party != "" {
			parties[rec.Party] = struct{}{}
		}
		if rec.Network != "" {
			networks[rec.Network] = struct{}{}
		}
	}

	opts := dataset.Options{
		Regions: sortedKeys(regions),
		Parties: sortedKeys(parties),
	}
	if t.Kind() == dataset.KindPosts {
		opts.Networks = sortedKeys(networks)
	}
	return opts
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
