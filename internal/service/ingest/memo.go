// internal/service/ingest/memo.go

package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"legisdash/internal/domain/dataset"
)

// MemoHooks are called on cache lookups
type MemoHooks struct {
	OnHit  func()
	OnMiss func()
}

// Memo caches normalization results by content and options. Only successful
// loads are stored; concurrent loads of the same content share one parse.
type Memo struct {
	mu         sync.Mutex
	items      map[string]Result
	order      []string
	maxEntries int
	hooks      MemoHooks
	sf         singleflight.Group
}

// NewMemo creates a memo holding at most maxEntries results (0 = unbounded)
func NewMemo(maxEntries int, hooks MemoHooks) *Memo {
	return &Memo{
		items:      make(map[string]Result),
		order:      make([]string, 0, 16),
		maxEntries: maxEntries,
		hooks:      hooks,
	}
}

// Key identifies a raw upload together with the options used to decode it
func Key(raw []byte, opts Options) string {
	opts = opts.withDefaults()
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s|%s|%c|%s", hex.EncodeToString(sum[:]), opts.Kind, opts.Delimiter, opts.Charset)
}

// Normalize returns the cached result for raw, normalizing it on a miss
func (m *Memo) Normalize(raw []byte, opts Options) (Result, error) {
	key := Key(raw, opts)

	m.mu.Lock()
	res, ok := m.items[key]
	m.mu.Unlock()
	if ok {
		if m.hooks.OnHit != nil {
			m.hooks.OnHit()
		}
		return copyResult(res), nil
	}

	if m.hooks.OnMiss != nil {
		m.hooks.OnMiss()
	}
	v, err, _ := m.sf.Do(key, func() (interface{}, error) {
		res, err := Normalize(raw, opts)
		if err != nil {
			return res, err
		}
		m.store(key, res)
		return res, nil
	})
	res = v.(Result)
	if err != nil {
		return res, err
	}
	return copyResult(res), nil
}

// Len returns the number of cached results
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memo) store(key string, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists {
		m.order = append(m.order, key)
	}
	m.items[key] = res

	if m.maxEntries <= 0 {
		return
	}
	for len(m.items) > m.maxEntries && len(m.order) > 0 {
		victim := m.order[0]
		m.order = m.order[1:]
		delete(m.items, victim)
	}
}

// copyResult detaches the warning slice; tables are immutable and shared
func copyResult(res Result) Result {
	warnings := make([]dataset.ParseError, len(res.Warnings))
	copy(warnings, res.Warnings)
	return Result{Table: res.Table, Warnings: warnings}
}
