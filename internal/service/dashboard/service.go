// internal/service/dashboard/service.go

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"legisdash/internal/domain/dataset"
	"legisdash/internal/logging"
	"legisdash/internal/service/chart"
	"legisdash/internal/service/ingest"
	"legisdash/internal/service/ranking"
	"legisdash/internal/service/report"
)

var (
	// ErrStoreUnavailable is returned when store enrichment is requested but no
	// engagement database is configured
	ErrStoreUnavailable = errors.New("engagement store not configured")

	// ErrLookupUnavailable is returned when follower refresh is requested but
	// no X API token is configured
	ErrLookupUnavailable = errors.New("follower lookup not configured")

	// ErrNoHandles is returned when a dataset has no social handles to refresh
	ErrNoHandles = errors.New("dataset has no social handles")
)

// Recorder receives dashboard metrics
type Recorder interface {
	Upload(kind string, ok bool, warnings int, elapsed time.Duration)
	SetDatasets(n int)
}

// TopRange bounds the top-N slider for a table kind
type TopRange struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// Clamp maps a requested count into the range; 0 selects the default
func (r TopRange) Clamp(n int) int {
	if n == 0 {
		n = r.Default
	}
	if n < r.Min {
		return r.Min
	}
	if n > r.Max {
		return r.Max
	}
	return n
}

// Config contains configuration for the dashboard service
type Config struct {
	MaxDatasets         int
	Charset             string
	LegislatorDelimiter rune
	PostDelimiter       rune
	Legislators         TopRange
	Posts               TopRange
}

// Dataset is an uploaded, normalized table held for the session lifetime
type Dataset struct {
	ID       string               `json:"id"`
	ParentID string               `json:"parent_id,omitempty"`
	Filename string               `json:"filename"`
	Kind     dataset.Kind         `json:"kind"`
	Source   string               `json:"source"`
	Enriched bool                 `json:"enriched"`
	Rows     int                  `json:"rows"`
	Sourced  []dataset.Column     `json:"sourced_columns"`
	Warnings []dataset.ParseError `json:"warnings"`
	LoadedAt time.Time            `json:"loaded_at"`

	table dataset.Table
}

// Table returns the dataset's table
func (d *Dataset) Table() dataset.Table {
	return d.table
}

// UploadRequest describes an uploaded file and its optional enrichment
type UploadRequest struct {
	Filename        string
	Kind            dataset.Kind
	Data            []byte
	Charset         string
	Engagement      []byte
	EnrichFromStore bool
}

// Panel is one rendered top-N chart
type Panel struct {
	Column dataset.Column `json:"column"`
	Title  string         `json:"title"`
	Chart  chart.Spec     `json:"chart"`
}

// Service holds loaded datasets and answers dashboard queries
type Service struct {
	memo      *ingest.Memo
	store     dataset.EngagementSource
	followers dataset.FollowerLookup
	events    dataset.EventPublisher
	metrics   Recorder
	log       logging.Logger
	config    Config
	now       func() time.Time

	mu       sync.RWMutex
	datasets map[string]*Dataset
	order    []string
}

// NewService creates a new dashboard service. store and followers may be nil.
func NewService(
	memo *ingest.Memo,
	store dataset.EngagementSource,
	followers dataset.FollowerLookup,
	events dataset.EventPublisher,
	metrics Recorder,
	log logging.Logger,
	config Config,
) *Service {
	return &Service{
		memo:      memo,
		store:     store,
		followers: followers,
		events:    events,
		metrics:   metrics,
		log:       log,
		config:    config,
		now:       time.Now,
		datasets:  make(map[string]*Dataset),
	}
}

// Range returns the top-N slider bounds for a kind
func (s *Service) Range(kind dataset.Kind) TopRange {
	if kind == dataset.KindPosts {
		return s.config.Posts
	}
	return s.config.Legislators
}

// Upload normalizes and registers an uploaded file. Load failures are returned
// as *dataset.LoadError.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Dataset, error) {
	start := s.now()
	kind := req.Kind
	if kind == "" {
		kind = dataset.KindLegislators
	}

	res, err := s.memo.Normalize(req.Data, s.options(kind, req.Charset))
	if err != nil {
		s.metrics.Upload(string(kind), false, 0, s.now().Sub(start))
		s.log.WithError(err).WithField("filename", req.Filename).Warn("Upload rejected")
		return nil, err
	}

	table := res.Table
	warnings := res.Warnings
	source := "upload"

	switch {
	case len(req.Engagement) > 0:
		secondary, err := s.memo.Normalize(req.Engagement, s.options(dataset.KindLegislators, req.Charset))
		if err != nil {
			s.metrics.Upload(string(kind), false, len(warnings), s.now().Sub(start))
			return nil, fmt.Errorf("engagement file: %w", err)
		}
		table = ingest.Enrich(table, secondary.Table)
		warnings = append(warnings, secondary.Warnings...)
		source = "upload+engagement_file"

	case req.EnrichFromStore:
		if s.store == nil {
			s.metrics.Upload(string(kind), false, len(warnings), s.now().Sub(start))
			return nil, ErrStoreUnavailable
		}
		secondary, err := s.store.LoadEngagement(ctx)
		if err != nil {
			s.metrics.Upload(string(kind), false, len(warnings), s.now().Sub(start))
			return nil, fmt.Errorf("error loading engagement snapshot: %w", err)
		}
		table = ingest.Enrich(table, secondary)
		source = "upload+engagement_store"
	}

	ds := &Dataset{
		ID:       uuid.NewString(),
		Filename: req.Filename,
		Kind:     kind,
		Source:   source,
		Enriched: source != "upload",
		Warnings: warnings,
		LoadedAt: s.now(),
		table:    table,
	}
	ds.Rows = table.Len()
	ds.Sourced = table.Sourced()

	s.register(ctx, ds)
	s.metrics.Upload(string(kind), true, len(warnings), s.now().Sub(start))
	s.publish(ctx, dataset.EventLoaded, ds)

	s.log.WithFields(logging.Fields{
		"dataset_id": ds.ID,
		"filename":   ds.Filename,
		"kind":       ds.Kind,
		"rows":       ds.Rows,
		"warnings":   len(ds.Warnings),
		"source":     ds.Source,
	}).Info("Dataset loaded")

	return ds, nil
}

// Get returns a dataset by ID
func (s *Service) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, dataset.ErrNotFound
	}
	return ds, nil
}

// List returns the loaded datasets, oldest first
func (s *Service) List() []*Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Dataset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.datasets[id])
	}
	return out
}

// Filtered applies f to a dataset
func (s *Service) Filtered(id string, f dataset.Filter) (dataset.Table, error) {
	ds, err := s.Get(id)
	if err != nil {
		return dataset.Table{}, err
	}
	return ranking.Filter(ds.table, f), nil
}

// View returns the formatted, highlighted table for the filtered dataset
func (s *Service) View(id string, f dataset.Filter) (report.View, error) {
	t, err := s.Filtered(id, f)
	if err != nil {
		return report.View{}, err
	}
	return report.NewView(t), nil
}

// Options returns the selector values of a dataset
func (s *Service) Options(id string) (dataset.Options, error) {
	ds, err := s.Get(id)
	if err != nil {
		return dataset.Options{}, err
	}
	return ranking.Options(ds.table), nil
}

// Top returns the top records of the filtered dataset by column. n is clamped
// to the slider range of the dataset kind.
func (s *Service) Top(id string, f dataset.Filter, column dataset.Column, n int) (dataset.Table, error) {
	t, err := s.Filtered(id, f)
	if err != nil {
		return dataset.Table{}, err
	}
	return ranking.TopN(t, column, s.Range(t.Kind()).Clamp(n))
}

// Charts returns one bar chart per platform metric of the filtered dataset
func (s *Service) Charts(id string, f dataset.Filter, n int) ([]Panel, error) {
	t, err := s.Filtered(id, f)
	if err != nil {
		return nil, err
	}
	n = s.Range(t.Kind()).Clamp(n)

	columns := dataset.RequiredMetrics
	label := "name"
	if t.Kind() == dataset.KindPosts {
		columns = []dataset.Column{dataset.ColumnTotalEngagement}
		label = "message"
	}

	panels := make([]Panel, 0, len(columns))
	for _, c := range columns {
		top, err := ranking.TopN(t, c, n)
		if err != nil {
			return nil, err
		}
		title := chart.Title(c, n)
		panels = append(panels, Panel{
			Column: c,
			Title:  title,
			Chart:  chart.Bar(top, c, label, title),
		})
	}
	return panels, nil
}

// Export writes the filtered dataset as CSV and returns the download filename
func (s *Service) Export(id string, f dataset.Filter, w io.Writer) (string, error) {
	t, err := s.Filtered(id, f)
	if err != nil {
		return "", err
	}
	if err := report.WriteCSV(w, t); err != nil {
		return "", err
	}
	return report.ExportFilename(t.Kind()), nil
}

// RefreshFollowers looks up current follower counts for every record with a
// handle and registers the result as a new dataset
func (s *Service) RefreshFollowers(ctx context.Context, id string) (*Dataset, error) {
	if s.followers == nil {
		return nil, ErrLookupUnavailable
	}
	parent, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	records := parent.table.Records()
	var handles []string
	for _, rec := range records {
		if rec.Handle != "" {
			handles = append(handles, rec.Handle)
		}
	}
	if len(handles) == 0 {
		return nil, ErrNoHandles
	}

	counts, err := s.followers.Followers(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("error refreshing followers: %w", err)
	}

	updated := 0
	for i, rec := range records {
		if v, ok := counts[normalizeHandle(rec.Handle)]; ok {
			records[i].FollowersTwitter = v
			updated++
		}
	}

	sourced := parent.table.Sourced()
	if !parent.table.HasSourced(dataset.ColumnFollowersTwitter) {
		sourced = append(sourced, dataset.ColumnFollowersTwitter)
	}
	table := dataset.NewTable(parent.Kind, records, sourced)

	ds := &Dataset{
		ID:       uuid.NewString(),
		ParentID: parent.ID,
		Filename: parent.Filename,
		Kind:     parent.Kind,
		Source:   parent.Source + "+twitter",
		Enriched: true,
		Rows:     table.Len(),
		Sourced:  table.Sourced(),
		Warnings: parent.Warnings,
		LoadedAt: s.now(),
		table:    table,
	}

	s.register(ctx, ds)
	s.publish(ctx, dataset.EventRefreshed, ds)

	s.log.WithFields(logging.Fields{
		"dataset_id": ds.ID,
		"parent_id":  parent.ID,
		"handles":    len(handles),
		"updated":    updated,
	}).Info("Followers refreshed")

	return ds, nil
}

func (s *Service) options(kind dataset.Kind, charset string) ingest.Options {
	if charset == "" {
		charset = s.config.Charset
	}
	delim := s.config.LegislatorDelimiter
	if kind == dataset.KindPosts {
		delim = s.config.PostDelimiter
	}
	return ingest.Options{Kind: kind, Delimiter: delim, Charset: charset}
}

// register stores ds, evicting the oldest datasets beyond MaxDatasets
func (s *Service) register(ctx context.Context, ds *Dataset) {
	var evicted []*Dataset

	s.mu.Lock()
	s.datasets[ds.ID] = ds
	s.order = append(s.order, ds.ID)
	for s.config.MaxDatasets > 0 && len(s.order) > s.config.MaxDatasets {
		victim := s.order[0]
		s.order = s.order[1:]
		evicted = append(evicted, s.datasets[victim])
		delete(s.datasets, victim)
	}
	count := len(s.datasets)
	s.mu.Unlock()

	s.metrics.SetDatasets(count)
	for _, v := range evicted {
		s.publish(ctx, dataset.EventEvicted, v)
	}
}

func (s *Service) publish(ctx context.Context, typ dataset.EventType, ds *Dataset) {
	event := dataset.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		DatasetID: ds.ID,
		Kind:      ds.Kind,
		Rows:      ds.Rows,
		Warnings:  len(ds.Warnings),
		Time:      s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		// Events are informational; the dataset is already registered
		s.log.WithError(err).WithField("dataset_id", ds.ID).Warn("Failed to publish dataset event")
	}
}

// normalizeHandle matches the key format returned by FollowerLookup
func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}
