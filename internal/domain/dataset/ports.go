// internal/domain/dataset/ports.go

package dataset

import (
	"context"
	"time"
)

// EngagementSource provides a secondary engagement table to join onto uploads
type EngagementSource interface {
	// LoadEngagement returns the latest engagement snapshot as a legislator table
	LoadEngagement(ctx context.Context) (Table, error)
}

// FollowerLookup resolves current follower counts for social handles
type FollowerLookup interface {
	// Followers returns follower counts keyed by lower-cased handle. Unknown
	// handles are absent from the result.
	Followers(ctx context.Context, handles []string) (map[string]int64, error)
}

// EventPublisher broadcasts dataset lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventType names a dataset lifecycle event
type EventType string

const (
	EventLoaded    EventType = "dataset.loaded"
	EventRefreshed EventType = "dataset.refreshed"
	EventEvicted   EventType = "dataset.evicted"
)

// Event describes a change to the dataset registry
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	DatasetID string    `json:"dataset_id"`
	Kind      Kind      `json:"kind"`
	Rows      int       `json:"rows"`
	Warnings  int       `json:"warnings"`
	Time      time.Time `json:"time"`
}
