// internal/adapter/social/twitter.go

package social

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
)

// bearerAuthorizer adds the app-only bearer token to API requests
type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+a.token)
}

// TwitterConfig configures the X API client
type TwitterConfig struct {
	BearerToken string
	Host        string
	Timeout     time.Duration
	BatchSize   int
}

// TwitterLookup resolves follower counts through the X API v2 user lookup
type TwitterLookup struct {
	client    *twitter.Client
	batchSize int
}

// NewTwitterLookup creates a follower lookup. BatchSize is capped at the API
// limit of 100 usernames per request.
func NewTwitterLookup(cfg TwitterConfig) (*TwitterLookup, error) {
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("twitter bearer token not configured")
	}
	batch := cfg.BatchSize
	if batch <= 0 || batch > 100 {
		batch = 100
	}

	return &TwitterLookup{
		client: &twitter.Client{
			Authorizer: bearerAuthorizer{token: cfg.BearerToken},
			Client:     &http.Client{Timeout: cfg.Timeout},
			Host:       cfg.Host,
		},
		batchSize: batch,
	}, nil
}

// Followers returns follower counts keyed by lower-cased username
func (l *TwitterLookup) Followers(ctx context.Context, handles []string) (map[string]int64, error) {
	unique := dedupe(handles)
	out := make(map[string]int64, len(unique))

	for start := 0; start < len(unique); start += l.batchSize {
		end := start + l.batchSize
		if end > len(unique) {
			end = len(unique)
		}

		resp, err := l.client.UserNameLookup(ctx, unique[start:end], twitter.UserLookupOpts{
			UserFields: []twitter.UserField{twitter.UserFieldPublicMetrics},
		})
		if err != nil {
			return out, fmt.Errorf("error looking up users: %w", err)
		}
		if resp == nil || resp.Raw == nil {
			continue
		}

		for _, user := range resp.Raw.Users {
			if user == nil || user.PublicMetrics == nil {
				continue
			}
			out[strings.ToLower(user.UserName)] = int64(user.PublicMetrics.Followers)
		}
	}

	return out, nil
}

// dedupe lower-cases handles, strips a leading @ and drops blanks and repeats
func dedupe(handles []string) []string {
	seen := make(map[string]struct{}, len(handles))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
