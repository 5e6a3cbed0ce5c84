// internal/adapter/storage/engagement_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"legisdash/internal/domain/dataset"
)

// EngagementStore reads engagement snapshots maintained by an upstream
// collector. It never writes.
type EngagementStore struct {
	db    *pgxpool.Pool
	table string
}

// NewEngagementStore creates a new engagement store reading from table
func NewEngagementStore(db *pgxpool.Pool, table string) *EngagementStore {
	return &EngagementStore{
		db:    db,
		table: table,
	}
}

// snapshotRow is one row of the snapshot table
type snapshotRow struct {
	Name      string
	Handle    string
	Followers int64
	Likes     int64
	Views     int64
}

// LoadEngagement returns the snapshot as a legislator table
func (s *EngagementStore) LoadEngagement(ctx context.Context) (dataset.Table, error) {
	query := fmt.Sprintf(`
		SELECT
			nome_deputado,
			COALESCE(usuario_x, ''),
			COALESCE(seguidores_twitter, 0),
			COALESCE(curtidas_instagram, 0),
			COALESCE(visualizacoes_tiktok, 0)
		FROM %s
		ORDER BY nome_deputado
	`, pgx.Identifier{s.table}.Sanitize())

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return dataset.Empty(dataset.KindLegislators), fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var snapshot []snapshotRow
	for rows.Next() {
		var r snapshotRow
		if err := rows.Scan(&r.Name, &r.Handle, &r.Followers, &r.Likes, &r.Views); err != nil {
			return dataset.Empty(dataset.KindLegislators), fmt.Errorf("error scanning engagement row: %w", err)
		}
		snapshot = append(snapshot, r)
	}

	if err := rows.Err(); err != nil {
		return dataset.Empty(dataset.KindLegislators), fmt.Errorf("error iterating engagement rows: %w", err)
	}

	return snapshotTable(snapshot), nil
}

// snapshotTable converts snapshot rows, clamping negative counts to 0
func snapshotTable(rows []snapshotRow) dataset.Table {
	records := make([]dataset.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, dataset.Record{
			Name:             r.Name,
			Handle:           r.Handle,
			FollowersTwitter: nonNegative(r.Followers),
			LikesInstagram:   nonNegative(r.Likes),
			ViewsTiktok:      nonNegative(r.Views),
		})
	}
	return dataset.NewTable(dataset.KindLegislators, records, dataset.RequiredMetrics)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
