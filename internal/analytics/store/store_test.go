package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/postgres"
)

// These tests need a live database; CS_TEST_POSTGRES_HOST enables them.
func testStore(t *testing.T) *Store {
	t.Helper()
	host := os.Getenv("CS_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("CS_TEST_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	_, err = db.DB.ExecContext(ctx, `TRUNCATE analytics_snapshots`)
	require.NoError(t, err)
	return New(db)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	agg := analytics.NewAggregator(5)
	agg.Record(analytics.SearchEvent{Query: "login", Returned: 1, LatencyMs: 3})
	require.NoError(t, s.SaveSnapshot(ctx, agg.Stats()))
	time.Sleep(10 * time.Millisecond)
	agg.Record(analytics.SearchEvent{Query: "logout", LatencyMs: 4})
	require.NoError(t, s.SaveSnapshot(ctx, agg.Stats()))

	latest, err = s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.TotalSearches)

	list, err := s.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[1].TotalSearches)
}
