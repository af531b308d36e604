package warehouse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "warehouse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rec(user, movie int64, rating float64, title string) moviepipe.MergedRecord {
	return moviepipe.MergedRecord{UserID: user, MovieID: movie, Rating: rating, Timestamp: 1000 + user, Title: title, Genres: "Drama"}
}

func countRows(t *testing.T, s *SQLiteStore) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+moviepipe.TableName).Scan(&n))
	return n
}

func TestSQLiteStore_EndToEndExample(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	n, err := s.ReplaceTable(ctx, []moviepipe.MergedRecord{
		{UserID: 10, MovieID: 1, Rating: 4.0, Timestamp: 100, Title: "A", Genres: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	top, err := s.TopRated(ctx, moviepipe.DefaultTopN)
	require.NoError(t, err)
	assert.Equal(t, []moviepipe.TitleAverage{{Title: "A", AverageRating: 4.0}}, top)
}

func TestSQLiteStore_ReplaceTableIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)
	records := []moviepipe.MergedRecord{rec(1, 1, 4, "A"), rec(2, 1, 5, "A"), rec(3, 2, 3, "B")}

	for i := 0; i < 3; i++ {
		n, err := s.ReplaceTable(ctx, records)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, 3, countRows(t, s), "run %d", i+1)
	}

	var got []moviepipe.MergedRecord
	rows, err := s.db.Query(`SELECT userId, movieId, rating, timestamp, title, genres FROM ` + moviepipe.TableName + ` ORDER BY userId`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var r moviepipe.MergedRecord
		require.NoError(t, rows.Scan(&r.UserID, &r.MovieID, &r.Rating, &r.Timestamp, &r.Title, &r.Genres))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("table contents mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_ReplaceWithFewerRows(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	_, err := s.ReplaceTable(ctx, []moviepipe.MergedRecord{rec(1, 1, 4, "A"), rec(2, 2, 5, "B")})
	require.NoError(t, err)

	n, err := s.ReplaceTable(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, countRows(t, s))

	top, err := s.TopRated(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestSQLiteStore_TopRatedOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	_, err := s.ReplaceTable(ctx, []moviepipe.MergedRecord{
		rec(1, 1, 5.0, "Zulu"),
		rec(2, 2, 5.0, "Alpha"),
		rec(3, 3, 3.0, "Mid"),
		rec(4, 3, 4.0, "Mid"),
		rec(5, 4, 3.0, "Low"),
		rec(6, 5, 4.5, "High"),
		rec(7, 6, 2.6, "Bottom"),
	})
	require.NoError(t, err)

	top, err := s.TopRated(ctx, 5)
	require.NoError(t, err)

	want := []moviepipe.TitleAverage{
		{Title: "Alpha", AverageRating: 5.0},
		{Title: "Zulu", AverageRating: 5.0},
		{Title: "High", AverageRating: 4.5},
		{Title: "Mid", AverageRating: 3.5},
		{Title: "Low", AverageRating: 3.0},
	}
	if diff := cmp.Diff(want, top); diff != "" {
		t.Errorf("TopRated mismatch (-want +got):\n%s", diff)
	}

	top, err = s.TopRated(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestSQLiteStore_TopRatedWithoutTable(t *testing.T) {
	s := openTestSQLite(t)

	_, err := s.TopRated(context.Background(), 5)
	assert.ErrorIs(t, err, moviepipe.ErrLoadFailed)
}

func TestSQLiteStore_MemoryDatabase(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReplaceTable(ctx, []moviepipe.MergedRecord{rec(1, 1, 4, "A")})
	require.NoError(t, err)

	top, err := s.TopRated(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, moviepipe.WarehouseConfig{Driver: "oracle"}, nil)
	assert.ErrorIs(t, err, moviepipe.ErrInvalidConfig)

	_, err = Open(ctx, moviepipe.WarehouseConfig{Driver: moviepipe.DriverSQLite}, nil)
	assert.ErrorIs(t, err, moviepipe.ErrInvalidConfig)

	store, err := Open(ctx, moviepipe.WarehouseConfig{Driver: moviepipe.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "w.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())
}
