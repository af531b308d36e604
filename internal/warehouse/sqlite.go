package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore is a Store on a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database that lives until Close.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required: %w", moviepipe.ErrInvalidConfig)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w: %w", path, moviepipe.ErrConnectionFailed, err)
	}
	// SQLite has a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w: %w", path, moviepipe.ErrConnectionFailed, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ReplaceTable(ctx context.Context, records []moviepipe.MergedRecord) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, loadError("begin load of", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, DropTableSQL); err != nil {
		return 0, loadError("drop", err)
	}
	if _, err := tx.ExecContext(ctx, CreateTableSQL); err != nil {
		return 0, loadError("create", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+moviepipe.TableName+` (userId, movieId, rating, timestamp, title, genres) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, loadError("prepare insert into", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Values()...); err != nil {
			return 0, loadError(fmt.Sprintf("insert row %d into", i+1), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, loadError("commit load of", err)
	}
	return len(records), nil
}

func (s *SQLiteStore) TopRated(ctx context.Context, n int) ([]moviepipe.TitleAverage, error) {
	rows, err := s.db.QueryContext(ctx, topRatedSQL("?"), n)
	if err != nil {
		return nil, loadError("query", err)
	}
	defer func() { _ = rows.Close() }()

	result := []moviepipe.TitleAverage{}
	for rows.Next() {
		var ta moviepipe.TitleAverage
		if err := rows.Scan(&ta.Title, &ta.AverageRating); err != nil {
			return nil, loadError("read", err)
		}
		result = append(result, ta)
	}
	if err := rows.Err(); err != nil {
		return nil, loadError("read", err)
	}
	return result, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
