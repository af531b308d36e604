// Package warehouse loads merged rows into the movies_ratings table and runs
// the top-rated analysis against it.
//
// Two drivers share one schema: PostgreSQL through pgx, and SQLite through
// database/sql with the pure Go modernc.org/sqlite driver.
package warehouse

import (
	"context"
	"fmt"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// Store is a relational target for merged rows.
type Store interface {
	// ReplaceTable drops movies_ratings, recreates it and inserts records,
	// all in one transaction. It returns the number of rows inserted.
	ReplaceTable(ctx context.Context, records []moviepipe.MergedRecord) (int, error)

	// TopRated returns up to n titles by average rating, highest first,
	// ties broken by title ascending.
	TopRated(ctx context.Context, n int) ([]moviepipe.TitleAverage, error)

	// Close releases the connection.
	Close() error
}

// Column names of movies_ratings, in table order. PostgreSQL folds the
// unquoted names in CreateTableSQL to lower case.
var tableColumns = []string{"userid", "movieid", "rating", "timestamp", "title", "genres"}

const (
	DropTableSQL   = `DROP TABLE IF EXISTS ` + moviepipe.TableName
	CreateTableSQL = `CREATE TABLE ` + moviepipe.TableName + ` (
    userId INT,
    movieId INT,
    rating FLOAT,
    timestamp BIGINT,
    title TEXT,
    genres TEXT
)`
)

// topRatedSQL builds the analysis query with the driver's placeholder for the limit.
func topRatedSQL(placeholder string) string {
	return `SELECT title, AVG(rating) AS avg_rating
FROM ` + moviepipe.TableName + `
GROUP BY title
ORDER BY avg_rating DESC, title ASC
LIMIT ` + placeholder
}

// Open connects the store selected by cfg.Driver.
func Open(ctx context.Context, cfg moviepipe.WarehouseConfig, logger moviepipe.Logger) (Store, error) {
	switch cfg.Driver {
	case moviepipe.DriverPostgres:
		return OpenPostgres(ctx, cfg, logger)
	case moviepipe.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown warehouse driver %q: %w", cfg.Driver, moviepipe.ErrInvalidConfig)
	}
}

func loadError(step string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", step, moviepipe.TableName, moviepipe.ErrLoadFailed, err)
}
