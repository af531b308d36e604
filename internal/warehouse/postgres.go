package warehouse

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moviepipe/moviepipe/internal/db"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

const insertSQL = `INSERT INTO ` + moviepipe.TableName + ` (userId, movieId, rating, timestamp, title, genres) VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresStore is a Store on a pgx connection pool.
type PostgresStore struct {
	pool       *pgxpool.Pool
	connector  moviepipe.Connector
	insertMode string
	batchSize  int
	logger     moviepipe.Logger
}

// OpenPostgres connects with the connector matching cfg.Connection.AuthMethod.
func OpenPostgres(ctx context.Context, cfg moviepipe.WarehouseConfig, logger moviepipe.Logger) (*PostgresStore, error) {
	connector, err := db.NewConnector(cfg.Connection, cfg.RetryAttempts, logger)
	if err != nil {
		return nil, err
	}

	logger.Verbose("Connecting to %s", db.Redacted(cfg.Connection))
	pool, err := connector.Connect(ctx)
	if err != nil {
		closeConnector(connector)
		return nil, err
	}

	return NewPostgresStore(pool, connector, cfg.InsertMode, cfg.BatchSize, logger), nil
}

// NewPostgresStore wraps an open pool. connector may be nil; when it
// implements io.Closer it is closed after the pool.
func NewPostgresStore(pool *pgxpool.Pool, connector moviepipe.Connector, insertMode string, batchSize int, logger moviepipe.Logger) *PostgresStore {
	if insertMode == "" {
		insertMode = moviepipe.InsertModeCopy
	}
	if batchSize <= 0 {
		batchSize = moviepipe.DefaultBatchSize
	}
	return &PostgresStore{
		pool:       pool,
		connector:  connector,
		insertMode: insertMode,
		batchSize:  batchSize,
		logger:     logger,
	}
}

func (s *PostgresStore) ReplaceTable(ctx context.Context, records []moviepipe.MergedRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, loadError("begin load of", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, DropTableSQL); err != nil {
		return 0, loadError("drop", err)
	}
	if _, err := tx.Exec(ctx, CreateTableSQL); err != nil {
		return 0, loadError("create", err)
	}

	var inserted int
	switch s.insertMode {
	case moviepipe.InsertModeBatch:
		inserted, err = s.insertBatches(ctx, tx, records)
	default:
		inserted, err = s.copyRecords(ctx, tx, records)
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, loadError("commit load of", err)
	}
	return inserted, nil
}

func (s *PostgresStore) copyRecords(ctx context.Context, tx pgx.Tx, records []moviepipe.MergedRecord) (int, error) {
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{moviepipe.TableName},
		tableColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return records[i].Values(), nil
		}),
	)
	if err != nil {
		return 0, loadError("copy into", err)
	}
	s.logger.Verbose("Copied %d rows into %s", n, moviepipe.TableName)
	return int(n), nil
}

func (s *PostgresStore) insertBatches(ctx context.Context, tx pgx.Tx, records []moviepipe.MergedRecord) (int, error) {
	inserted := 0
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))

		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			batch.Queue(insertSQL, rec.Values()...)
		}

		results := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return 0, loadError(fmt.Sprintf("insert row %d into", i+1), err)
			}
		}
		if err := results.Close(); err != nil {
			return 0, loadError("complete batch insert into", err)
		}

		inserted += end - start
		s.logger.Verbose("Inserted %d/%d rows into %s", inserted, len(records), moviepipe.TableName)
	}
	return inserted, nil
}

func (s *PostgresStore) TopRated(ctx context.Context, n int) ([]moviepipe.TitleAverage, error) {
	rows, err := s.pool.Query(ctx, topRatedSQL("$1"), n)
	if err != nil {
		return nil, loadError("query", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (moviepipe.TitleAverage, error) {
		var ta moviepipe.TitleAverage
		err := row.Scan(&ta.Title, &ta.AverageRating)
		return ta, err
	})
	if err != nil {
		return nil, loadError("read", err)
	}
	return result, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	closeConnector(s.connector)
	return nil
}

func closeConnector(c moviepipe.Connector) {
	if closer, ok := c.(io.Closer); ok {
		closer.Close() //nolint:errcheck
	}
}
