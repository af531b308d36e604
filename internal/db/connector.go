package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moviepipe/moviepipe/internal/retry"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns bounds the pool. The load task holds a single
	// transaction, so a small pool is enough.
	DefaultMaxConns = 4

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the connection alive between load and analysis.
	DefaultMaxConnIdleTime = 10 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger moviepipe.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("postgres %s: %s", strings.ToLower(notice.Severity), notice.Message)
	}
}

// openPool parses connStr, opens a pool and pings it.
// Errors are wrapped with connection guidance and ErrConnectionFailed.
func openPool(ctx context.Context, connStr string, config *moviepipe.ConnectionConfig, logger moviepipe.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %v", moviepipe.ErrInvalidConfig, err)
	}

	configurePool(poolConfig, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	return pool, nil
}

// StandardConnector implements the Connector interface for standard
// username/password authentication with optional retry on transient failures.
type StandardConnector struct {
	config        *moviepipe.ConnectionConfig
	retryExecutor *retry.Executor
	logger        moviepipe.Logger
}

// NewStandardConnector creates a new StandardConnector.
// retryAttempts is the number of retries after the first failed attempt.
func NewStandardConnector(config *moviepipe.ConnectionConfig, retryAttempts int, logger moviepipe.Logger) *StandardConnector {
	return &StandardConnector{
		config:        config,
		retryExecutor: retry.NewConnectionExecutor(retryAttempts, logger),
		logger:        logger,
	}
}

// Connect establishes a connection pool using standard authentication.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, connStr, c.config, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// NewConnector creates the Connector matching config.AuthMethod.
func NewConnector(config *moviepipe.ConnectionConfig, retryAttempts int, logger moviepipe.Logger) (moviepipe.Connector, error) {
	if config == nil {
		return nil, fmt.Errorf("connection parameters are required: %w", moviepipe.ErrInvalidConfig)
	}

	switch config.AuthMethod {
	case moviepipe.AuthMethodStandard:
		return NewStandardConnector(config, retryAttempts, logger), nil
	case moviepipe.AuthMethodAWSIAM:
		return newAWSConnector(config, retryAttempts, logger)
	case moviepipe.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case moviepipe.AuthMethodAzureEntraID:
		return newAzureConnector(config, retryAttempts, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, moviepipe.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// The result matches both moviepipe.ErrConnectionFailed and the original error.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, moviepipe.ErrConnectionFailed, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`%w: cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - The compose network alias is missing (default host is "postgres")

Original error: %w`, moviepipe.ErrConnectionFailed, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`%w: password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or the connection string)
  - Wrong username

Original error: %w`, moviepipe.ErrConnectionFailed, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`%w: database "%s" does not exist

To create it:
  createdb %s

Original error: %w`, moviepipe.ErrConnectionFailed, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`%w: connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets

Original error: %w`, moviepipe.ErrConnectionFailed, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode is disable
  - Certificate verification failed (try sslmode=require)

Original error: %w`, moviepipe.ErrConnectionFailed, err)

	default:
		return fmt.Errorf("%w: %w", moviepipe.ErrConnectionFailed, err)
	}
}

func newAWSConnector(config *moviepipe.ConnectionConfig, retryAttempts int, logger moviepipe.Logger) (moviepipe.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM", retryAttempts, logger), nil
}

func newGoogleConnector(config *moviepipe.ConnectionConfig, logger moviepipe.Logger) (moviepipe.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires connection.google_instance (project:region:instance): %w", moviepipe.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username: %w", moviepipe.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance, logger), nil
}

// newAzureConnector uses Service Principal auth when tenant, client and secret
// are all set, and the DefaultAzureCredential chain otherwise.
func newAzureConnector(config *moviepipe.ConnectionConfig, retryAttempts int, logger moviepipe.Logger) (moviepipe.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(
			config.AzureTenantID,
			config.AzureClientID,
			config.AzureClientSecret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure", retryAttempts, logger), nil
}
