package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moviepipe/moviepipe/internal/retry"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// TokenBasedConnector connects with a short-lived token from a TokenProvider
// (AWS IAM, Azure Entra ID) in place of a password.
type TokenBasedConnector struct {
	config        *moviepipe.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	logger        moviepipe.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in log and error messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *moviepipe.ConnectionConfig, tokenProvider TokenProvider, providerName string, retryAttempts int, logger moviepipe.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: retry.NewConnectionExecutor(retryAttempts, logger),
		providerName:  providerName,
		logger:        logger,
	}
}

// Connect acquires a fresh token for every attempt and opens the pool with it.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w: %w", c.providerName, moviepipe.ErrConnectionFailed, err)
		}

		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Info("%s token expires in %v", c.providerName, remaining.Round(time.Second))
		}
		c.logger.Verbose("Acquired token from %s", c.tokenProvider)

		configWithToken := *c.config
		configWithToken.Password = token

		pool, err = openPool(ctx, BuildConnectionString(&configWithToken), c.config, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}
