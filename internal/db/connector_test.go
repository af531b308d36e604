package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moviepipe/moviepipe/internal/logging"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name         string
		errMsg       string
		host         string
		wantContains string
	}{
		{"connection refused", "dial tcp 127.0.0.1:5432: connection refused", "127.0.0.1", "connection refused to 127.0.0.1:5432"},
		{"actively refused (Windows)", "No connection could be made because the target machine actively refused it", "127.0.0.1", "connection refused to 127.0.0.1:5432"},
		{"no such host", "dial tcp: lookup postgres: no such host", "postgres", `cannot resolve host "postgres"`},
		{"password auth failed", `password authentication failed for user "airflow"`, "postgres", `password authentication failed for database "airflow"`},
		{"database missing", `database "airflow" does not exist`, "postgres", "createdb airflow"},
		{"timeout", "dial tcp 10.0.0.1:5432: i/o timeout", "10.0.0.1", "connection timed out to 10.0.0.1:5432"},
		{"tls", "tls: failed to verify certificate", "postgres", "SSL/TLS connection error"},
		{"other", "something unexpected", "postgres", "something unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := errors.New(tt.errMsg)
			err := wrapConnectionError(original, tt.host, 5432, "airflow")

			assert.Contains(t, err.Error(), tt.wantContains)
			assert.ErrorIs(t, err, moviepipe.ErrConnectionFailed)
			assert.ErrorIs(t, err, original)
			assert.Equal(t, moviepipe.ExitConnectionError, moviepipe.ExitCodeForError(err))
		})
	}
}

func TestNewConnector_SelectsImplementation(t *testing.T) {
	logger := logging.NewNullLogger()

	t.Run("nil config", func(t *testing.T) {
		_, err := NewConnector(nil, 0, logger)
		assert.ErrorIs(t, err, moviepipe.ErrInvalidConfig)
	})

	t.Run("standard", func(t *testing.T) {
		c, err := NewConnector(&moviepipe.ConnectionConfig{Host: "postgres", Port: 5432}, 0, logger)
		require.NoError(t, err)
		assert.IsType(t, &StandardConnector{}, c)
	})

	t.Run("aws without region", func(t *testing.T) {
		_, err := NewConnector(&moviepipe.ConnectionConfig{Host: "rds", Port: 5432, Username: "u", AuthMethod: moviepipe.AuthMethodAWSIAM}, 0, logger)
		assert.ErrorIs(t, err, moviepipe.ErrInvalidConfig)
	})

	t.Run("aws", func(t *testing.T) {
		c, err := NewConnector(&moviepipe.ConnectionConfig{Host: "rds", Port: 5432, Username: "u", AWSRegion: "us-east-1", AuthMethod: moviepipe.AuthMethodAWSIAM}, 0, logger)
		require.NoError(t, err)
		assert.IsType(t, &TokenBasedConnector{}, c)
	})

	t.Run("google without instance", func(t *testing.T) {
		_, err := NewConnector(&moviepipe.ConnectionConfig{Username: "u", AuthMethod: moviepipe.AuthMethodGoogleIAM}, 0, logger)
		assert.ErrorIs(t, err, moviepipe.ErrInvalidConfig)
	})

	t.Run("google", func(t *testing.T) {
		c, err := NewConnector(&moviepipe.ConnectionConfig{Username: "u", GoogleInstance: "p:r:i", AuthMethod: moviepipe.AuthMethodGoogleIAM}, 0, logger)
		require.NoError(t, err)
		assert.IsType(t, &GoogleCloudSQLConnector{}, c)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewConnector(&moviepipe.ConnectionConfig{AuthMethod: moviepipe.AuthMethod(42)}, 0, logger)
		assert.ErrorIs(t, err, moviepipe.ErrUnsupportedAuthMethod)
	})
}

type stubTokenProvider struct {
	calls int
	err   error
}

func (p *stubTokenProvider) GetToken(context.Context) (string, time.Time, error) {
	p.calls++
	return "", time.Time{}, p.err
}

func (p *stubTokenProvider) String() string { return "stub" }

func TestTokenBasedConnector_TokenFailureIsConnectionError(t *testing.T) {
	provider := &stubTokenProvider{err: errors.New("credentials expired")}
	cfg := &moviepipe.ConnectionConfig{Host: "postgres", Port: 5432, Database: "airflow"}
	c := NewTokenBasedConnector(cfg, provider, "Stub", 0, logging.NewNullLogger())

	pool, err := c.Connect(context.Background())
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, moviepipe.ErrConnectionFailed)
	assert.Contains(t, err.Error(), "failed to acquire Stub token")
	assert.Equal(t, 1, provider.calls)
}

func TestAzureServicePrincipalProvider_RequiresAllCredentials(t *testing.T) {
	_, err := NewAzureServicePrincipalProvider("tenant", "", "secret")
	assert.Error(t, err)
}
