package db

import (
	"testing"

	"github.com/moviepipe/moviepipe/internal/config"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConnection_Defaults(t *testing.T) {
	cfg, err := ResolveConnection("", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "airflow", cfg.Database)
	assert.Equal(t, "airflow", cfg.Username)
	assert.Equal(t, "airflow", cfg.Password)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, moviepipe.DefaultAppName, cfg.AppName)
	assert.Equal(t, moviepipe.AuthMethodStandard, cfg.AuthMethod)
}

func TestResolveConnection_ConnectionStringPrecedence(t *testing.T) {
	file := &config.ConnectionConfig{URL: "postgresql://file@filehost/filedb"}

	tests := []struct {
		name     string
		flag     string
		env      *EnvVars
		wantHost string
	}{
		{"flag wins", "postgresql://u@flaghost/db", &EnvVars{MOVIEPIPE_CONNECTION: "postgresql://u@envhost/db", DATABASE_URL: "postgresql://u@urlhost/db"}, "flaghost"},
		{"MOVIEPIPE_CONNECTION over DATABASE_URL", "", &EnvVars{MOVIEPIPE_CONNECTION: "postgresql://u@envhost/db", DATABASE_URL: "postgresql://u@urlhost/db"}, "envhost"},
		{"DATABASE_URL over yaml", "", &EnvVars{DATABASE_URL: "postgresql://u@urlhost/db"}, "urlhost"},
		{"yaml url", "", &EnvVars{}, "filehost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ResolveConnection(tt.flag, tt.env, file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, cfg.Host)
		})
	}
}

func TestResolveConnection_EnvFillsMissingPasswordAndSSLMode(t *testing.T) {
	env := &EnvVars{PGPASSWORD: "fromenv", PGSSLMODE: "require"}

	cfg, err := ResolveConnection("postgresql://loader@db:5432/movies", env, nil)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Password)
	assert.Equal(t, "require", cfg.SSLMode)

	cfg, err = ResolveConnection("postgresql://loader:inline@db:5432/movies?sslmode=disable", env, nil)
	require.NoError(t, err)
	assert.Equal(t, "inline", cfg.Password)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestResolveConnection_GranularEnvOverridesYAML(t *testing.T) {
	file := &config.ConnectionConfig{Host: "yamlhost", Port: 6000, Username: "yamluser", Database: "yamldb"}
	env := &EnvVars{PGHOST: "envhost", PGPORT: "7000"}

	cfg, err := ResolveConnection("", env, file)
	require.NoError(t, err)
	assert.Equal(t, "envhost", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "yamluser", cfg.Username)
	assert.Equal(t, "yamldb", cfg.Database)
	assert.Equal(t, "prefer", cfg.SSLMode)
}

func TestResolveConnection_InvalidPGPORT(t *testing.T) {
	_, err := ResolveConnection("", &EnvVars{PGPORT: "abc"}, nil)
	assert.ErrorIs(t, err, moviepipe.ErrInvalidConfig)
}

func TestResolveConnection_AuthMethods(t *testing.T) {
	t.Run("aws from env", func(t *testing.T) {
		env := &EnvVars{MOVIEPIPE_AUTH_METHOD: "aws-iam", AWS_REGION: "us-west-2"}
		cfg, err := ResolveConnection("", env, &config.ConnectionConfig{AWSRegion: "eu-west-1"})
		require.NoError(t, err)
		assert.Equal(t, moviepipe.AuthMethodAWSIAM, cfg.AuthMethod)
		assert.Equal(t, "us-west-2", cfg.AWSRegion)
	})

	t.Run("google from yaml", func(t *testing.T) {
		file := &config.ConnectionConfig{AuthMethod: "google", GoogleInstance: "proj:region:inst"}
		cfg, err := ResolveConnection("", nil, file)
		require.NoError(t, err)
		assert.Equal(t, moviepipe.AuthMethodGoogleIAM, cfg.AuthMethod)
		assert.Equal(t, "proj:region:inst", cfg.GoogleInstance)
	})

	t.Run("azure secret only from env", func(t *testing.T) {
		file := &config.ConnectionConfig{AuthMethod: "azure", AzureTenantID: "tenant", AzureClientID: "client"}
		env := &EnvVars{AZURE_CLIENT_SECRET: "secret"}
		cfg, err := ResolveConnection("", env, file)
		require.NoError(t, err)
		assert.Equal(t, moviepipe.AuthMethodAzureEntraID, cfg.AuthMethod)
		assert.Equal(t, "tenant", cfg.AzureTenantID)
		assert.Equal(t, "client", cfg.AzureClientID)
		assert.Equal(t, "secret", cfg.AzureClientSecret)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ResolveConnection("", &EnvVars{MOVIEPIPE_AUTH_METHOD: "kerberos"}, nil)
		assert.ErrorIs(t, err, moviepipe.ErrUnsupportedAuthMethod)
	})
}
