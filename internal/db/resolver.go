package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/moviepipe/moviepipe/internal/config"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// EnvVars represents the connection-related environment variables.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	MOVIEPIPE_CONNECTION  string // full connection string, wins over DATABASE_URL
	MOVIEPIPE_AUTH_METHOD string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment loads the connection environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:                os.Getenv("PGHOST"),
		PGPORT:                os.Getenv("PGPORT"),
		PGUSER:                os.Getenv("PGUSER"),
		PGPASSWORD:            os.Getenv("PGPASSWORD"),
		PGDATABASE:            os.Getenv("PGDATABASE"),
		PGSSLMODE:             os.Getenv("PGSSLMODE"),
		DATABASE_URL:          os.Getenv("DATABASE_URL"),
		MOVIEPIPE_CONNECTION:  os.Getenv("MOVIEPIPE_CONNECTION"),
		MOVIEPIPE_AUTH_METHOD: os.Getenv("MOVIEPIPE_AUTH_METHOD"),
		AWS_REGION:            os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:       os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:       os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:   os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

func (e *EnvVars) hasGranular() bool {
	return e.PGHOST != "" || e.PGPORT != "" || e.PGUSER != "" || e.PGDATABASE != "" || e.PGSSLMODE != ""
}

// ResolveConnection resolves PostgreSQL connection parameters.
//
// A full connection string is taken from, in order: connStrFlag,
// $MOVIEPIPE_CONNECTION, $DATABASE_URL, connection.url in moviepipe.yaml.
// Without one, granular parameters are layered over moviepipe.DefaultConnection:
// moviepipe.yaml first, then PG* environment variables.
//
// $PGPASSWORD and $PGSSLMODE fill in a password or sslmode that the chosen
// source leaves empty. The auth method comes from $MOVIEPIPE_AUTH_METHOD or
// connection.auth_method.
func ResolveConnection(connStrFlag string, env *EnvVars, file *config.ConnectionConfig) (*moviepipe.ConnectionConfig, error) {
	if env == nil {
		env = &EnvVars{}
	}
	if file == nil {
		file = &config.ConnectionConfig{}
	}

	var cfg *moviepipe.ConnectionConfig
	var err error

	connStr := firstNonEmpty(connStrFlag, env.MOVIEPIPE_CONNECTION, env.DATABASE_URL, file.URL)
	if connStr != "" {
		cfg, err = ParseConnectionString(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %w", err)
		}
	} else {
		cfg, err = resolveFromGranularParams(env, file)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Password == "" {
		cfg.Password = env.PGPASSWORD
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = env.PGSSLMODE
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "prefer"
	}
	if cfg.AppName == "" {
		cfg.AppName = moviepipe.DefaultAppName
	}

	if err := applyAuth(cfg, env, file); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveFromGranularParams applies yaml then PG* variables over the default target.
func resolveFromGranularParams(env *EnvVars, file *config.ConnectionConfig) (*moviepipe.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(moviepipe.DefaultConnection)
	if err != nil {
		return nil, err
	}
	if !file.IsEmpty() || env.hasGranular() {
		// an explicitly configured target does not inherit the default sslmode=disable
		cfg.SSLMode = ""
	}

	cfg.Host = firstNonEmpty(env.PGHOST, file.Host, cfg.Host)
	cfg.Username = firstNonEmpty(env.PGUSER, file.Username, cfg.Username)
	cfg.Database = firstNonEmpty(env.PGDATABASE, file.Database, cfg.Database)
	cfg.SSLMode = firstNonEmpty(env.PGSSLMODE, file.SSLMode, cfg.SSLMode)

	switch {
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, moviepipe.ErrInvalidConfig)
		}
		cfg.Port = port
	case file.Port != 0:
		cfg.Port = file.Port
	}

	if env.PGPASSWORD != "" {
		cfg.Password = env.PGPASSWORD
	}

	return cfg, nil
}

// applyAuth sets the auth method and the cloud parameters it needs.
// Environment variables take precedence over moviepipe.yaml.
func applyAuth(cfg *moviepipe.ConnectionConfig, env *EnvVars, file *config.ConnectionConfig) error {
	method, err := moviepipe.ParseAuthMethod(firstNonEmpty(env.MOVIEPIPE_AUTH_METHOD, file.AuthMethod))
	if err != nil {
		return err
	}
	cfg.AuthMethod = method

	switch method {
	case moviepipe.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(env.AWS_REGION, file.AWSRegion)
	case moviepipe.AuthMethodGoogleIAM:
		cfg.GoogleInstance = file.GoogleInstance
	case moviepipe.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(env.AZURE_TENANT_ID, file.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(env.AZURE_CLIENT_ID, file.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
