package db

import (
	"net/url"
	"testing"
	"time"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		connStr string
		want    *moviepipe.ConnectionConfig
	}{
		{
			name:    "default airflow target",
			connStr: moviepipe.DefaultConnection,
			want: &moviepipe.ConnectionConfig{
				Host:             "postgres",
				Port:             5432,
				Database:         "airflow",
				Username:         "airflow",
				Password:         "airflow",
				SSLMode:          "disable",
				AuthMethod:       moviepipe.AuthMethodStandard,
				AdditionalParams: map[string]string{},
			},
		},
		{
			name:    "URI with defaults",
			connStr: "postgresql://",
			want: &moviepipe.ConnectionConfig{
				Host:             "localhost",
				Port:             5432,
				Database:         "postgres",
				AuthMethod:       moviepipe.AuthMethodStandard,
				AdditionalParams: map[string]string{},
			},
		},
		{
			name:    "postgres scheme with params",
			connStr: "postgres://etl@db.internal:5433/warehouse?application_name=nightly&connect_timeout=7&search_path=etl",
			want: &moviepipe.ConnectionConfig{
				Host:             "db.internal",
				Port:             5433,
				Database:         "warehouse",
				Username:         "etl",
				AppName:          "nightly",
				ConnectTimeout:   7 * time.Second,
				AuthMethod:       moviepipe.AuthMethodStandard,
				AdditionalParams: map[string]string{"search_path": "etl"},
			},
		},
		{
			name:    "keyword/value",
			connStr: "host=postgres port=5432 dbname=airflow user=airflow password=airflow",
			want: &moviepipe.ConnectionConfig{
				Host:             "postgres",
				Port:             5432,
				Database:         "airflow",
				Username:         "airflow",
				Password:         "airflow",
				AuthMethod:       moviepipe.AuthMethodStandard,
				AdditionalParams: map[string]string{},
			},
		},
		{
			name:    "ADO.NET",
			connStr: "Host=db;Port=6543;Database=movies;Username=loader;Password=secret;SSL Mode=require",
			want: &moviepipe.ConnectionConfig{
				Host:             "db",
				Port:             6543,
				Database:         "movies",
				Username:         "loader",
				Password:         "secret",
				SSLMode:          "require",
				AuthMethod:       moviepipe.AuthMethodStandard,
				AdditionalParams: map[string]string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConnectionString(tt.connStr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConnectionString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		connStr string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"unrecognized", "just-a-hostname"},
		{"bad URI port", "postgresql://localhost:notaport/db"},
		{"bad ADO.NET port", "Host=db;Port=abc"},
		{"bad keyword pair", "host=db stray"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConnectionString(tt.connStr)
			assert.ErrorIs(t, err, moviepipe.ErrInvalidConfig)
		})
	}
}

func TestBuildConnectionString_RoundTrip(t *testing.T) {
	cfg := &moviepipe.ConnectionConfig{
		Host:             "postgres",
		Port:             5432,
		Database:         "airflow",
		Username:         "airflow",
		Password:         "p@ss word",
		SSLMode:          "disable",
		AppName:          "moviepipe",
		ConnectTimeout:   5 * time.Second,
		AuthMethod:       moviepipe.AuthMethodStandard,
		AdditionalParams: map[string]string{},
	}

	parsed, err := ParseConnectionString(BuildConnectionString(cfg))
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}

func TestRedacted_MasksPassword(t *testing.T) {
	cfg, err := ParseConnectionString(moviepipe.DefaultConnection)
	require.NoError(t, err)

	redacted := Redacted(cfg)
	assert.NotContains(t, redacted, ":airflow@")

	u, err := url.Parse(redacted)
	require.NoError(t, err)
	pass, _ := u.User.Password()
	assert.Equal(t, "xxxxx", pass)
	assert.Equal(t, "airflow", cfg.Password, "original config must not be modified")
}
