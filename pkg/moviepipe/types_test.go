package moviepipe_test

import (
	"errors"
	"testing"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() moviepipe.PipelineConfig {
	return moviepipe.PipelineConfig{
		RawDir:    "/data/raw",
		TmpDir:    "/data/tmp",
		MinRating: moviepipe.DefaultMinRating,
		TopN:      moviepipe.DefaultTopN,
		Warehouse: moviepipe.WarehouseConfig{
			Driver:     moviepipe.DriverPostgres,
			Connection: &moviepipe.ConnectionConfig{Host: "postgres", Port: 5432, Database: "airflow"},
			InsertMode: moviepipe.InsertModeCopy,
		},
	}
}

func TestPipelineConfig_Validate_Valid(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg.Warehouse = moviepipe.WarehouseConfig{Driver: moviepipe.DriverSQLite, SQLitePath: "/var/lib/moviepipe/warehouse.db"}
	require.NoError(t, cfg.Validate())
}

func TestPipelineConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.RawDir = ""
	cfg.TmpDir = ""
	cfg.TopN = 0
	cfg.Warehouse.InsertMode = "bulk"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, moviepipe.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "RawDir is required")
	assert.Contains(t, err.Error(), "TmpDir is required")
	assert.Contains(t, err.Error(), "TopN must be positive")
	assert.Contains(t, err.Error(), `unknown insert mode "bulk"`)
}

func TestPipelineConfig_Validate_Warehouse(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*moviepipe.PipelineConfig)
		wantMsg string
	}{
		{"unknown driver", func(c *moviepipe.PipelineConfig) { c.Warehouse.Driver = "mysql" }, "unknown warehouse driver"},
		{"postgres without connection", func(c *moviepipe.PipelineConfig) { c.Warehouse.Connection = nil }, "requires connection parameters"},
		{"sqlite without path", func(c *moviepipe.PipelineConfig) { c.Warehouse.Driver = moviepipe.DriverSQLite }, "requires a database path"},
		{"sqlite in memory", func(c *moviepipe.PipelineConfig) {
			c.Warehouse = moviepipe.WarehouseConfig{Driver: moviepipe.DriverSQLite, SQLitePath: ":memory:"}
		}, "cannot be :memory:"},
		{"batch without size", func(c *moviepipe.PipelineConfig) { c.Warehouse.InsertMode = moviepipe.InsertModeBatch }, "batch size must be positive"},
		{"negative timeout", func(c *moviepipe.PipelineConfig) { c.Timeout = -1 }, "timeout cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestPipelineConfig_ValidateByTask(t *testing.T) {
	cfg := validConfig()
	cfg.RawDir = ""
	cfg.Warehouse.Driver = "oracle"

	assert.NoError(t, cfg.ValidateCleanup(), "cleanup only needs the tmp dir")
	assert.ErrorContains(t, cfg.ValidateAnalysis(), "unknown warehouse driver")
	assert.NotContains(t, cfg.ValidateAnalysis().Error(), "RawDir")

	cfg.TmpDir = ""
	assert.ErrorIs(t, cfg.ValidateCleanup(), moviepipe.ErrInvalidConfig)
}

func TestParseAuthMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    moviepipe.AuthMethod
		wantErr bool
	}{
		{"", moviepipe.AuthMethodStandard, false},
		{"standard", moviepipe.AuthMethodStandard, false},
		{"AWS-IAM", moviepipe.AuthMethodAWSIAM, false},
		{"google", moviepipe.AuthMethodGoogleIAM, false},
		{"azure", moviepipe.AuthMethodAzureEntraID, false},
		{"kerberos", moviepipe.AuthMethodStandard, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := moviepipe.ParseAuthMethod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, moviepipe.ErrUnsupportedAuthMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntermediateFiles(t *testing.T) {
	assert.Equal(t, []string{"movies_clean.csv", "ratings_clean.csv", "merged_data.csv"}, moviepipe.IntermediateFiles())
}
