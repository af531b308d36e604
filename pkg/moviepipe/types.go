package moviepipe

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Warehouse drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Insert modes used by the load task.
const (
	InsertModeCopy  = "copy"
	InsertModeBatch = "batch"
)

// PipelineConfig contains every parameter a pipeline run needs.
// It replaces hardcoded paths and credentials with an explicit value
// that is built once by the CLI and passed down to each task.
type PipelineConfig struct {
	// RawDir holds movies.csv and ratings.csv
	RawDir string

	// TmpDir is the scratch directory for the intermediate CSV files
	TmpDir string

	// MinRating is the exclusive lower bound for a rating to survive cleaning
	MinRating float64

	// TopN is how many titles the analysis task reports
	TopN int

	// Warehouse selects and configures the relational target
	Warehouse WarehouseConfig

	// Source optionally fetches the raw files from S3 before ingest
	Source SourceConfig

	// Timeout is the global timeout for a single run
	Timeout time.Duration

	// KeepIntermediate makes the cleanup task leave the scratch files in place
	KeepIntermediate bool

	// Verbose enables detailed logging
	Verbose bool
}

// WarehouseConfig describes where merged rows are loaded.
type WarehouseConfig struct {
	// Driver is DriverPostgres or DriverSQLite
	Driver string

	// Connection holds the parsed PostgreSQL parameters (DriverPostgres only)
	Connection *ConnectionConfig

	// SQLitePath is the database file (DriverSQLite only). The load and analysis
	// tasks open separate connections, so it must name a real file.
	SQLitePath string

	// InsertMode is InsertModeCopy or InsertModeBatch (DriverPostgres only)
	InsertMode string

	// BatchSize is the number of rows queued per round trip in batch mode
	BatchSize int

	// RetryAttempts is the number of connection retries on transient failures (0 = none)
	RetryAttempts int
}

// SourceConfig describes an optional S3 location for the raw files.
// When Bucket is empty the raw files are expected to already be in RawDir.
type SourceConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Enabled reports whether raw files are fetched from S3.
func (s SourceConfig) Enabled() bool {
	return s.Bucket != ""
}

// Validate checks if the PipelineConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *PipelineConfig) Validate() error {
	var errs []error
	if c.RawDir == "" {
		errs = append(errs, fmt.Errorf("RawDir is required: %w", ErrInvalidConfig))
	}
	errs = append(errs, c.ValidateCleanup())
	errs = append(errs, c.ValidateAnalysis())
	return errors.Join(errs...)
}

// ValidateAnalysis checks only the settings the analysis task reads: the
// report size, the timeout and the warehouse.
func (c *PipelineConfig) ValidateAnalysis() error {
	var errs []error

	if c.TopN <= 0 {
		errs = append(errs, fmt.Errorf("TopN must be positive, got %d: %w", c.TopN, ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	switch c.Warehouse.Driver {
	case DriverPostgres:
		if c.Warehouse.Connection == nil {
			errs = append(errs, fmt.Errorf("postgres driver requires connection parameters: %w", ErrInvalidConfig))
		} else if !c.Warehouse.Connection.AuthMethod.IsValid() {
			errs = append(errs, fmt.Errorf("auth method %s: %w", c.Warehouse.Connection.AuthMethod, ErrUnsupportedAuthMethod))
		}
		switch c.Warehouse.InsertMode {
		case InsertModeCopy:
		case InsertModeBatch:
			if c.Warehouse.BatchSize <= 0 {
				errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.Warehouse.BatchSize, ErrInvalidConfig))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown insert mode %q (want copy or batch): %w", c.Warehouse.InsertMode, ErrInvalidConfig))
		}
	case DriverSQLite:
		switch c.Warehouse.SQLitePath {
		case "":
			errs = append(errs, fmt.Errorf("sqlite driver requires a database path: %w", ErrInvalidConfig))
		case ":memory:":
			errs = append(errs, fmt.Errorf("sqlite path cannot be :memory:, tasks do not share a connection: %w", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown warehouse driver %q (want postgres or sqlite): %w", c.Warehouse.Driver, ErrInvalidConfig))
	}

	if c.Warehouse.RetryAttempts < -1 {
		errs = append(errs, fmt.Errorf("retry attempts must be -1 (unlimited) or more: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ValidateCleanup checks only the settings the cleanup task reads.
func (c *PipelineConfig) ValidateCleanup() error {
	if c.TmpDir == "" {
		return fmt.Errorf("TmpDir is required: %w", ErrInvalidConfig)
	}
	return nil
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AWSRegion is required for AuthMethodAWSIAM
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance)
	GoogleInstance string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps the configuration spelling of an auth method to its value.
// An empty string selects AuthMethodStandard.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}
