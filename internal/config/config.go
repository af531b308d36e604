package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type PathsConfig struct {
	RawDir string `yaml:"raw_dir"`
	TmpDir string `yaml:"tmp_dir"`
}

type TransformConfig struct {
	// MinRating is a pointer so that an explicit 0 can be told apart from unset.
	MinRating *float64 `yaml:"min_rating"`
}

type AnalysisConfig struct {
	TopN int `yaml:"top_n"`
}

type WarehouseConfig struct {
	Driver        string `yaml:"driver"`
	SQLitePath    string `yaml:"sqlite_path,omitempty"`
	RetryAttempts int    `yaml:"retry_attempts,omitempty"`
}

type LoadConfig struct {
	InsertMode string `yaml:"insert_mode"`
	BatchSize  int    `yaml:"batch_size,omitempty"`
}

type ConnectionConfig struct {
	URL            string `yaml:"url,omitempty"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// IsEmpty reports whether no granular connection field is set.
func (c ConnectionConfig) IsEmpty() bool {
	return c.Host == "" && c.Port == 0 && c.Username == "" && c.Database == "" && c.SSLMode == ""
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

type SourceConfig struct {
	S3 S3Config `yaml:"s3"`
}

type RunConfig struct {
	Timeout          string `yaml:"timeout"`
	KeepIntermediate bool   `yaml:"keep_intermediate"`
}

type ScheduleConfig struct {
	At          string `yaml:"at"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// ProjectConfig mirrors moviepipe.yaml.
type ProjectConfig struct {
	Paths      PathsConfig      `yaml:"paths"`
	Transform  TransformConfig  `yaml:"transform"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	Load       LoadConfig       `yaml:"load"`
	Connection ConnectionConfig `yaml:"connection"`
	Source     SourceConfig     `yaml:"source"`
	Run        RunConfig        `yaml:"run"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
}

const ConfigFileName = "moviepipe.yaml"

// LoadFromDir loads ConfigFileName from dir.
func LoadFromDir(dir string) (*ProjectConfig, error) {
	return Load(filepath.Join(dir, ConfigFileName))
}

// Load reads and decodes the config file at path. Unknown keys are rejected.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w: %v", path, moviepipe.ErrInvalidConfig, err)
	}
	return &cfg, nil
}
