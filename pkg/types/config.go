// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout. It does not bound the
	// overall wait for a remote job; see MathpixConfig.WaitTimeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "paideia/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// MathpixConfig holds settings for the Mathpix document-conversion client.
type MathpixConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Mathpix API root (default https://api.mathpix.com).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// PollInterval is the delay between job status polls (default 3s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// WaitTimeout bounds the whole wait for job completion (default 30m).
	WaitTimeout time.Duration `json:"wait_timeout" yaml:"wait_timeout" mapstructure:"wait_timeout"`
}

// IngestConfig holds the paths used by the ingest command.
type IngestConfig struct {
	// InputPath is the PDF to submit (default pdfs/algebra-trig.pdf).
	InputPath string `json:"input_path" yaml:"input_path" mapstructure:"input_path"`

	// OutputPath is the write-once text artifact (default texts/text.txt).
	OutputPath string `json:"output_path" yaml:"output_path" mapstructure:"output_path"`

	// PageRanges optionally restricts conversion to pages, e.g. "1-3,7".
	PageRanges string `json:"page_ranges,omitempty" yaml:"page_ranges,omitempty" mapstructure:"page_ranges"`
}

// ServerConfig holds settings for the health-check web service.
type ServerConfig struct {
	Host             string        `json:"host" yaml:"host" mapstructure:"host"`
	Port             int           `json:"port" yaml:"port" mapstructure:"port"`
	ReadTimeout      time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	GracefulShutdown time.Duration `json:"graceful_shutdown" yaml:"graceful_shutdown" mapstructure:"graceful_shutdown"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// StoreConfig holds settings for the local job ledger.
type StoreConfig struct {
	// DataDir holds the ledger database and its exports (default data).
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// Disabled turns off job recording.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// Config groups all settings for the paideia binary.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Mathpix MathpixConfig `json:"mathpix" yaml:"mathpix" mapstructure:"mathpix"`
	Ingest  IngestConfig  `json:"ingest" yaml:"ingest" mapstructure:"ingest"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
}

// Default returns the configuration used when no file, env or flag overrides a value.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Mathpix: MathpixConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    60 * time.Second,
				UserAgent:  "paideia/0.1",
				MaxRetries: 5,
			},
			BaseURL:      "https://api.mathpix.com",
			PollInterval: 3 * time.Second,
			WaitTimeout:  30 * time.Minute,
		},
		Ingest: IngestConfig{
			InputPath:  "pdfs/algebra-trig.pdf",
			OutputPath: "texts/text.txt",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Store: StoreConfig{
			DataDir: "data",
		},
	}
}
