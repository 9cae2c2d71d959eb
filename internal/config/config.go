package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout is the per-request fetch timeout. SEO targets are
	// ordinary clearnet sites, so 20 seconds covers slow shared hosting
	// without letting a dead host stall the whole queue.
	DefaultTimeout = 20 * time.Second

	// DefaultBatchSize is the number of projects processed concurrently
	// when running all scheduled projects. Each project still fetches
	// one URL at a time; this only parallelizes across sites.
	DefaultBatchSize = 4

	// DefaultMaxSteps of 0 means the crawl runs until the queue drains.
	// A positive value caps the number of fetches per invocation, which
	// turns the crawl into a resumable batch job.
	DefaultMaxSteps = 0

	// DefaultUserAgent identifies seoscan in HTTP requests. A descriptive
	// User-Agent lets site operators identify crawler traffic in their
	// logs.
	DefaultUserAgent = "seoscan/1.0 (+https://github.com/seoscan/seoscan)"

	// DefaultMaxBodySize limits the response body size to read. 16MB
	// accommodates large images and PDFs while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 16 * 1024 * 1024 // 16MB

	// AppName is the application name used for XDG directory paths.
	AppName = "seoscan"
)

// Config holds all configuration options for seoscan.
// This struct is populated from CLI flags and the optional .seoscan
// file, then passed through the application via dependency injection
// rather than global state.
type Config struct {
	// DataDir is the root directory of the project/run store.
	// Defaults to the XDG data directory when empty.
	DataDir string

	// Timeout is the per-request fetch timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. Set to 0 to use the
	// default.
	MaxBodySize int64

	// MaxSteps caps the number of fetches per crawl invocation.
	// 0 means run until the queue is empty.
	MaxSteps int

	// BatchSize is the number of projects processed concurrently when
	// crawling multiple projects.
	BatchSize int

	// InsecureTLS disables TLS certificate verification. Useful for
	// auditing staging hosts with self-signed certificates.
	InsecureTLS bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .seoscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables GitHub Flavored Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. When set, the
	// report is written to this file instead of stdout. Directories are
	// created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for the run-history SQLite database.
	// When empty, the XDG data directory is used.
	DBDir string

	// SaveToDB indicates whether to record run summaries in the history
	// database for later comparison.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
func NewConfig() *Config {
	return &Config{
		DataDir:     XDGDataDir(),
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		MaxSteps:    DefaultMaxSteps,
		BatchSize:   DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for seoscan.
// On Linux: ~/.local/share/seoscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for seoscan.
// On Linux: ~/.config/seoscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for seoscan.
// On Linux: ~/.cache/seoscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first error found rather than collecting all errors,
// because fixing one error often makes others irrelevant. Called once
// after CLI parsing, before any crawling begins.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxSteps < 0 {
		return ErrInvalidMaxSteps
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
