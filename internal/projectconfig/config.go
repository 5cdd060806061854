// Package projectconfig provides the ProjectConfig struct and loader for
// .specflow.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gfaurobert/specflow/internal/hooks"
	"github.com/gfaurobert/specflow/internal/telemetry"
	"github.com/gfaurobert/specflow/internal/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up from the working directory.
const FileName = ".specflow.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultSpecsDir   = ".kiro/specs"
	DefaultScriptsDir = "tests/e2e/generated"
	DefaultAssetsDir  = "tests/e2e/assets"
	DefaultReportPath = "tests/e2e/TESTS_SUMMARY.md"
	DefaultResultsDir = "tests/e2e/results"

	DefaultBaseURL      = "http://localhost:3000"
	DefaultStepTimeout  = 30 * time.Second
	DefaultMaxRetries   = 2
	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080

	DefaultScreenshotQuality = 90
	DefaultScreenshotFormat  = "png"

	DefaultServerPort = 4173
	DefaultLogFormat  = "console"
	DefaultLogLevel   = "info"

	DefaultPublishConcurrency = 4
)

// PathsConfig holds the roots the pipeline reads and writes.
type PathsConfig struct {
	Specs   string `yaml:"specs,omitempty"`
	Scripts string `yaml:"scripts,omitempty"`
	Assets  string `yaml:"assets,omitempty"`
	Report  string `yaml:"report,omitempty"`
	Results string `yaml:"results,omitempty"`
}

// BrowserConfig holds the application-under-test and session settings.
type BrowserConfig struct {
	BaseURL      string        `yaml:"base_url,omitempty"`
	Headless     *bool         `yaml:"headless,omitempty"`
	ExecPath     string        `yaml:"exec_path,omitempty"`
	StepTimeout  time.Duration `yaml:"step_timeout,omitempty"`
	MaxRetries   *int          `yaml:"max_retries,omitempty"`
	WindowWidth  int           `yaml:"window_width,omitempty"`
	WindowHeight int           `yaml:"window_height,omitempty"`
}

// ScreenshotConfig overrides the default capture options.
type ScreenshotConfig struct {
	FullPage  *bool  `yaml:"full_page,omitempty"`
	Quality   int    `yaml:"quality,omitempty"`
	Format    string `yaml:"format,omitempty"`
	MaxWidth  int    `yaml:"max_width,omitempty"`
	MaxHeight int    `yaml:"max_height,omitempty"`
}

// OutputConfig holds optional extra outputs of a run.
type OutputConfig struct {
	JUnit       string `yaml:"junit,omitempty"`
	MetricsFile string `yaml:"metrics_file,omitempty"`
	KeepResults int    `yaml:"keep_results,omitempty"`
}

// ServerConfig holds dashboard server settings.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// PublishConfig selects the Azure Blob destination. Secrets are normally
// supplied through the environment.
type PublishConfig struct {
	AccountURL  string `yaml:"account_url,omitempty"`
	Container   string `yaml:"container,omitempty"`
	Prefix      string `yaml:"prefix,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
	SASToken    string `yaml:"-"`
	AccountName string `yaml:"account_name,omitempty"`
	AccountKey  string `yaml:"-"`
}

// LoggingConfig selects the log encoder and level.
type LoggingConfig struct {
	Format string `yaml:"format,omitempty"`
	Level  string `yaml:"level,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .specflow.yaml.
type ProjectConfig struct {
	Paths      PathsConfig       `yaml:"paths,omitempty"`
	Browser    BrowserConfig     `yaml:"browser,omitempty"`
	Screenshot ScreenshotConfig  `yaml:"screenshot,omitempty"`
	Output     OutputConfig      `yaml:"output,omitempty"`
	Server     ServerConfig      `yaml:"server,omitempty"`
	Publish    PublishConfig     `yaml:"publish,omitempty"`
	Telemetry  telemetry.Config  `yaml:"telemetry,omitempty"`
	Logging    LoggingConfig     `yaml:"logging,omitempty"`
	Hooks      hooks.HooksConfig `yaml:"hooks,omitempty"`

	// Dir is the directory relative paths are resolved against: the
	// directory holding the config file, or the start directory.
	Dir string `yaml:"-"`
	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Specs:   DefaultSpecsDir,
			Scripts: DefaultScriptsDir,
			Assets:  DefaultAssetsDir,
			Report:  DefaultReportPath,
			Results: DefaultResultsDir,
		},
		Browser: BrowserConfig{
			BaseURL:      DefaultBaseURL,
			Headless:     utils.Ptr(true),
			StepTimeout:  DefaultStepTimeout,
			MaxRetries:   utils.Ptr(DefaultMaxRetries),
			WindowWidth:  DefaultWindowWidth,
			WindowHeight: DefaultWindowHeight,
		},
		Screenshot: ScreenshotConfig{
			FullPage:  utils.Ptr(false),
			Quality:   DefaultScreenshotQuality,
			Format:    DefaultScreenshotFormat,
			MaxWidth:  DefaultWindowWidth,
			MaxHeight: DefaultWindowHeight,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: DefaultServerPort,
		},
		Publish: PublishConfig{
			Concurrency: DefaultPublishConcurrency,
		},
		Telemetry: telemetry.Config{ServiceName: "specflow"},
		Logging: LoggingConfig{
			Format: DefaultLogFormat,
			Level:  DefaultLogLevel,
		},
	}
}

// Load finds .specflow.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults. If no config
// file is found, returns defaults with a nil error. Real I/O errors are
// returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", startDir, err)
	}
	path, err := findConfigFile(absDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := New()
			cfg.Dir = absDir
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return LoadFile(path)
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg := New()
	mergeConfig(cfg, &fileCfg)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.Source = abs
	cfg.Dir = filepath.Dir(abs)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .specflow.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) (string, error) {
	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// LoadDotEnv loads dir/.env when present. Variables already set in the
// environment win.
func LoadDotEnv(dir string) error {
	p := filepath.Join(dir, ".env")
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("loading %s: %w", p, err)
	}
	return nil
}

// ApplyEnv overlays SPECFLOW_* variables read through lookup.
func (c *ProjectConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("SPECFLOW_BASE_URL", &c.Browser.BaseURL)
	str("SPECFLOW_CHROME_PATH", &c.Browser.ExecPath)
	str("SPECFLOW_SPECS_DIR", &c.Paths.Specs)
	str("SPECFLOW_REPORT", &c.Paths.Report)
	str("SPECFLOW_LOG_FORMAT", &c.Logging.Format)
	str("SPECFLOW_LOG_LEVEL", &c.Logging.Level)
	str("SPECFLOW_OTEL_ENDPOINT", &c.Telemetry.Endpoint)
	str("SPECFLOW_OTEL_HEADERS", &c.Telemetry.Headers)
	str("SPECFLOW_AZURE_ACCOUNT_URL", &c.Publish.AccountURL)
	str("SPECFLOW_AZURE_CONTAINER", &c.Publish.Container)
	str("SPECFLOW_AZURE_SAS_TOKEN", &c.Publish.SASToken)
	str("SPECFLOW_AZURE_ACCOUNT_NAME", &c.Publish.AccountName)
	str("SPECFLOW_AZURE_ACCOUNT_KEY", &c.Publish.AccountKey)

	if v, ok := lookup("SPECFLOW_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("SPECFLOW_MAX_RETRIES: invalid value %q", v)
		}
		c.Browser.MaxRetries = utils.Ptr(n)
	}
	if v, ok := lookup("SPECFLOW_STEP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d <= 0 {
			return fmt.Errorf("SPECFLOW_STEP_TIMEOUT: invalid duration %q", v)
		}
		c.Browser.StepTimeout = d
	}
	if v, ok := lookup("SPECFLOW_HEADLESS"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SPECFLOW_HEADLESS: invalid boolean %q", v)
		}
		c.Browser.Headless = utils.Ptr(b)
	}
	if v, ok := lookup("SPECFLOW_OTEL_INSECURE"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SPECFLOW_OTEL_INSECURE: invalid boolean %q", v)
		}
		c.Telemetry.Insecure = b
	}
	return nil
}

// Resolve returns p resolved against the config directory.
func (c *ProjectConfig) Resolve(p string) string {
	return utils.ResolvePath(p, c.Dir)
}

// MaxRetries returns the configured retry bound.
func (c *ProjectConfig) MaxRetries() int {
	if c.Browser.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.Browser.MaxRetries
}

// Headless reports whether the browser runs without a window.
func (c *ProjectConfig) Headless() bool {
	return c.Browser.Headless == nil || *c.Browser.Headless
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	setString(&dst.Paths.Specs, src.Paths.Specs)
	setString(&dst.Paths.Scripts, src.Paths.Scripts)
	setString(&dst.Paths.Assets, src.Paths.Assets)
	setString(&dst.Paths.Report, src.Paths.Report)
	setString(&dst.Paths.Results, src.Paths.Results)

	// Browser
	setString(&dst.Browser.BaseURL, src.Browser.BaseURL)
	setString(&dst.Browser.ExecPath, src.Browser.ExecPath)
	if src.Browser.Headless != nil {
		dst.Browser.Headless = src.Browser.Headless
	}
	if src.Browser.StepTimeout > 0 {
		dst.Browser.StepTimeout = src.Browser.StepTimeout
	}
	if src.Browser.MaxRetries != nil {
		dst.Browser.MaxRetries = src.Browser.MaxRetries
	}
	setInt(&dst.Browser.WindowWidth, src.Browser.WindowWidth)
	setInt(&dst.Browser.WindowHeight, src.Browser.WindowHeight)

	// Screenshot
	if src.Screenshot.FullPage != nil {
		dst.Screenshot.FullPage = src.Screenshot.FullPage
	}
	setInt(&dst.Screenshot.Quality, src.Screenshot.Quality)
	setString(&dst.Screenshot.Format, src.Screenshot.Format)
	setInt(&dst.Screenshot.MaxWidth, src.Screenshot.MaxWidth)
	setInt(&dst.Screenshot.MaxHeight, src.Screenshot.MaxHeight)

	// Output
	setString(&dst.Output.JUnit, src.Output.JUnit)
	setString(&dst.Output.MetricsFile, src.Output.MetricsFile)
	setInt(&dst.Output.KeepResults, src.Output.KeepResults)

	// Server
	setString(&dst.Server.Host, src.Server.Host)
	setInt(&dst.Server.Port, src.Server.Port)

	// Publish
	setString(&dst.Publish.AccountURL, src.Publish.AccountURL)
	setString(&dst.Publish.Container, src.Publish.Container)
	setString(&dst.Publish.Prefix, src.Publish.Prefix)
	setString(&dst.Publish.AccountName, src.Publish.AccountName)
	setInt(&dst.Publish.Concurrency, src.Publish.Concurrency)

	// Telemetry
	if src.Telemetry.Enabled {
		dst.Telemetry.Enabled = true
	}
	if src.Telemetry.Insecure {
		dst.Telemetry.Insecure = true
	}
	setString(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)
	setString(&dst.Telemetry.Headers, src.Telemetry.Headers)
	setString(&dst.Telemetry.ServiceName, src.Telemetry.ServiceName)

	// Logging
	setString(&dst.Logging.Format, src.Logging.Format)
	setString(&dst.Logging.Level, src.Logging.Level)

	// Hooks replace wholesale
	if len(src.Hooks.BeforeRun) > 0 {
		dst.Hooks.BeforeRun = src.Hooks.BeforeRun
	}
	if len(src.Hooks.AfterRun) > 0 {
		dst.Hooks.AfterRun = src.Hooks.AfterRun
	}
	if len(src.Hooks.BeforeSpec) > 0 {
		dst.Hooks.BeforeSpec = src.Hooks.BeforeSpec
	}
	if len(src.Hooks.AfterSpec) > 0 {
		dst.Hooks.AfterSpec = src.Hooks.AfterSpec
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
