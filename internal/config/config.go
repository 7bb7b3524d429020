package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/layoutforge/rdlgen/internal/layout"
)

const (
	// Mode constants
	ModeStdio   = "stdio"
	ModeServer  = "server"
	ModeConvert = "convert"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultReportName  = "GeneratedReport"
)

// Config holds all configuration for the RDL generator
type Config struct {
	// Server configuration
	Mode string // "stdio", "server" or "convert"
	Host string
	Port int

	// Convert mode configuration
	InputPath  string
	OutputPath string
	Page       int
	ReportName string

	// Analysis configuration
	ZeroShotURL    string
	VocabularyPath string

	HeaderBandRatio    float64
	FooterBandRatio    float64
	RowTolerance       float64
	ColumnTolerance    float64
	MaxPairingDistance float64
	MinProximity       float64

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	lc := layout.DefaultConfig()

	return &Config{
		Mode:       ModeStdio, // Default to stdio mode for MCP compatibility
		Host:       DefaultHost,
		Port:       DefaultPort,
		Page:       1,
		ReportName: DefaultReportName,

		HeaderBandRatio:    lc.HeaderBandRatio,
		FooterBandRatio:    lc.FooterBandRatio,
		RowTolerance:       lc.RowTolerance,
		ColumnTolerance:    lc.ColumnTolerance,
		MaxPairingDistance: lc.MaxPairingDistance,
		MinProximity:       lc.MinPairingProximity,

		Version:     "1.0.0",
		ServerName:  "rdlgen",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// An input file implies a one-shot conversion unless a mode was chosen.
	if cfg.InputPath != "" && cfg.Mode == ModeStdio {
		cfg.Mode = ModeConvert
	}

	// Expand paths if needed
	if cfg.InputPath != "" {
		if expandedPath, err := filepath.Abs(cfg.InputPath); err == nil {
			cfg.InputPath = expandedPath
		}
	}
	if cfg.OutputPath != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputPath); err == nil {
			cfg.OutputPath = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("RDLGEN")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("input", cfg.InputPath)
	viper.SetDefault("output", cfg.OutputPath)
	viper.SetDefault("page", cfg.Page)
	viper.SetDefault("reportname", cfg.ReportName)
	viper.SetDefault("zeroshoturl", cfg.ZeroShotURL)
	viper.SetDefault("vocabulary", cfg.VocabularyPath)
	viper.SetDefault("headerband", cfg.HeaderBandRatio)
	viper.SetDefault("footerband", cfg.FooterBandRatio)
	viper.SetDefault("rowtolerance", cfg.RowTolerance)
	viper.SetDefault("columntolerance", cfg.ColumnTolerance)
	viper.SetDefault("maxpairingdistance", cfg.MaxPairingDistance)
	viper.SetDefault("minproximity", cfg.MinProximity)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode,
		"Run mode: 'stdio' for MCP standard I/O, 'server' for HTTP server, 'convert' for one-shot conversion")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("input", cfg.InputPath, "PDF file to convert (convert mode)")
	pflag.String("output", cfg.OutputPath, "Output RDL file path (convert mode, defaults to stdout)")
	pflag.Int("page", cfg.Page, "Page number to analyze (1-based)")
	pflag.String("reportname", cfg.ReportName, "Report name embedded in the generated RDL")
	pflag.String("zeroshoturl", cfg.ZeroShotURL, "Zero-shot classification endpoint URL (optional)")
	pflag.String("vocabulary", cfg.VocabularyPath, "YAML file with custom label/column vocabulary (optional)")
	pflag.Float64("headerband", cfg.HeaderBandRatio, "Fraction of the page height treated as the header band")
	pflag.Float64("footerband", cfg.FooterBandRatio, "Fraction of the page height treated as the footer band")
	pflag.Float64("rowtolerance", cfg.RowTolerance, "Vertical tolerance in points for same-row pairing")
	pflag.Float64("columntolerance", cfg.ColumnTolerance, "Horizontal tolerance in points for below-label pairing")
	pflag.Float64("maxpairingdistance", cfg.MaxPairingDistance, "Distance in points at which pairing proximity reaches zero")
	pflag.Float64("minproximity", cfg.MinProximity, "Minimum proximity score required to accept a label/data pair")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("input", pflag.Lookup("input"))
	_ = viper.BindPFlag("output", pflag.Lookup("output"))
	_ = viper.BindPFlag("page", pflag.Lookup("page"))
	_ = viper.BindPFlag("reportname", pflag.Lookup("reportname"))
	_ = viper.BindPFlag("zeroshoturl", pflag.Lookup("zeroshoturl"))
	_ = viper.BindPFlag("vocabulary", pflag.Lookup("vocabulary"))
	_ = viper.BindPFlag("headerband", pflag.Lookup("headerband"))
	_ = viper.BindPFlag("footerband", pflag.Lookup("footerband"))
	_ = viper.BindPFlag("rowtolerance", pflag.Lookup("rowtolerance"))
	_ = viper.BindPFlag("columntolerance", pflag.Lookup("columntolerance"))
	_ = viper.BindPFlag("maxpairingdistance", pflag.Lookup("maxpairingdistance"))
	_ = viper.BindPFlag("minproximity", pflag.Lookup("minproximity"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nrdlgen - PDF layout analysis and SSRS RDL generation\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                              "+
			"# stdio MCP mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=convert --input=invoice.pdf            "+
			"# print RDL to stdout\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=convert --input=invoice.pdf --output=invoice.rdl\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --zeroshoturl=http://localhost:8000/classify  "+
			"# enable zero-shot refinement\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  RDLGEN_MODE         Run mode\n")
		fmt.Fprintf(os.Stderr, "  RDLGEN_INPUT        Input PDF path\n")
		fmt.Fprintf(os.Stderr, "  RDLGEN_OUTPUT       Output RDL path\n")
		fmt.Fprintf(os.Stderr, "  RDLGEN_ZEROSHOTURL  Zero-shot endpoint URL\n")
		fmt.Fprintf(os.Stderr, "  RDLGEN_VOCABULARY   Custom vocabulary file\n")
		fmt.Fprintf(os.Stderr, "  RDLGEN_LOGLEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  RDLGEN_MAXFILESIZE  Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.InputPath = viper.GetString("input")
	cfg.OutputPath = viper.GetString("output")
	cfg.Page = viper.GetInt("page")
	cfg.ReportName = viper.GetString("reportname")
	cfg.ZeroShotURL = viper.GetString("zeroshoturl")
	cfg.VocabularyPath = viper.GetString("vocabulary")
	cfg.HeaderBandRatio = viper.GetFloat64("headerband")
	cfg.FooterBandRatio = viper.GetFloat64("footerband")
	cfg.RowTolerance = viper.GetFloat64("rowtolerance")
	cfg.ColumnTolerance = viper.GetFloat64("columntolerance")
	cfg.MaxPairingDistance = viper.GetFloat64("maxpairingdistance")
	cfg.MinProximity = viper.GetFloat64("minproximity")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer && c.Mode != ModeConvert {
		return errors.New("mode must be one of 'stdio', 'server' or 'convert'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Convert mode needs an input file
	if c.Mode == ModeConvert {
		if c.InputPath == "" {
			return errors.New("convert mode requires --input")
		}
		if info, err := os.Stat(c.InputPath); err != nil {
			return fmt.Errorf("cannot access input file %s: %w", c.InputPath, err)
		} else if info.IsDir() {
			return fmt.Errorf("input path is a directory: %s", c.InputPath)
		}
	}

	if c.Page < 1 {
		return errors.New("page must be 1 or greater")
	}

	if c.VocabularyPath != "" {
		if _, err := os.Stat(c.VocabularyPath); err != nil {
			return fmt.Errorf("cannot access vocabulary file %s: %w", c.VocabularyPath, err)
		}
	}

	if c.HeaderBandRatio < 0 || c.HeaderBandRatio > 1 {
		return errors.New("header band ratio must be between 0 and 1")
	}
	if c.FooterBandRatio < 0 || c.FooterBandRatio > 1 {
		return errors.New("footer band ratio must be between 0 and 1")
	}
	if c.HeaderBandRatio+c.FooterBandRatio >= 1 {
		return errors.New("header and footer bands cannot cover the whole page")
	}
	if c.MaxPairingDistance <= 0 {
		return errors.New("maximum pairing distance must be positive")
	}
	if c.MinProximity < 0 || c.MinProximity > 1 {
		return errors.New("minimum proximity must be between 0 and 1")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// LayoutConfig builds the analysis configuration from the tunable thresholds.
func (c *Config) LayoutConfig() layout.Config {
	lc := layout.DefaultConfig()
	lc.HeaderBandRatio = c.HeaderBandRatio
	lc.FooterBandRatio = c.FooterBandRatio
	lc.RowTolerance = c.RowTolerance
	lc.ColumnTolerance = c.ColumnTolerance
	lc.MaxPairingDistance = c.MaxPairingDistance
	lc.MinPairingProximity = c.MinProximity
	return lc
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Input: %s, Output: %s, ZeroShotURL: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.InputPath, c.OutputPath, c.ZeroShotURL, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsConvertMode returns true if running a one-shot file conversion
func (c *Config) IsConvertMode() bool {
	return c.Mode == ModeConvert
}
