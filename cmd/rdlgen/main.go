package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/layoutforge/rdlgen/internal/config"
	"github.com/layoutforge/rdlgen/internal/layout"
	"github.com/layoutforge/rdlgen/internal/mcp"
	"github.com/layoutforge/rdlgen/internal/pdf"
	"github.com/layoutforge/rdlgen/internal/rdl"
	"github.com/layoutforge/rdlgen/internal/zeroshot"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the run mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		// Reduce log verbosity in stdio mode unless debug is enabled
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		// In server and convert modes, use normal stderr logging with more detail
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// buildAnalyzer assembles the layout pipeline from the configuration.
func buildAnalyzer(cfg *config.Config) (*layout.Analyzer, error) {
	vocab := layout.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		if err := vocab.LoadVocabularyFile(cfg.VocabularyPath); err != nil {
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
	}

	var refiner zeroshot.Classifier
	if cfg.ZeroShotURL != "" {
		logLevel := slog.LevelInfo
		if cfg.IsDebug() {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		refiner = zeroshot.NewHTTPClassifier(cfg.ZeroShotURL, nil, logger)
	}

	return layout.NewAnalyzerWithConfig(cfg.LayoutConfig(), vocab, refiner), nil
}

// runConvertMode analyzes one page and writes the generated RDL.
func runConvertMode(ctx context.Context, cfg *config.Config, pdfService *pdf.Service,
	analyzer *layout.Analyzer, emitter *rdl.Emitter,
) error {
	pageLayout, err := pdfService.ExtractPageLayout(pdf.ExtractPageRequest{
		Path: cfg.InputPath,
		Page: cfg.Page,
	})
	if err != nil {
		return err
	}

	analysis, err := analyzer.Analyze(ctx, pageLayout.Items, pageLayout.Width, pageLayout.Height)
	if err != nil {
		return err
	}
	for _, warning := range analysis.Metadata.Warnings {
		log.Printf("Warning: %s", warning)
	}

	xml, err := emitter.Emit(analysis, cfg.ReportName)
	if err != nil {
		return err
	}

	if cfg.OutputPath == "" {
		_, err = os.Stdout.WriteString(xml)
		return err
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(xml), 0o600); err != nil {
		return fmt.Errorf("failed to write RDL file: %w", err)
	}
	log.Printf("RDL report written to %s (%d fields, %d tables, confidence %.2f)",
		cfg.OutputPath, len(analysis.Fields), len(analysis.Tables), analysis.OverallConfidence)
	return nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error

	// Start server and wait for it to complete
	if err := server.Run(ctx); err != nil {
		// Only log to stderr in debug mode to avoid protocol interference
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && !cfg.IsStdioMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Create the pipeline components
	pdfService := pdf.NewService(cfg.MaxFileSize)

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		log.Fatalf("Failed to build analyzer: %v", err)
	}

	emitter, err := rdl.NewEmitter()
	if err != nil {
		log.Fatalf("Failed to create RDL emitter: %v", err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsConvertMode() {
		if err := runConvertMode(ctx, cfg, pdfService, analyzer, emitter); err != nil {
			log.Fatalf("Conversion failed: %v", err)
		}
		return
	}

	// Create MCP server
	server, err := mcp.NewServer(cfg, pdfService, analyzer, emitter)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Handle different modes
	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("rdlgen - PDF to SSRS RDL generator\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
