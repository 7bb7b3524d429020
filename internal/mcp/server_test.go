package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/layoutforge/rdlgen/internal/config"
	"github.com/layoutforge/rdlgen/internal/layout"
	"github.com/layoutforge/rdlgen/internal/pdf"
	"github.com/layoutforge/rdlgen/internal/rdl"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ServerName = "test-server"
	cfg.MaxFileSize = 1024 * 1024
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := testConfig()
	pdfService := pdf.NewService(cfg.MaxFileSize)
	emitter, err := rdl.NewEmitter()
	if err != nil {
		t.Fatalf("failed to create emitter: %v", err)
	}

	server, err := NewServer(cfg, pdfService, layout.NewAnalyzer(), emitter)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestNewServer(t *testing.T) {
	cfg := testConfig()
	pdfService := pdf.NewService(cfg.MaxFileSize)
	analyzer := layout.NewAnalyzer()
	emitter, err := rdl.NewEmitter()
	if err != nil {
		t.Fatalf("failed to create emitter: %v", err)
	}

	tests := []struct {
		name        string
		pdfService  *pdf.Service
		analyzer    *layout.Analyzer
		emitter     *rdl.Emitter
		expectError bool
	}{
		{
			name:       "all components",
			pdfService: pdfService,
			analyzer:   analyzer,
			emitter:    emitter,
		},
		{
			name:        "nil pdf service",
			analyzer:    analyzer,
			emitter:     emitter,
			expectError: true,
		},
		{
			name:        "nil analyzer",
			pdfService:  pdfService,
			emitter:     emitter,
			expectError: true,
		},
		{
			name:        "nil emitter",
			pdfService:  pdfService,
			analyzer:    analyzer,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(cfg, tt.pdfService, tt.analyzer, tt.emitter)

			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if server == nil {
				t.Fatal("server should not be nil")
			}
			if server.config != cfg {
				t.Error("server config not set correctly")
			}
			if server.mcpServer == nil {
				t.Error("mcpServer should be initialized")
			}
		})
	}
}

func TestServer_HandlePDFValidateFile(t *testing.T) {
	tempDir := t.TempDir()

	// Not a real PDF, so validation should report failure without erroring.
	testFile := filepath.Join(tempDir, "test.pdf")
	if err := os.WriteFile(testFile, make([]byte, 1024), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	server := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": testFile,
			},
		},
	}

	result, err := server.handlePDFValidateFile(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil {
		t.Fatal("result should not be nil")
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "PDF validation failed") {
		t.Errorf("expected validation to fail, got: %s", resultText)
	}
}

func TestServer_HandlePDFValidateFile_MissingPath(t *testing.T) {
	server := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{},
		},
	}

	result, err := server.handlePDFValidateFile(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil || !result.IsError {
		t.Error("expected an error result for missing path argument")
	}
}

func TestServer_HandlePDFAnalyzeLayout_MissingFile(t *testing.T) {
	server := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": filepath.Join(t.TempDir(), "missing.pdf"),
			},
		},
	}

	result, err := server.handlePDFAnalyzeLayout(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil || !result.IsError {
		t.Error("expected an error result for a missing file")
	}
}

func TestServer_HandleRDLGenerateFile_MissingFile(t *testing.T) {
	server := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": filepath.Join(t.TempDir(), "missing.pdf"),
			},
		},
	}

	result, err := server.handleRDLGenerateFile(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil || !result.IsError {
		t.Error("expected an error result for a missing file")
	}
}

func TestServer_PageArgument(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		{"absent", map[string]interface{}{}, 1},
		{"valid page", map[string]interface{}{"page": float64(3)}, 3},
		{"zero page", map[string]interface{}{"page": float64(0)}, 1},
		{"negative page", map[string]interface{}{"page": float64(-2)}, 1},
		{"wrong type", map[string]interface{}{"page": "2"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := mcp.CallToolRequest{
				Params: mcp.CallToolParams{Arguments: tt.args},
			}
			if got := server.pageArgument(request); got != tt.want {
				t.Errorf("pageArgument() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServer_FormatAnalysis(t *testing.T) {
	server := newTestServer(t)

	items := []layout.TextItem{
		{Text: "INVOICE #:", X: 50, Y: 20, Width: 60, Height: 12, FontSize: 10},
		{Text: "INV-2024-001", X: 160, Y: 22, Width: 70, Height: 12, FontSize: 10},
		{Text: "Thank you for your business with us today", X: 50, Y: 700, Width: 300, Height: 12, FontSize: 9},
	}

	analysis, err := server.analyzer.Analyze(context.Background(), items, 612, 792)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}

	text := server.formatAnalysis("/tmp/invoice.pdf", 1, analysis)

	for _, want := range []string{
		"Layout analysis for /tmp/invoice.pdf (page 1)",
		"Page size: 612x792 pt",
		"Components: 3",
		"INVOICE #:",
		"INV-2024-001",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("formatAnalysis() missing %q in:\n%s", want, text)
		}
	}

	if len(analysis.Pairs) > 0 && !strings.Contains(text, "Label/data pairs") {
		t.Errorf("formatAnalysis() should list pairs when present:\n%s", text)
	}
}
