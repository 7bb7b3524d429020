// Package mcp exposes PDF layout analysis and RDL generation as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/layoutforge/rdlgen/internal/config"
	"github.com/layoutforge/rdlgen/internal/layout"
	"github.com/layoutforge/rdlgen/internal/pdf"
	"github.com/layoutforge/rdlgen/internal/rdl"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	analyzer   *layout.Analyzer
	emitter    *rdl.Emitter
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, analyzer *layout.Analyzer, emitter *rdl.Emitter) (*Server, error) {
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if emitter == nil {
		return nil, fmt.Errorf("emitter cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		analyzer:   analyzer,
		emitter:    emitter,
		mcpServer:  mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	pdfValidateFileTool := mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription("Validate if a file is a readable PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(pdfValidateFileTool, s.handlePDFValidateFile)

	pdfAnalyzeLayoutTool := mcp.NewTool(
		"pdf_analyze_layout",
		mcp.WithDescription("Analyze the layout of one PDF page: regions, component roles, label/data pairs, tables and generated field names"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number to analyze, 1-based (defaults to 1)"),
		),
	)
	s.mcpServer.AddTool(pdfAnalyzeLayoutTool, s.handlePDFAnalyzeLayout)

	rdlGenerateFileTool := mcp.NewTool(
		"rdl_generate_file",
		mcp.WithDescription("Analyze one PDF page and generate an SSRS RDL report definition from its layout"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number to analyze, 1-based (defaults to 1)"),
		),
		mcp.WithString("report_name",
			mcp.Description("Report name embedded in the RDL (defaults to the configured name)"),
		),
		mcp.WithString("output",
			mcp.Description("Optional file path to write the RDL to; the XML is returned inline when empty"),
		),
	)
	s.mcpServer.AddTool(rdlGenerateFileTool, s.handleRDLGenerateFile)
}

// Handler functions
func (s *Server) handlePDFValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.ValidateFileRequest{Path: path}
	result, err := s.pdfService.ValidateFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable", result.Path)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFAnalyzeLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := s.pageArgument(request)

	analysis, err := s.analyzePage(ctx, path, page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatAnalysis(path, page, analysis)), nil
}

func (s *Server) handleRDLGenerateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := s.pageArgument(request)

	args := request.GetArguments()
	reportName := s.config.ReportName
	if name, ok := args["report_name"].(string); ok && name != "" {
		reportName = name
	}
	output := ""
	if out, ok := args["output"].(string); ok {
		output = out
	}

	analysis, err := s.analyzePage(ctx, path, page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	xml, err := s.emitter.Emit(analysis, reportName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(xml), 0o600); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to write RDL file: %v", err)), nil
		}
		responseText := fmt.Sprintf("RDL report written to %s\n", output)
		responseText += fmt.Sprintf("Report name: %s\n", reportName)
		responseText += fmt.Sprintf("Fields: %d\n", len(analysis.Fields))
		responseText += fmt.Sprintf("Tables: %d\n", len(analysis.Tables))
		responseText += fmt.Sprintf("Overall confidence: %.2f\n", analysis.OverallConfidence)
		return mcp.NewToolResultText(responseText), nil
	}

	return mcp.NewToolResultText(xml), nil
}

// analyzePage extracts one page and runs the layout pipeline on it.
func (s *Server) analyzePage(ctx context.Context, path string, page int) (*layout.Analysis, error) {
	pageLayout, err := s.pdfService.ExtractPageLayout(pdf.ExtractPageRequest{Path: path, Page: page})
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(ctx, pageLayout.Items, pageLayout.Width, pageLayout.Height)
}

// pageArgument reads the optional 1-based page number from the request.
func (s *Server) pageArgument(request mcp.CallToolRequest) int {
	args := request.GetArguments()
	if raw, ok := args["page"].(float64); ok && raw >= 1 {
		return int(raw)
	}
	return 1
}

// Formatting methods
func (s *Server) formatAnalysis(path string, page int, a *layout.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Layout analysis for %s (page %d)\n", path, page)
	fmt.Fprintf(&b, "Page size: %.0fx%.0f pt\n", a.PageWidth, a.PageHeight)
	fmt.Fprintf(&b, "Components: %d\n", len(a.Components))
	fmt.Fprintf(&b, "Overall confidence: %.2f\n", a.OverallConfidence)
	for _, w := range a.Metadata.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}

	for _, region := range []layout.Region{layout.RegionHeader, layout.RegionBody, layout.RegionFooter} {
		ids := a.Regions[region]
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d components):\n", strings.ToUpper(string(region)), len(ids))
		for _, id := range ids {
			c := a.Components[id]
			fmt.Fprintf(&b, "  [%d] %-16s %.2f  %q", c.ID, c.Kind, c.Confidence, c.Text)
			if c.FieldName != "" {
				fmt.Fprintf(&b, "  -> %s", c.FieldName)
			}
			b.WriteString("\n")
		}
	}

	if len(a.Pairs) > 0 {
		fmt.Fprintf(&b, "\nLabel/data pairs (%d):\n", len(a.Pairs))
		for _, p := range a.Pairs {
			label := a.Components[p.LabelID]
			data := a.Components[p.DataID]
			fmt.Fprintf(&b, "  %q -> %q (proximity %.2f)\n", label.Text, data.Text, p.Proximity)
		}
	}

	if len(a.Tables) > 0 {
		fmt.Fprintf(&b, "\nTables (%d):\n", len(a.Tables))
		for i, t := range a.Tables {
			fmt.Fprintf(&b, "  %d. %d columns, %d data rows\n", i+1, t.ColumnCount, t.RowCount)
			for _, hid := range t.HeaderIDs {
				fmt.Fprintf(&b, "     column: %q\n", a.Components[hid].Text)
			}
		}
	}

	if len(a.Fields) > 0 {
		fmt.Fprintf(&b, "\nGenerated fields (%d):\n", len(a.Fields))
		for _, f := range a.Fields {
			fmt.Fprintf(&b, "  %s (%s): %s\n", f.Name, f.TypeName, f.Description)
		}
	}

	return b.String()
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting rdlgen MCP server in stdio mode")
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// The mark3labs library handles transport differently; stdio is the
	// only transport wired up so far.
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
