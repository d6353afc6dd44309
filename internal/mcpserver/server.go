// Package mcpserver exposes the multi-source script creator as an MCP tool.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leofalp/scriptgraph/core/cost"
	"github.com/leofalp/scriptgraph/graphs"
)

// ToolName is the name the script creator tool is registered under.
const ToolName = "script_creator_multi"

// Input is the tool input.
type Input struct {
	Prompt  string   `json:"prompt" jsonschema:"what the generated script must extract"`
	Sources []string `json:"sources" jsonschema:"URLs of the pages to write scraping scripts for"`
}

// SourceFailure reports a source that produced no script.
type SourceFailure struct {
	URL   string `json:"url"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Output is the tool output.
type Output struct {
	RunID        string          `json:"run_id"`
	MergedScript string          `json:"merged_script"`
	Scripts      []Script        `json:"scripts"`
	Failures     []SourceFailure `json:"failures"`
	// Failed is true when MergedScript is the failure sentinel.
	Failed bool `json:"failed"`
	// Cost is set when the server has LLM pricing configured.
	Cost *cost.Estimate `json:"cost,omitempty"`
}

// Script is the script generated for one source.
type Script struct {
	URL    string `json:"url"`
	Script string `json:"script"`
}

// Server runs every tool call with the same configuration and options.
type Server struct {
	config graphs.Config
	opts   []graphs.Option
}

// New returns a Server for config.
func New(config graphs.Config, opts ...graphs.Option) *Server {
	return &Server{config: config.Clone(), opts: opts}
}

// MCPServer builds the MCP server with the tool registered.
func (server *Server) MCPServer(version string) *mcp.Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "scriptgraph",
		Version: version,
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        ToolName,
		Description: "Write one scraping script per source URL for the prompt, then merge them into a single script. Returns the merged script, the per-source scripts and the sources that failed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, server.handle)

	return mcpServer
}

// Run serves the tool over stdio until ctx ends or the client disconnects.
func (server *Server) Run(ctx context.Context, version string) error {
	return server.MCPServer(version).Run(ctx, &mcp.StdioTransport{})
}

func (server *Server) handle(ctx context.Context, _ *mcp.CallToolRequest, input Input) (*mcp.CallToolResult, Output, error) {
	if input.Prompt == "" {
		return nil, Output{}, errors.New("prompt is required")
	}

	multi, err := graphs.NewScriptCreatorMultiGraph(input.Prompt, input.Sources, server.config, nil, server.opts...)
	if err != nil {
		return nil, Output{}, err
	}

	result, err := multi.Execute(ctx)
	if err != nil {
		return nil, Output{}, fmt.Errorf("run script creator: %w", err)
	}

	output := Output{
		RunID:        result.RunID,
		MergedScript: result.MergedScript,
		Scripts:      make([]Script, 0, len(result.Scripts)),
		Failures:     make([]SourceFailure, 0, len(result.Failures)),
		Failed:       result.MergedScript == graphs.FailedScript,
		Cost:         result.Cost,
	}
	for _, script := range result.Scripts {
		output.Scripts = append(output.Scripts, Script{URL: script.URL, Script: script.Script})
	}
	for _, failure := range result.Failures {
		output.Failures = append(output.Failures, SourceFailure{URL: failure.URL, Index: failure.Index, Error: failure.Err.Error()})
	}
	return nil, output, nil
}
