// Package mcpserver wires the engine packages (patterns, scanner, walker, exec, replacer,
// rules, rulestore, shaper, didyoumean) into the service's thirteen MCP tools, registered
// against the SDK's mcp.NewServer/AddTool.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/sgmcp/internal/config"
	"github.com/standardbeagle/sgmcp/internal/logging"
	"github.com/standardbeagle/sgmcp/internal/patterns"
	"github.com/standardbeagle/sgmcp/internal/rules"
	"github.com/standardbeagle/sgmcp/internal/rulestore"
	"github.com/standardbeagle/sgmcp/internal/scanner"
	"github.com/standardbeagle/sgmcp/internal/walker"

	sgexec "github.com/standardbeagle/sgmcp/internal/exec"
)

// ServerName/Version identify this process to an MCP client during initialize.
const (
	ServerName    = "sgmcp"
	ServerVersion = "0.1.0"
)

// Server holds every engine component a tool handler needs, plus the underlying MCP
// server they're registered against.
type Server struct {
	cfg    *config.Config
	roots  []string
	logger *logging.Logger

	compiler  *patterns.Compiler
	scanner   *scanner.Scanner
	walker    *walker.Walker
	executor  *sgexec.Executor
	evaluator *rules.Evaluator
	store     *rulestore.Store

	mcp      *mcp.Server
	handlers map[string]toolHandler
}

type toolHandler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// addTool registers handler both with the underlying MCP server and in s.handlers, so
// cmd/sgmcp's CLI subcommands can invoke the same tool logic outside of stdio transport.
func (s *Server) addTool(tool *mcp.Tool, handler toolHandler) {
	s.mcp.AddTool(tool, handler)
	s.handlers[tool.Name] = handler
}

// CallTool invokes a registered tool handler directly, bypassing the stdio transport —
// used by the CLI's search/replace/rules subcommands to reuse the exact tool
// logic the MCP server runs.
func (s *Server) CallTool(ctx context.Context, name string, argumentsJSON []byte) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return handler(ctx, &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: argumentsJSON}})
}

// New builds a Server confined to roots, loading any rule directories named by store
// (nil store means rule_search/rule_replace/*_rule tools operate with an empty store —
// still usable for one-off inline rules passed directly in a request).
func New(cfg *config.Config, roots []string, store *rulestore.Store, logger *logging.Logger) (*Server, error) {
	compiler, err := patterns.New(cfg.Cache.PatternCapacity)
	if err != nil {
		return nil, err
	}
	w, err := walker.New(roots, cfg.Limits.MaxFileSizeBytes)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store, _, err = rulestore.Load(nil, "")
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		cfg:       cfg,
		roots:     roots,
		logger:    logger,
		compiler:  compiler,
		scanner:   scanner.New(),
		walker:    w,
		executor:  sgexec.New(cfg.WorkerCount()),
		evaluator: rules.New(compiler, store),
		store:     store,
		handlers:  make(map[string]toolHandler),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)
	s.registerTools()
	return s, nil
}

// Run serves tool calls over stdio until ctx is cancelled or the transport closes.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("mcpserver: starting stdio transport, roots=%v", s.roots)
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.registerSearchTools()
	s.registerReplaceTools()
	s.registerMetaTools()
	s.registerRuleTools()
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func stringProp(desc string) *jsonschema.Schema    { return &jsonschema.Schema{Type: "string", Description: desc} }
func intProp(desc string) *jsonschema.Schema       { return &jsonschema.Schema{Type: "integer", Description: desc} }
func boolProp(desc string) *jsonschema.Schema      { return &jsonschema.Schema{Type: "boolean", Description: desc} }
