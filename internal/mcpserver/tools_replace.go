package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	sgexec "github.com/standardbeagle/sgmcp/internal/exec"
	"github.com/standardbeagle/sgmcp/internal/replacer"
	"github.com/standardbeagle/sgmcp/internal/types"
	"github.com/standardbeagle/sgmcp/internal/walker"
	"github.com/standardbeagle/sgmcp/pkg/pathutil"
)

func (s *Server) registerReplaceTools() {
	s.addTool(&mcp.Tool{
		Name:        "replace",
		Description: "Rewrite an in-memory code string by substituting every pattern match with a literal replacement template.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"pattern":     stringProp("Structural pattern to match"),
			"language":    stringProp("Language tag"),
			"code":        stringProp("Source code to rewrite"),
			"replacement": stringProp("Replacement template; $NAME/$$$NAME substituted verbatim"),
		}, "pattern", "language", "code", "replacement"),
	}, s.handleReplace)

	s.addTool(&mcp.Tool{
		Name:        "file_replace",
		Description: "Rewrite files under path_pattern by substituting every pattern match with a literal replacement template; dry_run defaults to true.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"pattern":       stringProp("Structural pattern to match"),
			"language":      stringProp("Language tag"),
			"path_pattern":  stringProp("Glob or direct path to rewrite under, relative to the configured root(s)"),
			"replacement":   stringProp("Replacement template; $NAME/$$$NAME substituted verbatim"),
			"dry_run":       boolProp("Return changes without writing; defaults to true"),
			"max_file_size": intProp("Per-file size ceiling in bytes"),
		}, "pattern", "language", "path_pattern", "replacement"),
	}, s.handleFileReplace)
}

type replaceParams struct {
	Pattern     string `json:"pattern"`
	Language    string `json:"language"`
	Code        string `json:"code"`
	Replacement string `json:"replacement"`
}

func (s *Server) handleReplace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p replaceParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing replace parameters"))
	}

	lang, err := resolveLanguage(p.Language)
	if err != nil {
		return toolError(err)
	}
	pattern, err := s.compiler.Compile(lang, p.Pattern)
	if err != nil {
		return toolError(err)
	}
	matches, err := s.scanner.FindAll(pattern, []byte(p.Code))
	if err != nil {
		return toolError(err)
	}

	newCode, changes := replacer.Apply(p.Code, matches, p.Replacement)
	return jsonResponse(map[string]any{
		"new_code":      newCode,
		"changes":       changes,
		"total_changes": len(changes),
	})
}

type fileReplaceParams struct {
	Pattern     string `json:"pattern"`
	Language    string `json:"language"`
	PathPattern string `json:"path_pattern"`
	Replacement string `json:"replacement"`
	DryRun      *bool  `json:"dry_run,omitempty"`
	MaxFileSize int64  `json:"max_file_size,omitempty"`
}

func (p fileReplaceParams) dryRun() bool {
	if p.DryRun == nil {
		return true
	}
	return *p.DryRun
}

func (s *Server) handleFileReplace(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p fileReplaceParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing file_replace parameters"))
	}

	lang, err := resolveLanguage(p.Language)
	if err != nil {
		return toolError(err)
	}
	pattern, err := s.compiler.Compile(lang, p.Pattern)
	if err != nil {
		return toolError(err)
	}

	w := s.walker
	if p.MaxFileSize > 0 {
		w, err = walker.New(s.roots, p.MaxFileSize)
		if err != nil {
			return toolError(err)
		}
	}
	candidates, skipped, err := w.Enumerate(p.PathPattern)
	if err != nil {
		return toolError(err)
	}

	dryRun := p.dryRun()
	results := sgexec.RunTyped(s.executor, ctx, candidates, func(ctx context.Context, c walker.Candidate) (*types.FileResult, error) {
		content, readErr := os.ReadFile(c.Path)
		if readErr != nil {
			msg := cerrors.Wrap(cerrors.FileIOError, readErr, "reading %s", c.Path).Error()
			return &types.FileResult{Path: c.Path, Error: msg}, nil
		}
		matches, findErr := s.scanner.FindAll(pattern, content)
		if findErr != nil {
			return &types.FileResult{Path: c.Path, Error: findErr.Error()}, nil
		}
		if len(matches) == 0 {
			return nil, nil
		}
		wr, writeErr := replacer.File(c.Path, matches, p.Replacement, dryRun)
		if writeErr != nil {
			return &types.FileResult{Path: c.Path, Error: writeErr.Error()}, nil
		}
		return &types.FileResult{
			Path:           c.Path,
			Changes:        wr.Changes,
			TotalChanges:   len(wr.Changes),
			FileHashBefore: fmt.Sprintf("%x", wr.FileHashBefore),
		}, nil
	}, nil)

	var fileResults []types.FileResult
	for _, r := range results {
		if !r.Started || r.Value == nil {
			continue
		}
		fileResults = append(fileResults, *r.Value)
	}
	if len(s.roots) > 0 {
		fileResults = pathutil.ToRelativeFileResults(fileResults, s.roots[0])
	}

	return jsonResponse(map[string]any{
		"dry_run": dryRun,
		"results": fileResults,
		"skipped": skipped,
	})
}
