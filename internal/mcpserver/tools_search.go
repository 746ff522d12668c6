package mcpserver

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	sgexec "github.com/standardbeagle/sgmcp/internal/exec"
	"github.com/standardbeagle/sgmcp/internal/shaper"
	"github.com/standardbeagle/sgmcp/internal/types"
	"github.com/standardbeagle/sgmcp/internal/walker"
)

func commonSearchProps() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"pattern":        stringProp("Structural pattern; $NAME captures one node, $$$NAME captures zero or more"),
		"language":       stringProp("Language tag (e.g. \"go\", \"typescript\")"),
		"max_results":    intProp("Maximum matches to return in this response, default 1000"),
		"cursor":         stringProp("Resumption token from a prior truncated response"),
		"context_before": intProp("Source lines of context before each match; the larger of context_before and context_after is applied on both sides"),
		"context_after":  intProp("Source lines of context after each match; the larger of context_before and context_after is applied on both sides"),
		"summary_only":   boolProp("Return only per-file match counts, no match bodies"),
	}
}

func (s *Server) registerSearchTools() {
	s.addTool(&mcp.Tool{
		Name:        "search",
		Description: "Structurally match a pattern against an in-memory code string.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"pattern":        stringProp("Structural pattern; $NAME captures one node, $$$NAME captures zero or more"),
			"language":       stringProp("Language tag (e.g. \"go\", \"typescript\")"),
			"code":           stringProp("Source code to search"),
			"max_results":    intProp("Maximum matches to return, default 1000"),
			"context_before": intProp("Source lines of context before each match; the larger of context_before and context_after is applied on both sides"),
			"context_after":  intProp("Source lines of context after each match; the larger of context_before and context_after is applied on both sides"),
		}, "pattern", "language", "code"),
	}, s.handleSearch)

	fileSearchProps := commonSearchProps()
	fileSearchProps["path_pattern"] = stringProp("Glob or direct path to search under, relative to the configured root(s)")
	fileSearchProps["max_file_size"] = intProp("Per-file size ceiling in bytes; files over this are skipped, not errored")
	s.addTool(&mcp.Tool{
		Name:        "file_search",
		Description: "Structurally match a pattern across files under path_pattern; paginated.",
		InputSchema: objectSchema(fileSearchProps, "pattern", "language", "path_pattern"),
	}, s.handleFileSearch)
}

type searchParams struct {
	Pattern       string `json:"pattern"`
	Language      string `json:"language"`
	Code          string `json:"code"`
	MaxResults    int    `json:"max_results,omitempty"`
	ContextBefore int    `json:"context_before,omitempty"`
	ContextAfter  int    `json:"context_after,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p searchParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing search parameters"))
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

	contextLines := p.ContextBefore
	if p.ContextAfter > contextLines {
		contextLines = p.ContextAfter
	}
	const inlinePath = "<code>"
	page, err := shaper.Shape([]types.FileMatch{{Path: inlinePath, Matches: matches}}, shaper.Options{
		MaxResults:   p.MaxResults,
		ContextLines: contextLines,
		FileContents: map[string][]byte{inlinePath: []byte(p.Code)},
	})
	if err != nil {
		return toolError(err)
	}

	var outMatches []types.MatchResult
	if len(page.Files) > 0 {
		outMatches = page.Files[0].Matches
	}
	return jsonResponse(map[string]any{
		"matches":      outMatches,
		"total":        page.TotalMatches,
		"next_cursor":  page.NextCursor,
	})
}

type fileSearchParams struct {
	Pattern       string `json:"pattern"`
	Language      string `json:"language"`
	PathPattern   string `json:"path_pattern"`
	MaxResults    int    `json:"max_results,omitempty"`
	Cursor        string `json:"cursor,omitempty"`
	MaxFileSize   int64  `json:"max_file_size,omitempty"`
	ContextBefore int    `json:"context_before,omitempty"`
	ContextAfter  int    `json:"context_after,omitempty"`
	SummaryOnly   bool   `json:"summary_only,omitempty"`
}

func (s *Server) handleFileSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p fileSearchParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing file_search parameters"))
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

	type fileOutcome struct {
		match types.FileMatch
		error string
	}
	results := sgexec.RunTyped(s.executor, ctx, candidates, func(ctx context.Context, c walker.Candidate) (fileOutcome, error) {
		content, readErr := os.ReadFile(c.Path)
		if readErr != nil {
			return fileOutcome{error: cerrors.Wrap(cerrors.FileIOError, readErr, "reading %s", c.Path).Error()}, nil
		}
		matches, findErr := s.scanner.FindAll(pattern, content)
		if findErr != nil {
			return fileOutcome{error: findErr.Error()}, nil
		}
		if len(matches) == 0 {
			return fileOutcome{}, nil
		}
		return fileOutcome{match: types.FileMatch{Path: c.Path, Matches: matches}}, nil
	}, nil)

	var fileMatches []types.FileMatch
	var fileErrors []map[string]string
	fileContents := map[string][]byte{}
	for i, r := range results {
		if !r.Started {
			continue
		}
		if r.Value.error != "" {
			fileErrors = append(fileErrors, map[string]string{"path": candidates[i].Path, "error": r.Value.error})
			continue
		}
		if len(r.Value.match.Matches) == 0 {
			continue
		}
		fileMatches = append(fileMatches, r.Value.match)
		if content, readErr := os.ReadFile(r.Value.match.Path); readErr == nil {
			fileContents[r.Value.match.Path] = content
		}
	}

	contextLines := p.ContextBefore
	if p.ContextAfter > contextLines {
		contextLines = p.ContextAfter
	}
	root := ""
	if len(s.roots) > 0 {
		root = s.roots[0]
	}
	page, err := shaper.Shape(fileMatches, shaper.Options{
		RootDir:      root,
		MaxResults:   p.MaxResults,
		Cursor:       p.Cursor,
		ContextLines: contextLines,
		ForceSummary: p.SummaryOnly,
		FileContents: fileContents,
	})
	if err != nil {
		return toolError(err)
	}

	resp := map[string]any{
		"lightweight":   page.Lightweight,
		"total_files":   page.TotalFiles,
		"total_matches": page.TotalMatches,
		"next_cursor":   page.NextCursor,
	}
	if page.Lightweight {
		resp["summary"] = page.Summary
	} else {
		resp["files"] = page.Files
	}
	if len(fileErrors) > 0 {
		resp["file_errors"] = fileErrors
	}
	if len(skipped) > 0 {
		resp["skipped"] = skipped
	}
	return jsonResponse(resp)
}
