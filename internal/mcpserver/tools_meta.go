package mcpserver

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
	"github.com/standardbeagle/sgmcp/internal/langtable"
	"github.com/standardbeagle/sgmcp/internal/lineindex"
	"github.com/standardbeagle/sgmcp/internal/version"
)

func (s *Server) registerMetaTools() {
	s.addTool(&mcp.Tool{
		Name:        "list_languages",
		Description: "Enumerate every recognized language tag, its file extensions, and whether a grammar is bound.",
		InputSchema: objectSchema(nil),
	}, s.handleListLanguages)

	s.addTool(&mcp.Tool{
		Name:        "generate_ast",
		Description: "Parse code and return its AST node structure plus a node-kind frequency table, for discovering Kind(...) rule values.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"code":     stringProp("Source code to parse"),
			"language": stringProp("Language tag"),
		}, "code", "language"),
	}, s.handleGenerateAST)
}

type languageInfo struct {
	Tag        string   `json:"tag"`
	Extensions []string `json:"extensions"`
	Aliases    []string `json:"aliases,omitempty"`
	HasGrammar bool     `json:"has_grammar"`
}

func (s *Server) handleListLanguages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := langtable.Entries()
	infos := make([]languageInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, languageInfo{
			Tag:        e.Tag,
			Extensions: e.Extensions,
			Aliases:    e.Aliases,
			HasGrammar: langtable.HasGrammar(e.Tag),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Tag < infos[j].Tag })
	return jsonResponse(map[string]any{"languages": infos, "server_version": version.FullInfo()})
}

type generateASTParams struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// astNode is one node of the generate_ast response tree: grammar
// kind, named-ness, byte range, and the field name the parent assigned it (if any).
type astNode struct {
	Kind      string    `json:"kind"`
	Named     bool      `json:"named"`
	Start     astPoint  `json:"start"`
	End       astPoint  `json:"end"`
	FieldName string    `json:"field_name,omitempty"`
	Children  []astNode `json:"children,omitempty"`
}

type astPoint struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (s *Server) handleGenerateAST(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p generateASTParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return toolError(cerrors.Wrap(cerrors.InvalidParameters, err, "parsing generate_ast parameters"))
	}

	lang, err := resolveLanguage(p.Language)
	if err != nil {
		return toolError(err)
	}
	parser, ok := langtable.NewParser(lang)
	if !ok {
		return toolError(cerrors.New(cerrors.UnsupportedLanguage, "no grammar bound for language %q", lang))
	}
	defer parser.Close()

	content := []byte(p.Code)
	tree := parser.Parse(content, nil)
	if tree == nil {
		return toolError(cerrors.New(cerrors.InvalidParameters, "code failed to parse under %q grammar", lang))
	}
	defer tree.Close()

	idx := lineindex.Build(content)
	frequency := map[string]int{}
	var build func(n *tree_sitter.Node, fieldName string) astNode
	build = func(n *tree_sitter.Node, fieldName string) astNode {
		frequency[n.Kind()]++
		startLine, startCol := idx.Position(uint(n.StartByte()))
		endLine, endCol := idx.Position(uint(n.EndByte()))
		out := astNode{
			Kind:      n.Kind(),
			Named:     n.IsNamed(),
			Start:     astPoint{Line: startLine, Column: startCol},
			End:       astPoint{Line: endLine, Column: endCol},
			FieldName: fieldName,
		}
		count := n.ChildCount()
		for i := uint(0); i < count; i++ {
			child := n.Child(i)
			if child == nil {
				continue
			}
			out.Children = append(out.Children, build(child, n.FieldNameForChild(i)))
		}
		return out
	}
	root := build(tree.RootNode(), "")

	type kindCount struct {
		Kind  string `json:"kind"`
		Count int    `json:"count"`
	}
	kinds := make([]kindCount, 0, len(frequency))
	for k, c := range frequency {
		kinds = append(kinds, kindCount{Kind: k, Count: c})
	}
	sort.Slice(kinds, func(i, j int) bool {
		if kinds[i].Count != kinds[j].Count {
			return kinds[i].Count > kinds[j].Count
		}
		return kinds[i].Kind < kinds[j].Kind
	})

	return jsonResponse(map[string]any{
		"ast":        root,
		"node_kinds": kinds,
	})
}
