package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
)

// jsonResponse marshals data as the tool's single text content block.
func jsonResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling response: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}, nil
}

// errorResponse reports err as a tool-level failure (IsError=true) rather than an MCP
// protocol error, so the calling model sees the failure and can self-correct.
// Request-scoped errors are reported this way; file-scoped errors are collected into a
// response's file_errors list by the caller instead of reaching here.
func errorResponse(kind cerrors.Kind, err error) (*mcp.CallToolResult, error) {
	body := map[string]any{
		"error": err.Error(),
		"kind":  string(kind),
	}
	var ce *cerrors.Error
	if e, ok := err.(*cerrors.Error); ok {
		ce = e
	}
	if ce != nil && ce.Suggestion != "" {
		body["suggestion"] = ce.Suggestion
	}
	resp, marshalErr := jsonResponse(body)
	if marshalErr != nil {
		return nil, marshalErr
	}
	resp.IsError = true
	return resp, nil
}

// toolError converts err into a tool response, classifying it via cerrors.KindOf. Internal
// errors report only the Internal kind and a generic message, never implementation detail.
func toolError(err error) (*mcp.CallToolResult, error) {
	kind := cerrors.KindOf(err)
	if kind == cerrors.Internal {
		return errorResponse(kind, fmt.Errorf("internal error"))
	}
	return errorResponse(kind, err)
}
