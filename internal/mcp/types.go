package mcp

import "encoding/json"

// protocolVersion is the MCP protocol revision this server speaks.
const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// mcpRequest represents a JSON-RPC style MCP request. The ID stays raw
// so numeric and string ids round-trip unchanged; a nil ID marks a
// notification.
type mcpRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// mcpResponse represents a JSON-RPC style MCP response.
type mcpResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *mcpError       `json:"error,omitempty"`
}

// mcpError represents an error in an MCP response.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// toolSchema describes one tool in a tools/list result.
type toolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// listToolsResult is the tools/list result payload.
type listToolsResult struct {
	Tools []toolSchema `json:"tools"`
}

// toolCallParams are the tools/call request params.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// contentItem is one entry in a tool result's content array.
type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolResult is the tools/call result envelope. Tool-level failures
// ride inside it with IsError set; protocol-level failures use
// mcpError instead.
type toolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// initializeResult answers the initialize handshake.
type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      serverInfo         `json:"serverInfo"`
}

type serverCapabilities struct {
	Tools struct{} `json:"tools"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// textResult wraps a payload as a single text content item.
func textResult(text string) toolResult {
	return toolResult{Content: []contentItem{{Type: "text", Text: text}}}
}

// errorResult wraps a tool failure message in the result envelope.
func errorResult(text string) toolResult {
	return toolResult{Content: []contentItem{{Type: "text", Text: text}}, IsError: true}
}
