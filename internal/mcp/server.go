// Package mcp exposes the engine as an MCP tool server speaking
// JSON-RPC 2.0 over newline-delimited stdio.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"candycheck/internal/engine"
	"candycheck/internal/logging"
	"candycheck/internal/reward"
)

// maxLineBytes bounds one request line. Source payloads ride inside
// params, so the limit is generous.
const maxLineBytes = 10 << 20

// errInvalidParams marks argument decode failures so dispatch can map
// them to JSON-RPC -32602 instead of a tool-level error envelope.
var errInvalidParams = errors.New("invalid params")

// Server serves one MCP connection: requests in on a line-delimited
// stream, responses out through a mutex-guarded writer. Requests are
// handled sequentially in arrival order; tool calls are fast and
// session-serialized anyway.
type Server struct {
	engine  *engine.Engine
	in      io.Reader
	out     io.Writer
	version string

	// defaultSession backs tool calls that omit session_id, so a bare
	// client accumulates state in one coherent session per connection.
	defaultSession string

	tools []toolEntry

	writeMu sync.Mutex
}

// NewServer wires a server around eng reading from in and writing to
// out, normally os.Stdin and os.Stdout.
func NewServer(eng *engine.Engine, in io.Reader, out io.Writer, version string) *Server {
	s := &Server{
		engine:         eng,
		in:             in,
		out:            out,
		version:        version,
		defaultSession: uuid.NewString(),
	}
	s.tools = toolTable()
	return s
}

// DefaultSession returns the session key used when tool calls omit
// session_id.
func (s *Server) DefaultSession() string { return s.defaultSession }

// Serve reads and answers requests until the input stream closes or
// ctx is cancelled. A closed stream is a normal shutdown, not an
// error.
func (s *Server) Serve(ctx context.Context) error {
	logging.Server("mcp: serving, default session %s", s.defaultSession)

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s.handleLine(ctx, line)
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read request: %w", err)
	}
	logging.Server("mcp: input closed, shutting down")
	return nil
}

// handleLine parses one request line and writes the response, if the
// request calls for one.
func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req mcpRequest
	if err := json.Unmarshal(line, &req); err != nil {
		logging.ServerWarn("mcp: unparseable request: %v", err)
		s.writeError(json.RawMessage("null"), codeParseError, "parse error: "+err.Error(), nil)
		return
	}

	resp := s.dispatch(ctx, &req)
	if resp == nil {
		return // Notification; nothing to write
	}
	s.write(resp)
}

// dispatch routes one request to its handler. A nil return means no
// response is due.
func (s *Server) dispatch(ctx context.Context, req *mcpRequest) *mcpResponse {
	timer := logging.StartTimer(logging.CategoryServer, "mcp."+req.Method)
	defer timer.Stop()

	switch req.Method {
	case "initialize":
		return s.resultResponse(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: "candycheck", Version: s.version},
		})

	case "notifications/initialized":
		logging.ServerDebug("mcp: client initialized")
		return nil

	case "ping":
		return s.resultResponse(req.ID, struct{}{})

	case "tools/list":
		res := listToolsResult{Tools: make([]toolSchema, 0, len(s.tools))}
		for _, t := range s.tools {
			res.Tools = append(res.Tools, t.schema)
		}
		return s.resultResponse(req.ID, res)

	case "tools/call":
		return s.handleToolCall(ctx, req)

	default:
		if req.ID == nil {
			logging.ServerDebug("mcp: ignoring notification %q", req.Method)
			return nil
		}
		return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

// handleToolCall decodes a tools/call request and runs the named tool.
// Tool failures come back inside the result envelope with isError set;
// only malformed params, unknown tools and invariant violations become
// JSON-RPC errors.
func (s *Server) handleToolCall(ctx context.Context, req *mcpRequest) *mcpResponse {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error(), nil)
	}

	tool := s.lookup(params.Name)
	if tool == nil {
		return s.errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name), nil)
	}

	timer := logging.StartTimer(logging.CategoryServer, "tool."+params.Name)
	out, err := tool.call(ctx, s, params.Arguments)
	timer.Stop()

	if err != nil {
		if errors.Is(err, errInvalidParams) {
			return s.errorResponse(req.ID, codeInvalidParams, err.Error(), nil)
		}
		var viol *reward.InvariantViolationError
		if errors.As(err, &viol) {
			logging.ServerError("mcp: invariant violation in %s: %v", params.Name, viol)
			return s.errorResponse(req.ID, codeInternalError, viol.Error(), nil)
		}
		logging.ServerWarn("mcp: tool %s failed: %v", params.Name, err)
		return s.resultResponse(req.ID, errorResult(err.Error()))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return s.errorResponse(req.ID, codeInternalError, "encode result: "+err.Error(), nil)
	}
	return s.resultResponse(req.ID, textResult(string(data)))
}

// lookup finds a tool by name.
func (s *Server) lookup(name string) *toolEntry {
	for i := range s.tools {
		if s.tools[i].schema.Name == name {
			return &s.tools[i]
		}
	}
	return nil
}

// sessionOrDefault substitutes the per-connection session for an empty
// key.
func (s *Server) sessionOrDefault(key string) string {
	if key == "" {
		return s.defaultSession
	}
	return key
}

func (s *Server) resultResponse(id json.RawMessage, result any) *mcpResponse {
	return &mcpResponse{JSONRPC: "2.0", ID: ensureID(id), Result: result}
}

func (s *Server) errorResponse(id json.RawMessage, code int, message string, data any) *mcpResponse {
	return &mcpResponse{JSONRPC: "2.0", ID: ensureID(id), Error: &mcpError{Code: code, Message: message, Data: data}}
}

// ensureID keeps the response id field well-formed: a request that
// somehow lacked one gets an explicit null.
func ensureID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// write marshals one response as a single line. Writes are serialized
// so concurrent callers cannot interleave bytes.
func (s *Server) write(resp *mcpResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.ServerError("mcp: marshal response: %v", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		logging.ServerError("mcp: write response: %v", err)
	}
}

func (s *Server) writeError(id json.RawMessage, code int, message string, data any) {
	s.write(s.errorResponse(id, code, message, data))
}

// unmarshalArgs decodes tool arguments into the engine request type.
// Absent arguments decode as the zero request.
func unmarshalArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}
