package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"candycheck/internal/checker"
	"candycheck/internal/engine"
	"candycheck/internal/reward"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedChecker returns canned checker runs in order, repeating the
// last one once the script is exhausted.
type scriptedChecker struct {
	script []checker.RunResult
	calls  int
}

func (c *scriptedChecker) CheckSource(ctx context.Context, code, filename string, contextFiles map[string]string) (*checker.RunResult, error) {
	i := c.calls
	if i >= len(c.script) {
		i = len(c.script) - 1
	}
	c.calls++
	res := c.script[i]
	return &res, nil
}

type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) Intn(n int) int   { return r.n % n }

func noJackpot(int64) reward.Rand { return fixedRand{f: 0.99} }

const twoErrorOutput = "ERROR `x` is not defined [unknown-name]\n" +
	" --> check.py:2:5\n" +
	"ERROR cannot import `foo` [import-error]\n" +
	" --> check.py:1:1\n"

func newTestServer(script ...checker.RunResult) *Server {
	if len(script) == 0 {
		script = []checker.RunResult{{ExitCode: 0}}
	}
	eng := engine.New(engine.Options{
		Checker: &scriptedChecker{script: script},
		Factory: noJackpot,
	})
	return NewServer(eng, nil, nil, "test")
}

// frame mirrors the response wire shape for decoding in tests.
type frame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type envelope struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// serve runs the server over the given request lines and returns one
// decoded frame per response line.
func serve(t *testing.T, s *Server, lines ...string) []frame {
	t.Helper()

	s.in = strings.NewReader(strings.Join(lines, "\n") + "\n")
	out := &bytes.Buffer{}
	s.out = out

	require.NoError(t, s.Serve(context.Background()))

	var frames []frame
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var f frame
		require.NoError(t, json.Unmarshal([]byte(line), &f), "response line: %s", line)
		frames = append(frames, f)
	}
	return frames
}

// toolPayload unwraps a tools/call result envelope into v.
func toolPayload(t *testing.T, f frame, v any) envelope {
	t.Helper()
	require.Nil(t, f.Error, "unexpected protocol error: %+v", f.Error)

	var env envelope
	require.NoError(t, json.Unmarshal(f.Result, &env))
	require.NotEmpty(t, env.Content)
	assert.Equal(t, "text", env.Content[0].Type)
	if v != nil {
		require.NoError(t, json.Unmarshal([]byte(env.Content[0].Text), v))
	}
	return env
}

func callLine(id int, tool string, args string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":"%s","arguments":%s}}`, id, tool, args)
}

func TestServe_Handshake(t *testing.T) {
	frames := serve(t, newTestServer(),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)

	// The notification produces no response line
	require.Len(t, frames, 2)

	var init initializeResult
	require.NoError(t, json.Unmarshal(frames[0].Result, &init))
	assert.Equal(t, "2024-11-05", init.ProtocolVersion)
	assert.Equal(t, "candycheck", init.ServerInfo.Name)
	assert.Equal(t, "test", init.ServerInfo.Version)

	assert.Equal(t, json.RawMessage("2"), frames[1].ID)
	assert.Nil(t, frames[1].Error)
}

func TestServe_ToolsList(t *testing.T) {
	frames := serve(t, newTestServer(),
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
	)
	require.Len(t, frames, 1)

	var res listToolsResult
	require.NoError(t, json.Unmarshal(frames[0].Result, &res))

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)

		// Every schema must be a valid JSON object
		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.InputSchema, &schema), "schema for %s", tool.Name)
		assert.Equal(t, "object", schema["type"], "schema for %s", tool.Name)
		assert.NotEmpty(t, tool.Description, "description for %s", tool.Name)
	}

	assert.ElementsMatch(t, []string{
		"check_code",
		"track_identifier",
		"check_consistency",
		"list_identifiers",
		"suggest_fix",
		"submit_fixed_code",
		"check_status",
		"check_persona_effectiveness",
		"clear_session",
	}, names)
}

func TestServe_UnknownMethod(t *testing.T) {
	frames := serve(t, newTestServer(),
		`{"jsonrpc":"2.0","id":7,"method":"resources/list"}`,
	)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Error)
	assert.Equal(t, codeMethodNotFound, frames[0].Error.Code)
	assert.Contains(t, frames[0].Error.Message, "resources/list")
}

func TestServe_UnknownNotificationIgnored(t *testing.T) {
	frames := serve(t, newTestServer(),
		`{"jsonrpc":"2.0","method":"notifications/cancelled"}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	)
	require.Len(t, frames, 1)
	assert.Nil(t, frames[0].Error)
}

func TestServe_ParseError(t *testing.T) {
	frames := serve(t, newTestServer(),
		`{this is not json`,
	)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Error)
	assert.Equal(t, codeParseError, frames[0].Error.Code)
	assert.Equal(t, json.RawMessage("null"), frames[0].ID)
}

func TestServe_UnknownTool(t *testing.T) {
	frames := serve(t, newTestServer(),
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"mint_lollipops","arguments":{}}}`,
	)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Error)
	assert.Equal(t, codeInvalidParams, frames[0].Error.Code)
	assert.Contains(t, frames[0].Error.Message, "mint_lollipops")
}

func TestServe_BadArgumentsType(t *testing.T) {
	frames := serve(t, newTestServer(),
		callLine(4, "check_code", `{"code": 42}`),
	)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Error)
	assert.Equal(t, codeInvalidParams, frames[0].Error.Code)
}

func TestServe_ToolFailureUsesErrorEnvelope(t *testing.T) {
	frames := serve(t, newTestServer(),
		callLine(5, "check_code", `{"code": "   "}`),
	)
	require.Len(t, frames, 1)

	env := toolPayload(t, frames[0], nil)
	assert.True(t, env.IsError)
	assert.Contains(t, env.Content[0].Text, "code must not be empty")
}

func TestServe_CheckFixStatusFlow(t *testing.T) {
	s := newTestServer(
		checker.RunResult{Stdout: twoErrorOutput, ExitCode: 1},
		checker.RunResult{ExitCode: 0},
	)

	frames := serve(t, s,
		callLine(1, "check_code", `{"code": "import foo\nx"}`),
		callLine(2, "submit_fixed_code", `{"fixed_code": "import os\nx = 1", "errors_fixed": ["`+"`x` is not defined"+`", "cannot import"]}`),
		callLine(3, "check_status", `{}`),
	)
	require.Len(t, frames, 3)

	var check struct {
		Success     bool   `json:"success"`
		ErrorCount  int    `json:"error_count"`
		LockedDelta int    `json:"locked_delta"`
		TotalLocked int    `json:"total_locked"`
		SessionID   string `json:"session_id"`
	}
	toolPayload(t, frames[0], &check)
	assert.False(t, check.Success)
	assert.Equal(t, 2, check.ErrorCount)
	// 2 errors plus 1 import bonus
	assert.Equal(t, 3, check.LockedDelta)
	assert.Equal(t, s.DefaultSession(), check.SessionID)

	var submit struct {
		Success         bool `json:"success"`
		Unlocked        int  `json:"unlocked"`
		LockedRemaining int  `json:"locked_remaining"`
		Streak          int  `json:"streak"`
	}
	toolPayload(t, frames[1], &submit)
	assert.True(t, submit.Success)
	assert.Equal(t, 2, submit.Unlocked)
	assert.Equal(t, 1, submit.LockedRemaining)
	assert.Equal(t, 1, submit.Streak)

	var status struct {
		Locked    int    `json:"locked"`
		Unlocked  int    `json:"unlocked"`
		SessionID string `json:"session_id"`
	}
	toolPayload(t, frames[2], &status)
	assert.Equal(t, 1, status.Locked)
	assert.Equal(t, 2, status.Unlocked)
	assert.Equal(t, s.DefaultSession(), status.SessionID)
}

func TestServe_ExplicitSessionOverridesDefault(t *testing.T) {
	s := newTestServer(checker.RunResult{Stdout: twoErrorOutput, ExitCode: 1})

	frames := serve(t, s,
		callLine(1, "check_code", `{"code": "x", "session_id": "mine"}`),
		callLine(2, "check_status", `{"session_id": "mine"}`),
		callLine(3, "check_status", `{}`),
	)
	require.Len(t, frames, 3)

	var mine struct {
		Locked    int    `json:"locked"`
		SessionID string `json:"session_id"`
	}
	toolPayload(t, frames[1], &mine)
	assert.Equal(t, "mine", mine.SessionID)
	assert.Equal(t, 3, mine.Locked)

	var def struct {
		Locked    int    `json:"locked"`
		SessionID string `json:"session_id"`
	}
	toolPayload(t, frames[2], &def)
	assert.Equal(t, s.DefaultSession(), def.SessionID)
	assert.Zero(t, def.Locked)
}

func TestServe_StringIDRoundTrip(t *testing.T) {
	frames := serve(t, newTestServer(),
		`{"jsonrpc":"2.0","id":"req-abc","method":"ping"}`,
	)
	require.Len(t, frames, 1)
	assert.Equal(t, json.RawMessage(`"req-abc"`), frames[0].ID)
}

func TestServe_ClearSessionIdempotent(t *testing.T) {
	frames := serve(t, newTestServer(),
		callLine(1, "check_status", `{}`),
		callLine(2, "clear_session", `{}`),
		callLine(3, "clear_session", `{}`),
	)
	require.Len(t, frames, 3)

	var first, second struct {
		Cleared bool `json:"cleared"`
	}
	env := toolPayload(t, frames[1], &first)
	assert.False(t, env.IsError)
	assert.True(t, first.Cleared)

	// Clearing again succeeds but finds nothing to drop
	env = toolPayload(t, frames[2], &second)
	assert.False(t, env.IsError)
	assert.False(t, second.Cleared)
}

func TestServe_PersonaEffectiveness(t *testing.T) {
	s := newTestServer(checker.RunResult{Stdout: twoErrorOutput, ExitCode: 1})

	frames := serve(t, s,
		callLine(1, "check_code", `{"code": "x"}`),
		callLine(2, "check_persona_effectiveness", `{}`),
	)
	require.Len(t, frames, 2)

	var report struct {
		Personas []struct {
			Persona          string  `json:"persona"`
			DiagnosticsShown int     `json:"diagnostics_shown"`
			FixesSubmitted   int     `json:"fixes_submitted"`
			FixRate          float64 `json:"fix_rate"`
		} `json:"personas"`
	}
	toolPayload(t, frames[1], &report)

	require.NotEmpty(t, report.Personas)
	shown := 0
	for _, p := range report.Personas {
		shown += p.DiagnosticsShown
	}
	assert.Equal(t, 1, shown)
}
