package mcp

import (
	"context"
	"encoding/json"

	"candycheck/internal/engine"
)

// toolEntry pairs a tool's wire schema with its engine dispatch.
type toolEntry struct {
	schema toolSchema
	call   func(ctx context.Context, s *Server, args json.RawMessage) (any, error)
}

// toolTable declares the served tools. Schemas use snake_case property
// names matching the engine request types; session_id is optional
// everywhere and defaults to the per-connection session.
func toolTable() []toolEntry {
	return []toolEntry{
		{
			schema: toolSchema{
				Name: "check_code",
				Description: "Check Python code for errors and naming inconsistencies. " +
					"Runs the configured checker, tracks declared identifiers and " +
					"locks lollipop rewards for every problem found; fix them and " +
					"submit_fixed_code to claim the rewards.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"code": {"type": "string", "description": "Python source to check"},
						"filename": {"type": "string", "description": "Name for the checked file, defaults to check.py"},
						"context_files": {"type": "object", "additionalProperties": {"type": "string"}, "description": "Extra filename to source mappings staged next to the checked file"},
						"track_identifiers": {"type": "boolean", "description": "Auto-track declared identifiers, defaults to true"},
						"session_id": {"type": "string", "description": "Session key, defaults to the connection session"}
					},
					"required": ["code"]
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.CheckRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.CheckCode(ctx, req)
			},
		},
		{
			schema: toolSchema{
				Name: "track_identifier",
				Description: "Explicitly register an identifier for naming consistency " +
					"checking across the session.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string", "description": "Identifier name"},
						"kind": {"type": "string", "description": "function, variable, class, method or constant"},
						"session_id": {"type": "string"}
					},
					"required": ["name"]
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.TrackRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.TrackIdentifier(req)
			},
		},
		{
			schema: toolSchema{
				Name: "check_consistency",
				Description: "Check whether an identifier name is consistent with the " +
					"forms already tracked this session.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string", "description": "Identifier to check"},
						"session_id": {"type": "string"}
					},
					"required": ["name"]
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.ConsistencyRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.CheckConsistency(req)
			},
		},
		{
			schema: toolSchema{
				Name:        "list_identifiers",
				Description: "List all identifiers tracked in the session.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"session_id": {"type": "string"}
					}
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.ListRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.ListIdentifiers(req)
			},
		},
		{
			schema: toolSchema{
				Name: "suggest_fix",
				Description: "Suggest fixes for a Python checker error message, with " +
					"actionable guidance per error category.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"error_message": {"type": "string", "description": "The checker error text"},
						"session_id": {"type": "string"}
					},
					"required": ["error_message"]
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.SuggestRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.SuggestFix(req)
			},
		},
		{
			schema: toolSchema{
				Name: "submit_fixed_code",
				Description: "Submit fixed code to unlock your locked lollipops. The fix " +
					"is verified by re-checking the code; streaks earn bonus rewards " +
					"and sometimes a jackpot multiplier hits. The leaderboard is " +
					"watching.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"original_code": {"type": "string", "description": "The code as it was before the fix"},
						"fixed_code": {"type": "string", "description": "The corrected code"},
						"errors_fixed": {"type": "array", "items": {"type": "string"}, "description": "The error messages this fix addresses"},
						"session_id": {"type": "string"}
					},
					"required": ["fixed_code", "errors_fixed"]
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.SubmitRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.SubmitFixedCode(ctx, req)
			},
		},
		{
			schema: toolSchema{
				Name: "check_status",
				Description: "Report the session's lollipop economy: locked and unlocked " +
					"counts, streak, debt, milestone progress and leaderboard position.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"session_id": {"type": "string"}
					}
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.StatusRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.Status(req)
			},
		},
		{
			schema: toolSchema{
				Name: "check_persona_effectiveness",
				Description: "Report fix-through rates per motivation persona across all " +
					"sessions of this process.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {}
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				return s.engine.PersonaEffectiveness()
			},
		},
		{
			schema: toolSchema{
				Name: "clear_session",
				Description: "Drop all tracked identifiers and reward state for the " +
					"session. Idempotent.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"session_id": {"type": "string"}
					}
				}`),
			},
			call: func(ctx context.Context, s *Server, args json.RawMessage) (any, error) {
				var req engine.ClearRequest
				if err := unmarshalArgs(args, &req); err != nil {
					return nil, err
				}
				req.SessionID = s.sessionOrDefault(req.SessionID)
				return s.engine.ClearSession(req)
			},
		},
	}
}
