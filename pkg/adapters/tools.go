package adapters

import (
	"encoding/json"
	"sort"
)

// ToolSchema is a provider-agnostic tool description keyed by tool name.
// Each value may carry "description" (string) and "parameters" (a JSON
// schema object).
type ToolSchema map[string]any

// ToolDefinition is one normalized entry of a ToolSchema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Empty reports whether no tools were requested.
func (s ToolSchema) Empty() bool {
	return len(s) == 0
}

// Definitions returns the tools sorted by name. Missing parameters become
// an empty object schema.
func (s ToolSchema) Definitions() []ToolDefinition {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		def := ToolDefinition{Name: name}
		if entry, ok := s[name].(map[string]any); ok {
			if d, ok := entry["description"].(string); ok {
				def.Description = d
			}
			if p, ok := entry["parameters"].(map[string]any); ok {
				def.Parameters = p
			}
		}
		if def.Parameters == nil {
			def.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs = append(defs, def)
	}
	return defs
}

// DecodeArguments parses a JSON-encoded argument string. Non-object or
// malformed input is preserved under "_raw".
func DecodeArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"_raw": raw}
	}
	if args == nil {
		return map[string]any{}
	}
	return args
}
