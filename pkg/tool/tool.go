// Package tool defines the callable tool contract exposed to the model.
package tool

import "context"

// Definition describes a tool to the model. Parameters is a JSON-schema
// shaped object.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// CallableTool is a tool the agent can execute.
type CallableTool interface {
	// Definition returns the schema advertised to the model.
	Definition() Definition

	// Call executes the tool. The returned string is fed back to the model
	// as the tool result. An error means the call itself failed; the agent
	// converts it to an error result, it never aborts the turn.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// StringArg extracts a string argument, tolerating missing keys.
func StringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
