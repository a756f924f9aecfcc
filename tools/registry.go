// Tool registry and dispatch.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Schema validation performed before any handler runs
// - JSON-schema projection for the model gateway

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/richinex/argus/llm"
)

// Registry manages available tools. It is populated at startup and
// read-only afterwards; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register adds a tool. Returns *DuplicateToolError if the name is taken.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Name == "" {
		return fmt.Errorf("tool definition has no name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return &DuplicateToolError{Name: def.Name}
	}
	r.tools[def.Name] = def
	return nil
}

// Resolve returns a tool by name. Returns *UnknownToolError when absent.
func (r *Registry) Resolve(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	if !ok {
		return Definition{}, &UnknownToolError{Name: name, Known: r.namesLocked()}
	}
	return def, nil
}

// Dispatch validates arguments against the tool's schema and invokes
// the handler. Returns *UnknownToolError, *InvalidArgumentsError, or
// *ToolExecutionError wrapping a handler fault. A Result with a non-nil
// Error is a failed invocation, not a dispatch error.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	def, err := r.Resolve(name)
	if err != nil {
		return Result{}, err
	}

	if err := ValidateArgs(def, args); err != nil {
		return Result{}, err
	}

	result, err := def.Handler(ctx, args)
	if err != nil {
		return Result{}, &ToolExecutionError{Tool: name, Cause: err}
	}
	return result, nil
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, name := range r.namesLocked() {
		defs = append(defs, r.tools[name])
	}
	return defs
}

// Schemas projects all tools into gateway tool definitions.
func (r *Registry) Schemas() []llm.ToolDefinition {
	defs := r.List()
	out := make([]llm.ToolDefinition, 0, len(defs))
	for _, def := range defs {
		properties := make(map[string]any, len(def.Parameters))
		var required []string
		for _, p := range def.Parameters {
			properties[p.Name] = map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		params := map[string]any{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			params["required"] = required
		}
		out = append(out, llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		})
	}
	return out
}

// Description returns a formatted description of all tools for prompts.
func (r *Registry) Description() string {
	var blocks []string
	for _, def := range r.List() {
		var params []string
		for _, p := range def.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			params = append(params, fmt.Sprintf("  - %s (%s): %s [%s]",
				p.Name, p.Type, p.Description, required))
		}
		blocks = append(blocks, fmt.Sprintf("Tool: %s\nDescription: %s\nParameters:\n%s",
			def.Name, def.Description, strings.Join(params, "\n")))
	}
	return strings.Join(blocks, "\n\n")
}

// ValidateArgs checks raw arguments against the definition's parameter
// schema. Validation has no side effects; calling it twice on the same
// input yields the same outcome. Returns *InvalidArgumentsError listing
// every violation, or nil.
func ValidateArgs(def Definition, args json.RawMessage) error {
	decoded := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &decoded); err != nil {
			return &InvalidArgumentsError{
				Tool:     def.Name,
				Problems: []string{fmt.Sprintf("arguments are not a JSON object: %v", err)},
			}
		}
	}

	byName := make(map[string]Parameter, len(def.Parameters))
	for _, p := range def.Parameters {
		byName[p.Name] = p
	}

	var problems []string
	for _, p := range def.Parameters {
		value, present := decoded[p.Name]
		if !present {
			if p.Required {
				problems = append(problems, fmt.Sprintf("missing required parameter %q (%s)", p.Name, p.Type))
			}
			continue
		}
		if !typeMatches(p.Type, value) {
			problems = append(problems, fmt.Sprintf("parameter %q expects %s, got %s",
				p.Name, p.Type, jsonTypeName(value)))
		}
	}
	for name := range decoded {
		if _, known := byName[name]; !known {
			problems = append(problems, fmt.Sprintf("unknown parameter %q", name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return &InvalidArgumentsError{Tool: def.Name, Problems: problems}
	}
	return nil
}

func typeMatches(paramType string, value any) bool {
	switch paramType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
