// ABOUTME: Immutable catalog of locally-known tool schemas keyed by tool CID
// ABOUTME: Carries parameter descriptions and validators for each tool kind

package catalog

import (
	"fmt"
	"sort"

	"github.com/2389/toolwarden/internal/policy"
)

// ParamDef describes one declared tool parameter. All parameter values are
// strings on the wire; tools parse them.
type ParamDef struct {
	Name        string
	Description string
}

// ValidationError reports that one named parameter failed validation.
type ValidationError struct {
	Param   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("param %s: %s", e.Param, e.Message)
}

// Validator checks tool parameter values. It only judges keys present in
// the map; absent parameters are the resolver's concern.
type Validator interface {
	Validate(params map[string]string) []ValidationError
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(params map[string]string) []ValidationError

// Validate calls the wrapped function.
func (f ValidatorFunc) Validate(params map[string]string) []ValidationError {
	return f(params)
}

// Definition is the locally-known schema of one tool: its content-addressed
// ID, display metadata, policy schema, declared parameters and validator.
type Definition struct {
	ToolID       string
	Kind         string
	Name         string
	Description  string
	PolicySchema policy.Schema
	Params       []ParamDef
	Validator    Validator
}

// Catalog is the set of tool definitions the engine recognizes. It is
// loaded once at construction and immutable thereafter; tools present in
// the remote registry but absent here are classified as unknown, never
// guessed at.
type Catalog struct {
	byID map[string]Definition
}

// New builds a catalog from definitions, rejecting duplicate tool IDs.
func New(defs []Definition) (*Catalog, error) {
	byID := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if def.ToolID == "" {
			return nil, fmt.Errorf("catalog: definition %q has no tool ID", def.Name)
		}
		if _, exists := byID[def.ToolID]; exists {
			return nil, fmt.Errorf("catalog: duplicate tool ID %s", def.ToolID)
		}
		byID[def.ToolID] = def
	}
	return &Catalog{byID: byID}, nil
}

// Lookup returns the definition for a tool ID, if known.
func (c *Catalog) Lookup(toolID string) (Definition, bool) {
	def, ok := c.byID[toolID]
	return def, ok
}

// Definitions returns all definitions sorted by tool ID.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.byID))
	for _, def := range c.byID {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToolID < out[j].ToolID })
	return out
}

// ParamHints probes a definition's validator with an empty value per
// declared parameter and returns the resulting messages as inline
// validation hints, keyed by parameter name.
func ParamHints(def Definition) map[string]string {
	hints := make(map[string]string, len(def.Params))
	if def.Validator == nil {
		return hints
	}
	for _, p := range def.Params {
		failures := def.Validator.Validate(map[string]string{p.Name: ""})
		for _, f := range failures {
			if f.Param == p.Name {
				hints[p.Name] = f.Message
				break
			}
		}
	}
	return hints
}
