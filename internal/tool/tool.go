// internal/tool/tool.go
//
// Auxiliary capabilities a council member may consult mid-turn: web search
// and knowledge-base retrieval. Tools carry no cross-call state; every
// invocation is a pure request/response. A tool failure never aborts the
// member's turn; it is recorded on the response and the member answers with
// whatever it did obtain.

package tool

import (
	"context"
	"fmt"
)

// Tool is one capability an agent can invoke with a free-text query.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, query string) (string, error)
}

// Error marks a failed invocation of a named tool.
type Error struct {
	Tool string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Invocation records one tool call made while producing a response. Err is
// empty on success; Result holds a summary of what the tool returned.
type Invocation struct {
	Tool   string `json:"tool"`
	Query  string `json:"query"`
	Result string `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Registry is an ordered, immutable set of tools available to one agent.
type Registry struct {
	tools []Tool
	index map[string]Tool
}

// NewRegistry builds a registry. Nil tools are dropped; a duplicate name is a
// configuration mistake and panics at wiring time rather than mid-query.
func NewRegistry(tools ...Tool) *Registry {
	reg := &Registry{index: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if _, dup := reg.index[name]; dup {
			panic(fmt.Sprintf("tool: duplicate registration for %q", name))
		}
		reg.index[name] = t
		reg.tools = append(reg.tools, t)
	}
	return reg
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.index[name]
	return t, ok
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Invoke runs the named tool. It returns the full result for folding back
// into the model exchange plus an audit Invocation record that is complete
// for both success and failure; the error return mirrors Invocation.Err.
func (r *Registry) Invoke(ctx context.Context, name, query string) (string, Invocation, error) {
	record := Invocation{Tool: name, Query: query}
	t, ok := r.Lookup(name)
	if !ok {
		err := &Error{Tool: name, Err: fmt.Errorf("not registered")}
		record.Err = err.Error()
		return "", record, err
	}
	result, err := t.Invoke(ctx, query)
	if err != nil {
		wrapped := &Error{Tool: name, Err: err}
		record.Err = wrapped.Error()
		return "", record, wrapped
	}
	record.Result = summarize(result)
	return result, record, nil
}

// summarize keeps invocation records readable; full results still flow back
// to the model, only the audit record is truncated.
func summarize(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
