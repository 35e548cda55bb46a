// Package tool provides the typed tool registry and the single point where
// the core invokes external operations.
//
// Tools are owned by spines, not by the core. Registration is explicit and
// compile-time checked against the Tool interface; there is no stringly-typed
// dispatch into arbitrary code. Invocation is timeout-bound and panic-safe:
// whatever a tool does, the runner sees a Result.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ayejay3194/business-spine/internal/domain"
)

// Call is the input handed to a tool invocation.
type Call struct {
	Ctx   domain.RequestContext
	Input map[string]any
}

// Result is the outcome of a tool invocation. A tool that partially
// succeeds must report OK=false with enough detail for the audit trail;
// OK=true means full completion.
type Result struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Tool is one named async operation with typed input/output.
type Tool interface {
	// Name returns the registry key for the tool.
	Name() string

	// Invoke performs the operation. It must honor ctx cancellation.
	Invoke(ctx context.Context, call Call) (Result, error)
}

// Func adapts a function to the Tool interface.
type Func struct {
	ToolName string
	Fn       func(ctx context.Context, call Call) (Result, error)
}

func (f Func) Name() string { return f.ToolName }

func (f Func) Invoke(ctx context.Context, call Call) (Result, error) {
	return f.Fn(ctx, call)
}

// Registry holds registered tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. It rejects empty names and duplicates: a silent
// overwrite would let one spine shadow another's operation.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// MustRegister registers a tool and panics on error. Intended for wiring
// built-in spines at startup.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named tool under the given timeout. A missing tool is a
// NOT_FOUND error. Tool errors, timeouts, and panics are converted to a
// failure Result, never propagated: the caller always gets exactly one
// outcome per invocation.
func (r *Registry) Invoke(ctx context.Context, name string, call Call, timeout time.Duration) (Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return Result{}, domain.ErrNotFound(fmt.Sprintf("tool %q is not registered", name))
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", name, rec)}
			}
		}()
		result, err := t.Invoke(ctx, call)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return Result{OK: false, Error: fmt.Sprintf("tool %s timed out: %v", name, ctx.Err())}, nil
	case out := <-done:
		if out.err != nil {
			return Result{OK: false, Error: out.err.Error()}, nil
		}
		return out.result, nil
	}
}
