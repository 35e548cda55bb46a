package tool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Ayejay3194/business-spine/internal/domain"
)

func okTool(name string) Tool {
	return Func{ToolName: name, Fn: func(ctx context.Context, call Call) (Result, error) {
		return Result{OK: true, Data: "done"}, nil
	}}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(okTool("booking.create")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(okTool("booking.create")); err == nil {
		t.Error("Register() accepted a duplicate name")
	}
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(okTool("")); err == nil {
		t.Error("Register() accepted an empty name")
	}
	if err := r.Register(nil); err == nil {
		t.Error("Register() accepted a nil tool")
	}
}

func TestInvokeMissingTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Invoke(context.Background(), "nope", Call{}, time.Second)
	if domain.CodeOf(err) != domain.ErrorCodeNotFound {
		t.Errorf("Invoke() code = %v, want NOT_FOUND", domain.CodeOf(err))
	}
}

func TestInvokeSuccess(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(okTool("crm.add"))

	result, err := r.Invoke(context.Background(), "crm.add", Call{}, time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !result.OK || result.Data != "done" {
		t.Errorf("Invoke() = %+v, want OK with data", result)
	}
}

func TestInvokeToolErrorBecomesFailureResult(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Func{ToolName: "flaky", Fn: func(ctx context.Context, call Call) (Result, error) {
		return Result{}, fmt.Errorf("backend unavailable")
	}})

	result, err := r.Invoke(context.Background(), "flaky", Call{}, time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v, want nil", err)
	}
	if result.OK {
		t.Error("Invoke() OK = true for a failing tool")
	}
	if result.Error == "" {
		t.Error("Invoke() failure result missing error detail")
	}
}

func TestInvokeTimeout(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Func{ToolName: "slow", Fn: func(ctx context.Context, call Call) (Result, error) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return Result{OK: true}, nil
		}
	}})

	result, err := r.Invoke(context.Background(), "slow", Call{}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Invoke() error = %v, want nil", err)
	}
	if result.OK {
		t.Error("Invoke() OK = true for a timed-out tool")
	}
}

func TestInvokePanicBecomesFailureResult(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Func{ToolName: "boom", Fn: func(ctx context.Context, call Call) (Result, error) {
		panic("unexpected")
	}})

	result, err := r.Invoke(context.Background(), "boom", Call{}, time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v, want nil", err)
	}
	if result.OK {
		t.Error("Invoke() OK = true for a panicking tool")
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(okTool("b"))
	r.MustRegister(okTool("a"))

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}
