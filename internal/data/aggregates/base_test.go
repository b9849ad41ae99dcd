package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/platform/dbctx"
)

func TestExecuteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	err := Execute(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "catalog.test.success",
		func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("Execute success: %v", err)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("operations: %+v", hooks.Operations)
	}
}

func TestExecuteKeepsDomainErrors(t *testing.T) {
	hooks := &spyHooks{}
	rule := catalog.NewRuleError(catalog.CodeCyclicDependency, "ProductType.Publish", "cycle")
	err := Execute(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "catalog.test.rule",
		func(_ dbctx.Context) error { return rule })
	if err != error(rule) {
		t.Fatalf("rule error: want passthrough got=%v", err)
	}
	if hooks.Operations[0].Status != string(catalog.CodeCyclicDependency) {
		t.Fatalf("status: want=%s got=%s", catalog.CodeCyclicDependency, hooks.Operations[0].Status)
	}

	hooks = &spyHooks{}
	err = Execute(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "catalog.test.state",
		func(_ dbctx.Context) error { return catalog.NewStateError("Hydrate", "broken") })
	if !catalog.IsInvalidState(err) || hooks.Operations[0].Status != "invalid_state" {
		t.Fatalf("state error: err=%v status=%s", err, hooks.Operations[0].Status)
	}
}

func TestExecuteTracksConflicts(t *testing.T) {
	hooks := &spyHooks{}
	err := Execute(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "catalog.test.conflict",
		func(_ dbctx.Context) error { return ConflictError("stale version") })
	if !IsCode(err, CodeConflict) {
		t.Fatalf("expected conflict code, got=%v", err)
	}
	if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "catalog.test.conflict" {
		t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
	}
	if hooks.Operations[0].Status != string(CodeConflict) {
		t.Fatalf("status: got=%s", hooks.Operations[0].Status)
	}
}

func TestErrorStatus(t *testing.T) {
	if got := ErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := ErrorStatus(context.DeadlineExceeded); got != string(CodeRetryable) {
		t.Fatalf("deadline status: got=%s", got)
	}
	if got := ErrorStatus(NotFoundError("op", "missing")); got != string(CodeNotFound) {
		t.Fatalf("not found status: got=%s", got)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) { h.Conflicts = append(h.Conflicts, name) }
