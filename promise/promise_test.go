package promise_test

import (
	"context"
	"testing"
	"time"

	"github.com/aisreactor/reactor/promise"
)

type inlineExecutor struct {
	inLoop bool
	ran    []func()
}

func (e *inlineExecutor) Execute(fn func()) { e.ran = append(e.ran, fn); fn() }
func (e *inlineExecutor) InEventLoop() bool { return e.inLoop }

func TestSetSuccessTwiceFails(t *testing.T) {
	p := promise.New(nil)
	if err := p.SetSuccess(1); err != nil {
		t.Fatal(err)
	}
	if err := p.SetSuccess(2); err != promise.ErrIllegalState {
		t.Fatalf("second SetSuccess = %v, want ErrIllegalState", err)
	}
	if !p.IsSuccess() || p.GetNow() != 1 {
		t.Fatalf("state not preserved from first completion")
	}
}

func TestTryFailureAfterSuccess(t *testing.T) {
	p := promise.New(nil)
	p.TrySuccess("ok")
	if p.TryFailure(context.Canceled) {
		t.Fatal("TryFailure succeeded after prior completion")
	}
}

func TestCancelBlockedByUncancellable(t *testing.T) {
	p := promise.New(nil)
	if !p.SetUncancellable() {
		t.Fatal("SetUncancellable failed on incomplete promise")
	}
	if p.Cancel() {
		t.Fatal("Cancel succeeded despite uncancellable flag")
	}
	if p.IsDone() {
		t.Fatal("promise should remain incomplete")
	}
}

func TestCancelSetsCancellationCause(t *testing.T) {
	p := promise.New(nil)
	if !p.Cancel() {
		t.Fatal("Cancel failed")
	}
	if p.Cause() != promise.ErrCancellation {
		t.Fatalf("cause = %v, want ErrCancellation", p.Cause())
	}
}

func TestListenersRegisteredBeforeCompletionRunOnExecutorInOrder(t *testing.T) {
	exec := &inlineExecutor{}
	p := promise.New(exec)
	var order []int
	p.AddListener(func(*promise.Promise) { order = append(order, 1) })
	p.AddListener(func(*promise.Promise) { order = append(order, 2) })
	p.SetSuccess(nil)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
	if len(exec.ran) != 1 {
		t.Fatalf("expected a single batched executor submission, got %d", len(exec.ran))
	}
}

func TestListenerAddedAfterCompletionRunsImmediately(t *testing.T) {
	p := promise.New(nil)
	p.SetSuccess("done")
	called := false
	p.AddListener(func(pp *promise.Promise) { called = true })
	if !called {
		t.Fatal("post-completion listener did not run synchronously")
	}
}

func TestAwaitDeadlocksFromOwningExecutor(t *testing.T) {
	exec := &inlineExecutor{inLoop: true}
	p := promise.New(exec)
	if err := p.Await(context.Background()); err != promise.ErrDeadlock {
		t.Fatalf("Await from owning executor = %v, want ErrDeadlock", err)
	}
}

func TestAwaitTimeoutExpires(t *testing.T) {
	p := promise.New(nil)
	ok, err := p.AwaitTimeout(10 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected timeout, got completion")
	}
}

func TestSyncRethrowsCause(t *testing.T) {
	p := promise.New(nil)
	boom := context.Canceled
	p.SetFailure(boom)
	if err := p.Sync(context.Background()); err != boom {
		t.Fatalf("Sync cause = %v, want %v", err, boom)
	}
}
