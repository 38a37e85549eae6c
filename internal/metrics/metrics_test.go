package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetLifecycleState(t *testing.T) {
	all := []string{"awaiting_input", "counting", "reached"}

	SetLifecycleState("counting", all)
	for _, state := range all {
		want := 0.0
		if state == "counting" {
			want = 1
		}
		if got := testutil.ToFloat64(LifecycleState.WithLabelValues(state)); got != want {
			t.Errorf("state %s = %v, want %v", state, got, want)
		}
	}

	SetLifecycleState("reached", all)
	if got := testutil.ToFloat64(LifecycleState.WithLabelValues("counting")); got != 0 {
		t.Errorf("previous state should be cleared, got %v", got)
	}
}

func TestObserveStoreOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("save", "ok"))
	errBefore := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("save", "error"))

	ObserveStoreOperation("save", nil)
	ObserveStoreOperation("save", errors.New("boom"))
	ObserveStoreOperation("save", nil)

	if got := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("save", "ok")) - okBefore; got != 2 {
		t.Errorf("ok delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("save", "error")) - errBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}
