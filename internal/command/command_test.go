package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDispatchOrder(t *testing.T) {
	r := NewRegistry()
	var calls []string
	add := func(name string, p Priority, stop bool) {
		r.Register("cmd", p, func(any) bool {
			calls = append(calls, name)
			return stop
		})
	}
	add("editor", PriorityEditor, false)
	add("high", PriorityHigh, false)
	add("normal-1", PriorityNormal, false)
	add("normal-2", PriorityNormal, false)
	add("critical", PriorityCritical, false)

	if r.Dispatch("cmd", nil) {
		t.Error("expected unhandled dispatch")
	}
	want := []string{"critical", "high", "normal-1", "normal-2", "editor"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchStopsPropagation(t *testing.T) {
	r := NewRegistry()
	var low bool
	r.Register("cmd", PriorityLow, func(any) bool {
		low = true
		return true
	})
	r.Register("cmd", PriorityHigh, func(p any) bool {
		return p == "stop"
	})

	if !r.Dispatch("cmd", "stop") {
		t.Error("expected handled")
	}
	if low {
		t.Error("expected lower priority handler not to run")
	}
	if !r.Dispatch("cmd", "go") || !low {
		t.Error("expected fall through to low priority handler")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	unregister := r.Register("cmd", PriorityNormal, func(any) bool { return true })
	if !r.Has("cmd") {
		t.Fatal("expected handler registered")
	}
	unregister()
	unregister()
	if r.Has("cmd") || r.Dispatch("cmd", nil) {
		t.Error("expected handler removed")
	}
	if len(r.Names()) != 0 {
		t.Errorf("expected no names, got %v", r.Names())
	}
}

func TestHandlerMayRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("outer", PriorityNormal, func(any) bool {
		r.Register("inner", PriorityNormal, func(any) bool { return true })
		return r.Dispatch("inner", nil)
	})
	if !r.Dispatch("outer", nil) {
		t.Error("expected nested dispatch to be handled")
	}
}

func TestParsePriority(t *testing.T) {
	for p := PriorityEditor; p <= PriorityCritical; p++ {
		got, ok := ParsePriority(p.String())
		if !ok || got != p {
			t.Errorf("expected %v, got %v (%v)", p, got, ok)
		}
	}
	if _, ok := ParsePriority("urgent"); ok {
		t.Error("expected unknown priority rejected")
	}
}
