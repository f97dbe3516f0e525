package dispatch

import (
	"strings"
	"sync"
	"testing"
)

func TestResult_OK(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected bool
	}{
		{"returned", Result{}, true},
		{"panicked", Result{Panicked: true, PanicValue: "boom"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.OK(); got != tt.expected {
				t.Errorf("OK() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExecutor_Run(t *testing.T) {
	e := NewExecutor()

	called := false
	result := e.Run(func() { called = true })

	if !called {
		t.Error("expected callback to be called")
	}
	if !result.OK() {
		t.Errorf("expected OK result, got %+v", result)
	}
	if result.Duration < 0 {
		t.Errorf("expected non-negative duration, got %v", result.Duration)
	}
}

func TestExecutor_RunRecoversPanic(t *testing.T) {
	var gotValue any
	var gotStack []byte
	e := NewExecutor(WithPanicHandler(func(v any, stack []byte) {
		gotValue = v
		gotStack = stack
	}))

	result := e.Run(func() { panic("boom") })

	if !result.Panicked {
		t.Fatal("expected Panicked to be true")
	}
	if result.PanicValue != "boom" {
		t.Errorf("PanicValue = %v, want boom", result.PanicValue)
	}
	if len(result.PanicStack) == 0 {
		t.Error("expected stack to be captured")
	}
	if gotValue != "boom" {
		t.Errorf("panic handler got %v, want boom", gotValue)
	}
	if !strings.Contains(string(gotStack), "goroutine") {
		t.Error("expected panic handler to receive a goroutine stack")
	}
}

func TestExecutor_PanickingPanicHandler(t *testing.T) {
	e := NewExecutor(WithPanicHandler(func(any, []byte) {
		panic("handler failed")
	}))

	result := e.Run(func() { panic("boom") })

	if !result.Panicked {
		t.Error("expected Panicked to be true")
	}
}

func TestExecutor_Stats(t *testing.T) {
	e := NewExecutor()

	e.Run(func() {})
	e.Run(func() {})
	e.Run(func() { panic("x") })

	stats := e.Stats()
	if stats.Runs != 3 {
		t.Errorf("Runs = %d, want 3", stats.Runs)
	}
	if stats.Panics != 1 {
		t.Errorf("Panics = %d, want 1", stats.Panics)
	}
	if stats.AvgDuration > stats.TotalDuration {
		t.Errorf("AvgDuration %v exceeds TotalDuration %v", stats.AvgDuration, stats.TotalDuration)
	}
}

func TestExecutor_Concurrent(t *testing.T) {
	e := NewExecutor()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Run(func() {})
		}()
	}
	wg.Wait()

	if got := e.Stats().Runs; got != 50 {
		t.Errorf("Runs = %d, want 50", got)
	}
}
