package vm

import (
	"sync"
	"testing"
)

func TestProfilerMethodInvocation(t *testing.T) {
	p := NewProfiler()
	p.MethodHotThreshold = 5

	method := NewMethod(NewModule("M"), "test", nil, nil)

	// First invocation
	becameHot := p.RecordMethodInvocation(method)
	if becameHot {
		t.Error("Method should not be hot after 1 invocation")
	}

	profile := p.GetMethodProfile(method)
	if profile == nil {
		t.Fatal("Profile should exist after invocation")
	}
	if profile.InvocationCount.Load() != 1 {
		t.Errorf("Expected 1 invocation, got %d", profile.InvocationCount.Load())
	}

	for i := 0; i < 4; i++ {
		becameHot = p.RecordMethodInvocation(method)
	}

	// Should become hot at exactly threshold
	if !becameHot {
		t.Error("Method should become hot at threshold")
	}
	if !p.IsMethodHot(method) {
		t.Error("IsMethodHot should return true")
	}

	// Additional invocations should not re-trigger hot
	if p.RecordMethodInvocation(method) {
		t.Error("Method should not re-trigger hot")
	}
}

func TestProfilerBodyInvocation(t *testing.T) {
	p := NewProfiler()
	p.BodyHotThreshold = 3

	var hot []any
	p.OnHot = func(code any) { hot = append(hot, code) }

	body := NewInterpretedBody(nil, nil, nil)
	for i := 0; i < 10; i++ {
		p.RecordBodyInvocation(body)
	}

	if !p.IsBodyHot(body) {
		t.Error("IsBodyHot should return true")
	}
	if len(hot) != 1 || hot[0] != body {
		t.Errorf("OnHot called %d times, want once with the body", len(hot))
	}
	if _, bodies := p.HotCount(); bodies != 1 {
		t.Errorf("hot bodies = %d, want 1", bodies)
	}
}

func TestProfilerNilSafe(t *testing.T) {
	var p *Profiler
	if p.RecordBodyInvocation(NewInterpretedBody(nil, nil, nil)) {
		t.Error("nil profiler should record nothing")
	}
	if NewProfiler().RecordMethodInvocation(nil) {
		t.Error("nil method should record nothing")
	}
}

func TestProfilerConcurrent(t *testing.T) {
	p := NewProfiler()
	p.BodyHotThreshold = 100

	var mu sync.Mutex
	calls := 0
	p.OnHot = func(any) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	body := NewInterpretedBody(nil, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.RecordBodyInvocation(body)
			}
		}()
	}
	wg.Wait()

	if got := p.GetBodyProfile(body).InvocationCount.Load(); got != 1000 {
		t.Errorf("Expected 1000 invocations, got %d", got)
	}
	if calls != 1 {
		t.Errorf("OnHot called %d times, want 1", calls)
	}
}

func TestProfilerStats(t *testing.T) {
	p := NewProfiler()
	p.MethodHotThreshold = 2

	a := NewMethod(NewModule("M"), "a", nil, nil)
	b := NewMethod(NewModule("M"), "b", nil, nil)
	for i := 0; i < 3; i++ {
		p.RecordMethodInvocation(a)
	}
	p.RecordMethodInvocation(b)
	p.RecordBodyInvocation(NewInterpretedBody(nil, nil, nil))

	stats := p.Stats()
	if stats.TotalMethods != 2 || stats.HotMethods != 1 || stats.MethodInvocations != 4 {
		t.Errorf("method stats = %+v", stats)
	}
	if stats.TotalBodies != 1 || stats.BodyInvocations != 1 {
		t.Errorf("body stats = %+v", stats)
	}

	top := p.TopMethods(5)
	if len(top) != 2 || top[0] != a {
		t.Errorf("TopMethods = %v, want a first", top)
	}

	p.Reset()
	if p.Stats().TotalMethods != 0 || p.GetMethodProfile(a) != nil {
		t.Error("Reset should clear all profiles")
	}
}
