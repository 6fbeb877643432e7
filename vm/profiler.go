package vm

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Profiler counts method activations and mixed mode block body invocations
// to find hot code worth compiling. Bodies are profiled per body, not per
// call site.

// MethodProfile holds profiling data for a single method.
type MethodProfile struct {
	InvocationCount atomic.Uint64
	hot             atomic.Bool
}

// IsHot reports whether the threshold was reached.
func (p *MethodProfile) IsHot() bool { return p.hot.Load() }

// BodyProfile holds profiling data for a single block body.
type BodyProfile struct {
	InvocationCount atomic.Uint64
	hot             atomic.Bool
}

// IsHot reports whether the threshold was reached.
func (p *BodyProfile) IsHot() bool { return p.hot.Load() }

// Profiler manages profiles for all methods and bodies of a runtime.
type Profiler struct {
	methodProfiles sync.Map // *Method -> *MethodProfile
	bodyProfiles   sync.Map // *BlockBody -> *BodyProfile

	MethodHotThreshold uint64
	BodyHotThreshold   uint64

	// OnHot is called once per method or body, with *Method or *BlockBody,
	// on the goroutine whose invocation crossed the threshold.
	OnHot func(code any)

	hotMethodCount atomic.Uint64
	hotBodyCount   atomic.Uint64
}

// NewProfiler creates a profiler with default thresholds.
func NewProfiler() *Profiler {
	return &Profiler{
		MethodHotThreshold: 100,
		BodyHotThreshold:   500,
	}
}

// RecordMethodInvocation counts one activation of m. It returns true for
// the invocation that made m hot.
func (p *Profiler) RecordMethodInvocation(m *Method) bool {
	if p == nil || m == nil {
		return false
	}
	val, _ := p.methodProfiles.LoadOrStore(m, &MethodProfile{})
	profile := val.(*MethodProfile)
	count := profile.InvocationCount.Add(1)
	if count >= p.MethodHotThreshold && profile.hot.CompareAndSwap(false, true) {
		p.hotMethodCount.Add(1)
		if p.OnHot != nil {
			p.OnHot(m)
		}
		return true
	}
	return false
}

// RecordBodyInvocation counts one invocation of body. It returns true for
// the invocation that made body hot.
func (p *Profiler) RecordBodyInvocation(body *BlockBody) bool {
	if p == nil || body == nil {
		return false
	}
	val, _ := p.bodyProfiles.LoadOrStore(body, &BodyProfile{})
	profile := val.(*BodyProfile)
	count := profile.InvocationCount.Add(1)
	if count >= p.BodyHotThreshold && profile.hot.CompareAndSwap(false, true) {
		p.hotBodyCount.Add(1)
		if p.OnHot != nil {
			p.OnHot(body)
		}
		return true
	}
	return false
}

// GetMethodProfile returns the profile of m, or nil if m was never invoked.
func (p *Profiler) GetMethodProfile(m *Method) *MethodProfile {
	if val, ok := p.methodProfiles.Load(m); ok {
		return val.(*MethodProfile)
	}
	return nil
}

// GetBodyProfile returns the profile of body, or nil if it was never invoked.
func (p *Profiler) GetBodyProfile(body *BlockBody) *BodyProfile {
	if val, ok := p.bodyProfiles.Load(body); ok {
		return val.(*BodyProfile)
	}
	return nil
}

func (p *Profiler) IsMethodHot(m *Method) bool {
	profile := p.GetMethodProfile(m)
	return profile != nil && profile.IsHot()
}

func (p *Profiler) IsBodyHot(body *BlockBody) bool {
	profile := p.GetBodyProfile(body)
	return profile != nil && profile.IsHot()
}

// ProfilerStats holds aggregate profiling statistics.
type ProfilerStats struct {
	TotalMethods      int
	TotalBodies       int
	HotMethods        int
	HotBodies         int
	MethodInvocations uint64
	BodyInvocations   uint64
}

// Stats returns aggregate profiling statistics.
func (p *Profiler) Stats() ProfilerStats {
	var stats ProfilerStats
	p.methodProfiles.Range(func(_, value any) bool {
		profile := value.(*MethodProfile)
		stats.TotalMethods++
		stats.MethodInvocations += profile.InvocationCount.Load()
		if profile.IsHot() {
			stats.HotMethods++
		}
		return true
	})
	p.bodyProfiles.Range(func(_, value any) bool {
		profile := value.(*BodyProfile)
		stats.TotalBodies++
		stats.BodyInvocations += profile.InvocationCount.Load()
		if profile.IsHot() {
			stats.HotBodies++
		}
		return true
	})
	return stats
}

// TopMethods returns the n most frequently invoked methods.
func (p *Profiler) TopMethods(n int) []*Method {
	type entry struct {
		m     *Method
		count uint64
	}
	var all []entry
	p.methodProfiles.Range(func(key, value any) bool {
		all = append(all, entry{key.(*Method), value.(*MethodProfile).InvocationCount.Load()})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].count > all[j].count })
	if n > len(all) {
		n = len(all)
	}
	out := make([]*Method, n)
	for i := range out {
		out[i] = all[i].m
	}
	return out
}

// Reset clears all profiling data.
func (p *Profiler) Reset() {
	p.methodProfiles.Range(func(key, _ any) bool {
		p.methodProfiles.Delete(key)
		return true
	})
	p.bodyProfiles.Range(func(key, _ any) bool {
		p.bodyProfiles.Delete(key)
		return true
	})
	p.hotMethodCount.Store(0)
	p.hotBodyCount.Store(0)
}

// HotCount returns how many methods and bodies have become hot.
func (p *Profiler) HotCount() (methods, bodies uint64) {
	return p.hotMethodCount.Load(), p.hotBodyCount.Load()
}
