package vm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
)

// JITCompiler promotes hot mixed mode block bodies to their compiled form.
// The profiler reports hot bodies; promotion runs on a background worker
// or, with Background off, on the goroutine that made the body hot.
type JITCompiler struct {
	profiler *Profiler
	log      commonlog.Logger

	pending chan *BlockBody
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once

	mu       sync.Mutex
	inFlight map[*BlockBody]bool
	failed   map[*BlockBody]error

	bodiesPromoted  atomic.Uint64
	promotionErrors atomic.Uint64
	dropped         atomic.Uint64
	compilationTime atomic.Int64 // nanoseconds

	Enabled    bool
	Background bool
}

// NewJITCompiler connects a JIT to profiler. With background set a worker
// goroutine drains a queue of size queue; call Stop to end it.
func NewJITCompiler(profiler *Profiler, background bool, queue int) *JITCompiler {
	if queue <= 0 {
		queue = 100
	}
	jit := &JITCompiler{
		profiler:   profiler,
		log:        commonlog.GetLogger("yield.jit"),
		pending:    make(chan *BlockBody, queue),
		done:       make(chan struct{}),
		inFlight:   make(map[*BlockBody]bool),
		failed:     make(map[*BlockBody]error),
		Enabled:    true,
		Background: background,
	}
	if profiler != nil {
		profiler.OnHot = jit.onHotCode
	}
	if background {
		jit.wg.Add(1)
		go jit.compilationWorker()
	}
	return jit
}

// onHotCode is called by the profiler when code becomes hot.
func (jit *JITCompiler) onHotCode(code any) {
	if !jit.Enabled {
		return
	}
	switch c := code.(type) {
	case *BlockBody:
		if c.kind == BodyMixed {
			jit.queueBody(c)
		}
	case *Method:
		jit.log.Debugf("hot method %s#%s", moduleName(c.module), c.name)
	}
}

func moduleName(m *Module) string {
	if m == nil {
		return "?"
	}
	return m.Name
}

// queueBody schedules body for promotion.
func (jit *JITCompiler) queueBody(body *BlockBody) {
	jit.mu.Lock()
	if jit.inFlight[body] || body.IsPromoted() {
		jit.mu.Unlock()
		return
	}
	jit.inFlight[body] = true
	jit.mu.Unlock()

	if !jit.Background {
		jit.promote(body)
		return
	}
	select {
	case jit.pending <- body:
	default:
		// Queue full. The body stays interpreted.
		jit.dropped.Add(1)
		jit.mu.Lock()
		delete(jit.inFlight, body)
		jit.mu.Unlock()
	}
}

// compilationWorker processes the queue in the background.
func (jit *JITCompiler) compilationWorker() {
	defer jit.wg.Done()
	for {
		select {
		case body := <-jit.pending:
			jit.promote(body)
		case <-jit.done:
			return
		}
	}
}

func (jit *JITCompiler) promote(body *BlockBody) {
	start := time.Now()
	err := body.Promote()
	jit.compilationTime.Add(int64(time.Since(start)))

	jit.mu.Lock()
	delete(jit.inFlight, body)
	if err != nil {
		jit.failed[body] = err
	}
	jit.mu.Unlock()

	if err != nil {
		jit.promotionErrors.Add(1)
		jit.log.Warningf("promotion of block body at %s:%d failed: %s", body.file, body.line, err)
		return
	}
	jit.bodiesPromoted.Add(1)
	jit.log.Debugf("promoted block body at %s:%d", body.file, body.line)
}

// Drain waits until queued bodies have been promoted or timeout passes. It
// reports whether the queue emptied.
func (jit *JITCompiler) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		jit.mu.Lock()
		busy := len(jit.inFlight)
		jit.mu.Unlock()
		if busy == 0 {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// Failure returns the promotion error recorded for body.
func (jit *JITCompiler) Failure(body *BlockBody) error {
	jit.mu.Lock()
	defer jit.mu.Unlock()
	return jit.failed[body]
}

// JITStats holds JIT statistics.
type JITStats struct {
	BodiesPromoted  uint64
	PromotionErrors uint64
	Dropped         uint64
	CompilationTime time.Duration
	QueueLength     int
}

// Stats returns JIT statistics.
func (jit *JITCompiler) Stats() JITStats {
	return JITStats{
		BodiesPromoted:  jit.bodiesPromoted.Load(),
		PromotionErrors: jit.promotionErrors.Load(),
		Dropped:         jit.dropped.Load(),
		CompilationTime: time.Duration(jit.compilationTime.Load()),
		QueueLength:     len(jit.pending),
	}
}

// Stop ends the background worker. Queued bodies stay interpreted.
func (jit *JITCompiler) Stop() {
	jit.stop.Do(func() {
		close(jit.done)
	})
	jit.wg.Wait()
}
