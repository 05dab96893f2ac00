// Package pipeline drives the staged generation run: the orchestrator
// walks the six stages in order through the retry controller, validates
// and condenses every output, persists snapshots for resumability, and
// finishes with the merge engine, the quality scorer, and one
// synchronous final save.
//
// The orchestrator's public contract is to always return a Result and
// never unwind with an error: every failure mode is captured in the
// result's errors and warnings.
package pipeline

import (
	"log"
	"sync"
	"time"

	"github.com/HendryAvila/specforge/internal/stages"
)

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now

// --- Progress events ---

// EventStatus is the progress state an event reports.
type EventStatus string

const (
	EventProcessing EventStatus = "processing"
	EventComplete   EventStatus = "complete"
	EventError      EventStatus = "error"
)

// Event is one progress notification. Observers (UI, logs) consume
// these instead of parsing log text; tests assert on them directly.
type Event struct {
	Stage     stages.Stage `json:"stage,omitempty"` // empty for pipeline-level events
	Status    EventStatus  `json:"status"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// Sink receives progress events. Delivery is best-effort: a sink must
// return quickly and must never block pipeline progress — wrap slow
// consumers in NewAsync.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }

// NullSink discards all events.
type NullSink struct{}

// Emit implements Sink.
func (NullSink) Emit(Event) {}

// LogSink writes events to a standard logger. The server wires it to
// stderr, since stdout carries the MCP transport.
type LogSink struct {
	Logger *log.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(e Event) {
	if s.Logger == nil {
		return
	}
	if e.Stage == "" {
		s.Logger.Printf("pipeline %s: %s", e.Status, e.Message)
		return
	}
	s.Logger.Printf("stage %s %s: %s", e.Stage, e.Status, e.Message)
}

// --- Async delivery ---

// Async decouples a slow sink from the pipeline: events go into a
// buffered channel drained by one goroutine, and are dropped when the
// buffer is full rather than ever blocking the caller.
type Async struct {
	ch   chan Event
	wg   sync.WaitGroup
	once sync.Once
}

// NewAsync wraps next in an Async sink with the given buffer size.
// Close must be called to drain and stop the worker.
func NewAsync(next Sink, buffer int) *Async {
	if buffer <= 0 {
		buffer = 64
	}
	a := &Async{ch: make(chan Event, buffer)}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for e := range a.ch {
			next.Emit(e)
		}
	}()
	return a
}

// Emit implements Sink. It never blocks; events are dropped when the
// buffer is full.
func (a *Async) Emit(e Event) {
	select {
	case a.ch <- e:
	default:
	}
}

// Close stops accepting events and waits for the worker to drain.
func (a *Async) Close() {
	a.once.Do(func() { close(a.ch) })
	a.wg.Wait()
}

// --- Test support ---

// Recorder is a Sink that stores every event, for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
