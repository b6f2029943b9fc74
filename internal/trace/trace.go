// Package trace emits build progress events: spans around the driver,
// its phases and every unit, written as text or NDJSON.
//
// Tracing is off by default and a disabled tracer costs one interface call
// per span. Levels select how deep events go:
//
//	off    nothing
//	phase  build and phase boundaries
//	unit   plus one span per unit and phase
//	debug  everything, including cache hits
package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff Level = iota
	LevelPhase
	LevelUnit
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelPhase:
		return "phase"
	case LevelUnit:
		return "unit"
	case LevelDebug:
		return "debug"
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return LevelOff, nil
	case "phase":
		return LevelPhase, nil
	case "unit":
		return LevelUnit, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|phase|unit|debug)", s)
}

// Scope is the granularity of an event; lower is coarser.
type Scope uint8

const (
	ScopeBuild Scope = iota + 1
	ScopePhase
	ScopeUnit
	ScopeDetail
)

func (s Scope) String() string {
	switch s {
	case ScopeBuild:
		return "build"
	case ScopePhase:
		return "phase"
	case ScopeUnit:
		return "unit"
	case ScopeDetail:
		return "detail"
	}
	return "unknown"
}

// Allows reports whether events of scope pass at this level.
func (l Level) Allows(s Scope) bool {
	switch l {
	case LevelPhase:
		return s <= ScopePhase
	case LevelUnit:
		return s <= ScopeUnit
	case LevelDebug:
		return true
	}
	return false
}

// Kind is the type of an event.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Elapsed  time.Duration // только для KindEnd
}

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev Event)
	Level() Level
	Close() error
}

type nopTracer struct{}

func (nopTracer) Emit(Event) {}

func (nopTracer) Level() Level { return LevelOff }

func (nopTracer) Close() error { return nil }

// Nop discards everything.
var Nop Tracer = nopTracer{}

var (
	seq   atomic.Uint64
	spans atomic.Uint64
)

// Span is an open begin/end pair. A nil or disabled span is valid and
// does nothing.
type Span struct {
	t       Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
}

// Begin opens a span under parent (0 for a root).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Level().Allows(scope) {
		return nil
	}
	s := &Span{t: t, id: spans.Add(1), parent: parent, scope: scope, name: name, started: time.Now()}
	t.Emit(Event{Time: s.started, Seq: seq.Add(1), Kind: KindBegin, Scope: scope, SpanID: s.id, ParentID: parent, Name: name})
	return s
}

// End closes the span with an optional detail.
func (s *Span) End(detail string) {
	if s == nil {
		return
	}
	now := time.Now()
	s.t.Emit(Event{
		Time: now, Seq: seq.Add(1), Kind: KindEnd, Scope: s.scope,
		SpanID: s.id, ParentID: s.parent, Name: s.name, Detail: detail, Elapsed: now.Sub(s.started),
	})
}

// ID returns the span ID, 0 for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Level().Allows(scope) {
		return
	}
	t.Emit(Event{Time: time.Now(), Seq: seq.Add(1), Kind: KindPoint, Scope: scope, ParentID: parent, Name: name, Detail: detail})
}

// StreamTracer writes each event as it arrives.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	ndjson bool
}

// NewStreamTracer writes text, or NDJSON when ndjson is set.
func NewStreamTracer(w io.Writer, level Level, ndjson bool) *StreamTracer {
	return &StreamTracer{w: w, level: level, ndjson: ndjson}
}

// Emit writes ev; write errors are ignored so tracing never fails a build.
func (t *StreamTracer) Emit(ev Event) {
	if !t.level.Allows(ev.Scope) {
		return
	}
	data := formatText(ev)
	if t.ndjson {
		data = formatNDJSON(ev)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(data) //nolint:errcheck
}

func (t *StreamTracer) Level() Level { return t.level }

// Close closes the writer unless it is stdout or stderr.
func (t *StreamTracer) Close() error {
	if t.w == os.Stderr || t.w == os.Stdout {
		return nil
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	level  Level
	events []Event
}

func NewRecorder(level Level) *Recorder { return &Recorder{level: level} }

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) Level() Level { return r.level }

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Open creates a tracer writing to path ("-" or "" for stderr). A path
// ending in .ndjson selects NDJSON.
func Open(level Level, path string) (Tracer, error) {
	if level == LevelOff {
		return Nop, nil
	}
	ndjson := strings.HasSuffix(path, ".ndjson")
	if path == "" || path == "-" {
		return NewStreamTracer(os.Stderr, level, ndjson), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return NewStreamTracer(f, level, ndjson), nil
}

type ctxKey struct{}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}
