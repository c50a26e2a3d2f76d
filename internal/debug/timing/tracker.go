// Package timing records per-stage durations of the capture pipeline.
package timing

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is how many recent samples are kept per stage.
const DefaultWindow = 256

type timingKey struct{}

type span struct {
	stage string
	start time.Time
}

// Observer is told about every completed span.
type Observer interface {
	Observe(stage string, d time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(stage string, d time.Duration)

func (f ObserverFunc) Observe(stage string, d time.Duration) { f(stage, d) }

// Tracker keeps a sliding window of durations per stage. It is safe for
// concurrent use; the HTTP server shares one Tracker across requests.
type Tracker struct {
	mu       sync.RWMutex
	samples  map[string][]time.Duration
	window   int
	observer Observer
	enabled  bool
	now      func() time.Time
}

// NewTracker returns an enabled Tracker. observer may be nil.
func NewTracker(window int, observer Observer) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		samples:  make(map[string][]time.Duration),
		window:   window,
		observer: observer,
		enabled:  true,
		now:      time.Now,
	}
}

// Start marks the beginning of stage and returns a context carrying the
// span. Pass it to End.
func (t *Tracker) Start(ctx context.Context, stage string) context.Context {
	if !t.Enabled() {
		return ctx
	}
	return context.WithValue(ctx, timingKey{}, span{stage: stage, start: t.now()})
}

// End closes the span opened by Start and records its duration. It returns
// zero if ctx carries no span.
func (t *Tracker) End(ctx context.Context) time.Duration {
	s, ok := ctx.Value(timingKey{}).(span)
	if !ok {
		return 0
	}
	d := t.now().Sub(s.start)
	t.Record(s.stage, d)
	return d
}

// Time runs fn as stage.
func (t *Tracker) Time(ctx context.Context, stage string, fn func() error) error {
	sctx := t.Start(ctx, stage)
	defer t.End(sctx)
	return fn()
}

// Record adds a sample for stage.
func (t *Tracker) Record(stage string, d time.Duration) {
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return
	}
	s := append(t.samples[stage], d)
	if len(s) > t.window {
		s = s[len(s)-t.window:]
	}
	t.samples[stage] = s
	observer := t.observer
	t.mu.Unlock()

	if observer != nil {
		observer.Observe(stage, d)
	}
}

// Samples returns a copy of the recorded durations for stage, oldest first.
func (t *Tracker) Samples(stage string) []time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.samples[stage]
	if s == nil {
		return nil
	}
	out := make([]time.Duration, len(s))
	copy(out, s)
	return out
}

// Average returns the mean duration of stage, or zero with no samples.
func (t *Tracker) Average(stage string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return mean(t.samples[stage])
}

// Averages returns the mean duration of every stage seen so far.
func (t *Tracker) Averages() map[string]time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]time.Duration, len(t.samples))
	for stage, s := range t.samples {
		out[stage] = mean(s)
	}
	return out
}

func (t *Tracker) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Reset drops the samples of stage, or of every stage when stage is empty.
func (t *Tracker) Reset(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stage == "" {
		t.samples = make(map[string][]time.Duration)
		return
	}
	delete(t.samples, stage)
}

func mean(s []time.Duration) time.Duration {
	if len(s) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s))
}
