package metrics

import (
	"sort"
	"sync"
	"time"

	"bitmapadapter/internal/log"
)

// EventType names the pipeline operation an event belongs to.
type EventType string

const (
	EventConvertResolution1 EventType = "convert_resolution1"
	EventImportBitmap       EventType = "import_bitmap"
	EventImportBackdrop     EventType = "import_backdrop"
	EventChangeBackdrop     EventType = "change_backdrop"
	EventAdaptStageSizes    EventType = "adapt_stage_sizes"
	EventDataURIToFile      EventType = "data_uri_to_file"
)

// Counter holds the outcome counts of one operation.
type Counter struct {
	Succeeded int64         `json:"succeeded"`
	Failed    int64         `json:"failed"`
	TotalTime time.Duration `json:"totalTime"`
}

// Stats is a snapshot of all counters.
type Stats struct {
	Since      time.Time             `json:"since"`
	Operations map[EventType]Counter `json:"operations"`
}

// Names returns the recorded event types in sorted order.
func (s Stats) Names() []EventType {
	names := make([]EventType, 0, len(s.Operations))
	for name := range s.Operations {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Logger records pipeline outcomes in memory.
type Logger struct {
	mu       sync.Mutex
	since    time.Time
	counters map[EventType]*Counter
}

// New creates a new metrics logger
func New() *Logger {
	return &Logger{
		since:    time.Now().UTC(),
		counters: make(map[EventType]*Counter),
	}
}

// LogEvent records one outcome of eventType. A non-nil err counts as a failure.
func (l *Logger) LogEvent(eventType EventType, took time.Duration, err error) {
	l.mu.Lock()
	c, ok := l.counters[eventType]
	if !ok {
		c = &Counter{}
		l.counters[eventType] = c
	}
	if err != nil {
		c.Failed++
	} else {
		c.Succeeded++
	}
	c.TotalTime += took
	l.mu.Unlock()

	if err != nil {
		log.Debug("metrics: %s failed after %s: %v", eventType, took, err)
	}
}

// Track returns a func that records eventType with the time elapsed since
// Track was called.
//
//	done := m.Track(metrics.EventImportBitmap)
//	out, err := adapter.ImportBitmap(ctx, in)
//	done(err)
func (l *Logger) Track(eventType EventType) func(error) {
	start := time.Now()
	return func(err error) {
		l.LogEvent(eventType, time.Since(start), err)
	}
}

// Stats returns a copy of the current counters.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{Since: l.since, Operations: make(map[EventType]Counter, len(l.counters))}
	for name, c := range l.counters {
		s.Operations[name] = *c
	}
	return s
}
