package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull keeps session writes and guard checks from waiting on a slow
	// sink. Dropped events are tallied per event type.
	DropIfFull bool
}

// Dispatcher hands session lifecycle events to a sink on one worker
// goroutine, so sinks see events in emit order. A nil *Dispatcher accepts
// and discards every event.
type Dispatcher struct {
	cfg    Config
	sink   Sink
	queue  chan Event
	stop   chan struct{}
	worker sync.WaitGroup

	closing  atomic.Bool
	stopOnce sync.Once

	dropMu    sync.Mutex
	dropTotal uint64
	dropByEvt map[string]uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:       cfg,
		sink:      sink,
		queue:     make(chan Event, cfg.BufferSize),
		stop:      make(chan struct{}),
		dropByEvt: make(map[string]uint64),
	}
	d.worker.Add(1)
	go d.deliver()
	return d
}

// deliver forwards queued events until Close, then flushes what is left.
func (d *Dispatcher) deliver() {
	defer d.worker.Done()

	ctx := context.Background()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.sink.Emit(ctx, event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues event. With DropIfFull a full buffer records a drop against
// event.EventType instead of blocking; otherwise Emit waits for space, ctx,
// or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.recordDrop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

func (d *Dispatcher) recordDrop(eventType string) {
	d.dropMu.Lock()
	d.dropTotal++
	d.dropByEvt[eventType]++
	d.dropMu.Unlock()
}

// Close stops the worker after delivering everything already queued.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Dropped returns how many events were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	return d.dropTotal
}

// DroppedByType returns a copy of the drop counts keyed by event type, e.g.
// how many session_rejected events a burst of bad tickets pushed out.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	for k, v := range d.dropByEvt {
		out[k] = v
	}
	return out
}
