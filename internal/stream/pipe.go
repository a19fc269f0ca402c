package stream

import (
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"

	"lucidify/internal/domain"
)

// ErrClosed is returned by Emit once the consumer has gone away.
var ErrClosed = errors.New("stream: consumer gone")

// Emitter receives a job's events in order.
type Emitter interface {
	Emit(ev domain.Event) error
}

// Submitter runs tasks on a bounded worker pool. *ants.Pool satisfies it.
type Submitter interface {
	Submit(task func()) error
}

// Pipe hands events from the job goroutine to the handler goroutine. The
// producer closes it; the consumer reads Events until it is closed.
type Pipe struct {
	events      chan domain.Event
	gone        chan struct{}
	closeOnce   sync.Once
	abandonOnce sync.Once
}

func NewPipe(buffer int) *Pipe {
	if buffer < 0 {
		buffer = 0
	}
	return &Pipe{
		events: make(chan domain.Event, buffer),
		gone:   make(chan struct{}),
	}
}

func (p *Pipe) Emit(ev domain.Event) error {
	select {
	case <-p.gone:
		return ErrClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	case <-p.gone:
		return ErrClosed
	}
}

// Events is the consumer side.
func (p *Pipe) Events() <-chan domain.Event {
	return p.events
}

// Close ends the stream. Only the producer calls it.
func (p *Pipe) Close() {
	p.closeOnce.Do(func() { close(p.events) })
}

// Abandon unblocks the producer after the consumer stopped writing.
func (p *Pipe) Abandon() {
	p.abandonOnce.Do(func() { close(p.gone) })
}

// Start runs produce on pool and returns the pipe it writes to. The pipe is
// closed when produce returns. A saturated pool yields domain.ErrPoolSaturated.
func Start(pool Submitter, buffer int, produce func(Emitter)) (*Pipe, error) {
	pipe := NewPipe(buffer)
	err := pool.Submit(func() {
		defer pipe.Close()
		produce(pipe)
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			return nil, domain.ErrPoolSaturated
		}
		return nil, err
	}
	return pipe, nil
}

// Drain writes every event to w until the producer closes the pipe. After a
// write failure the remaining events are discarded.
func Drain(pipe *Pipe, w interface{ Write(domain.Event) error }) error {
	var writeErr error
	for ev := range pipe.Events() {
		if writeErr != nil {
			continue
		}
		if err := w.Write(ev); err != nil {
			writeErr = err
			pipe.Abandon()
		}
	}
	return writeErr
}

// Collector keeps every event in memory. The sync endpoint and tests use it.
type Collector struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *Collector) Emit(ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *Collector) Events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Terminal returns the last COMPLETE or ERROR event.
func (c *Collector) Terminal() (domain.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Kind.Terminal() {
			return c.events[i], true
		}
	}
	return domain.Event{}, false
}

var (
	_ Emitter   = (*Pipe)(nil)
	_ Emitter   = (*Collector)(nil)
	_ Submitter = (*ants.Pool)(nil)
)
