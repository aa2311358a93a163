// internal/services/poller.go
package services

import (
	"context"
	"sync"
	"time"
)

// ViewPoller reads a counter on a fixed interval until stopped. Results that come back
// after Stop are dropped.
type ViewPoller struct {
	reader     ViewReader
	resourceID string
	interval   time.Duration
	onUpdate   func(count int64)

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewViewPoller creates a poller. onUpdate runs on the polling goroutine while the
// poller lock is held, so it must not call Start or Stop.
func NewViewPoller(reader ViewReader, resourceID string, interval time.Duration, onUpdate func(count int64)) *ViewPoller {
	return &ViewPoller{
		reader:     reader,
		resourceID: resourceID,
		interval:   interval,
		onUpdate:   onUpdate,
	}
}

// Start begins polling immediately. Calling Start on a running poller is a no-op.
func (p *ViewPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	p.generation++
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.generation, p.done)
}

// Stop cancels polling and waits for the goroutine to exit.
func (p *ViewPoller) Stop() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.generation++
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *ViewPoller) run(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx, generation)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, generation)
		}
	}
}

func (p *ViewPoller) poll(ctx context.Context, generation uint64) {
	count, err := p.reader.Read(ctx, p.resourceID)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation || ctx.Err() != nil {
		return
	}
	p.onUpdate(count)
}
