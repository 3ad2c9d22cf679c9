/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

import (
	"context"
	"errors"
	"sync"

	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/abrekhov/edunet/pkg/transport"
)

// Barrier waits for candidate gathering to finish and collects the local
// candidates emitted meanwhile. Arm it before setting the local description
// so no candidate is missed.
type Barrier struct {
	t transport.Transport

	mu    sync.Mutex
	cands []signal.Candidate

	complete    chan struct{}
	once        sync.Once
	unsubscribe func()
}

// NewBarrier subscribes the barrier's transient listeners on t.
func NewBarrier(t transport.Transport) *Barrier {
	b := &Barrier{t: t, complete: make(chan struct{})}
	b.unsubscribe = t.Subscribe(transport.Observer{
		OnLocalCandidate: func(c signal.Candidate) {
			b.mu.Lock()
			b.cands = append(b.cands, c)
			b.mu.Unlock()
		},
		OnGatheringStateChange: func(s transport.GatheringState) {
			if s == transport.GatheringComplete {
				b.resolve()
			}
		},
	})
	return b
}

func (b *Barrier) resolve() {
	b.once.Do(func() { close(b.complete) })
}

// Wait blocks until gathering completed, ctx is cancelled or done is
// closed, then returns the final local description and the collected
// candidates. The listeners are removed on every path.
func (b *Barrier) Wait(ctx context.Context, done <-chan struct{}) (signal.SessionDescription, []signal.Candidate, error) {
	defer b.Release()

	if b.t.GatheringState() == transport.GatheringComplete {
		b.resolve()
	}
	select {
	case <-b.complete:
	case <-ctx.Done():
		return signal.SessionDescription{}, nil, ctx.Err()
	case <-done:
		return signal.SessionDescription{}, nil, ErrSessionClosed
	}

	desc, ok := b.t.LocalDescription()
	if !ok {
		return signal.SessionDescription{}, nil, errors.New("no local description after gathering")
	}
	b.mu.Lock()
	cands := append([]signal.Candidate{}, b.cands...)
	b.mu.Unlock()
	return desc, cands, nil
}

// Release removes the listeners. It is safe to call more than once.
func (b *Barrier) Release() {
	b.unsubscribe()
}

// AwaitGatheringComplete returns the local description of t once gathering
// completed, immediately if it already has.
func AwaitGatheringComplete(ctx context.Context, t transport.Transport) (signal.SessionDescription, error) {
	desc, _, err := NewBarrier(t).Wait(ctx, nil)
	return desc, err
}
