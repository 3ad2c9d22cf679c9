/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package transport

import (
	"sync"

	"github.com/abrekhov/edunet/pkg/signal"
)

type subscription struct {
	id  uint64
	obs Observer
}

// Emitter fans transport signals out to any number of observers. Observers
// are called in subscription order and outside the emitter lock, so a
// callback may unsubscribe itself.
type Emitter struct {
	mu   sync.Mutex
	next uint64
	subs []subscription
}

// Subscribe registers o. The returned function is safe to call more than once.
func (e *Emitter) Subscribe(o Observer) func() {
	e.mu.Lock()
	e.next++
	id := e.next
	e.subs = append(e.subs, subscription{id: id, obs: o})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns how many observers are registered.
func (e *Emitter) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Emitter) snapshot() []Observer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Observer, len(e.subs))
	for i, s := range e.subs {
		out[i] = s.obs
	}
	return out
}

func (e *Emitter) EmitGatheringState(s GatheringState) {
	for _, o := range e.snapshot() {
		if o.OnGatheringStateChange != nil {
			o.OnGatheringStateChange(s)
		}
	}
}

func (e *Emitter) EmitLocalCandidate(c signal.Candidate) {
	for _, o := range e.snapshot() {
		if o.OnLocalCandidate != nil {
			o.OnLocalCandidate(c)
		}
	}
}

func (e *Emitter) EmitConnectionState(s ConnectionState) {
	for _, o := range e.snapshot() {
		if o.OnConnectionStateChange != nil {
			o.OnConnectionStateChange(s)
		}
	}
}

func (e *Emitter) EmitNegotiationNeeded() {
	for _, o := range e.snapshot() {
		if o.OnNegotiationNeeded != nil {
			o.OnNegotiationNeeded()
		}
	}
}

func (e *Emitter) EmitChannelOpen() {
	for _, o := range e.snapshot() {
		if o.OnChannelOpen != nil {
			o.OnChannelOpen()
		}
	}
}

func (e *Emitter) EmitChannelMessage(data []byte) {
	for _, o := range e.snapshot() {
		if o.OnChannelMessage != nil {
			o.OnChannelMessage(data)
		}
	}
}

func (e *Emitter) EmitChannelClose() {
	for _, o := range e.snapshot() {
		if o.OnChannelClose != nil {
			o.OnChannelClose()
		}
	}
}

func (e *Emitter) EmitRemoteTrack(kind, id string) {
	for _, o := range e.snapshot() {
		if o.OnRemoteTrack != nil {
			o.OnRemoteTrack(kind, id)
		}
	}
}
