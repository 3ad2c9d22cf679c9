/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package transfer

import (
	"fmt"
	"sync"
	"time"
)

// State is the state of a received file.
type State int

const (
	// StateReceived indicates the file is held in memory.
	StateReceived State = iota
	// StateSaved indicates the file was written to disk.
	StateSaved
	// StateFailed indicates saving failed.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateSaved:
		return "saved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one file in an Inbox.
type Entry struct {
	File       *File
	ReceivedAt time.Time
	State      State
	Path       string
	Err        error
}

// Inbox keeps the files received during a session, numbered from 1 in
// arrival order.
type Inbox struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewInbox creates an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Add stores f and returns its number.
func (in *Inbox) Add(f *File) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.entries = append(in.entries, &Entry{File: f, ReceivedAt: time.Now(), State: StateReceived})
	return len(in.entries)
}

// List returns a snapshot of all entries.
func (in *Inbox) List() []Entry {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]Entry, len(in.entries))
	for i, e := range in.entries {
		out[i] = *e
	}
	return out
}

// Save writes entry n into dir and records the outcome.
func (in *Inbox) Save(n int, dir string) (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if n < 1 || n > len(in.entries) {
		return "", fmt.Errorf("no file #%d, inbox has %d", n, len(in.entries))
	}
	e := in.entries[n-1]
	path, err := e.File.Save(dir)
	if err != nil {
		e.State, e.Err = StateFailed, err
		return "", err
	}
	e.State, e.Path, e.Err = StateSaved, path, nil
	return path, nil
}
