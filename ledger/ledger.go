// Package ledger records the outcome of handshake attempts, keyed by the
// peer's host:port address. A later attempt against the same address
// overwrites the earlier entry; no history is kept.
package ledger

import (
	"errors"
	"sync"
	"time"
)

// Results recorded for an attempt.
const (
	ResultCompleted = "completed"
	ResultTimedOut  = "timed_out"
	ResultFailed    = "failed"
)

// ErrNotFound reports a peer address that was never attempted.
var ErrNotFound = errors.New("ledger: entry not found")

// Entry is the recorded outcome of one concluded handshake attempt.
type Entry struct {
	Result  string    `cbor:"1,keyasint"`
	Reason  string    `cbor:"2,keyasint,omitempty"`
	Attempt time.Time `cbor:"3,keyasint"`
}

// Completed reports whether the attempt finished the full handshake.
func (e *Entry) Completed() bool {
	return e.Result == ResultCompleted
}

// Ledger maps attempted peer addresses to their last outcome.
type Ledger interface {
	// Record upserts the entry for a peer address.
	Record(addr string, e *Entry) error

	// Get returns the entry for a peer address, or ErrNotFound.
	Get(addr string) (*Entry, error)

	// All returns every recorded entry. Iteration order is unspecified.
	All() (map[string]*Entry, error)

	// Close releases any resources held by the implementation.
	Close() error
}

// Memory is the in-process Ledger used when persistence is not wanted.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

var _ Ledger = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*Entry)}
}

func (m *Memory) Record(addr string, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[addr] = &cp
	return nil
}

func (m *Memory) Get(addr string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[addr]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) All() (map[string]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*Entry, len(m.entries))
	for k, v := range m.entries {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
