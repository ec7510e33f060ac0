package playout

import (
	"sync"

	"github.com/friendsincode/audioengine/pkg/passage"
)

// Manager owns every live playout buffer, keyed by queue entry id, and
// fans out each buffer's one-shot readiness signal onto a single channel
// the engine can select on. Grounded on the teacher's internal/fileplayer
// (ring + state flags + one-shot completion channel), generalized from
// "one playing file" to "one buffer per queue entry, many concurrently
// alive" — and on grimnir's event bus (channel-per-subscriber, non-blocking
// publish) for the fan-in idiom.
type Manager struct {
	mu      sync.RWMutex
	buffers map[passage.EntryID]*Buffer

	readyCh chan passage.EntryID

	headroom         uint64
	resumeHysteresis uint64
}

// NewManager creates a buffer manager. headroom and resumeHysteresis are the
// backpressure thresholds from spec.md §4.8 (defaults: 4410 and 44100).
func NewManager(headroom, resumeHysteresis uint64) *Manager {
	return &Manager{
		buffers:          make(map[passage.EntryID]*Buffer),
		readyCh:          make(chan passage.EntryID, 64),
		headroom:         headroom,
		resumeHysteresis: resumeHysteresis,
	}
}

// Allocate creates and registers a new playout buffer for entryID. It is an
// error to allocate twice for the same still-registered entry id; the
// caller must Release the previous buffer first.
func (m *Manager) Allocate(entryID passage.EntryID, pass passage.Passage, capacity, minStartLevel uint64) *Buffer {
	b := New(entryID, pass, capacity, minStartLevel)

	m.mu.Lock()
	m.buffers[entryID] = b
	m.mu.Unlock()

	go m.watchReady(b)
	return b
}

func (m *Manager) watchReady(b *Buffer) {
	<-b.ReadyCh()
	select {
	case m.readyCh <- b.EntryID():
	default:
		// Consumer is behind; the entry's state is still queryable via
		// Get(entryID).State(), so a dropped notification is not data loss.
	}
}

// ReadyForStart is fed one entry id each time a buffer first crosses its
// minimum start level. Delivery is best-effort: a slow consumer may miss a
// notification, but State() remains authoritative.
func (m *Manager) ReadyForStart() <-chan passage.EntryID {
	return m.readyCh
}

// Get returns the buffer for entryID, if one is registered.
func (m *Manager) Get(entryID passage.EntryID) (*Buffer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buffers[entryID]
	return b, ok
}

// Release unregisters entryID's buffer. The caller should have already
// observed Finished (or be discarding the entry outright).
func (m *Manager) Release(entryID passage.EntryID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buffers, entryID)
}

// All returns a snapshot of every currently registered buffer.
func (m *Manager) All() []*Buffer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Buffer, 0, len(m.buffers))
	for _, b := range m.buffers {
		out = append(out, b)
	}
	return out
}

// Headroom and ResumeHysteresis expose the configured backpressure
// thresholds so decoder chains can call Buffer.ShouldPause/ShouldResume
// without each chain needing its own copy of the configuration.
func (m *Manager) Headroom() uint64         { return m.headroom }
func (m *Manager) ResumeHysteresis() uint64 { return m.resumeHysteresis }
