package video

import (
	"sync"
	"time"
)

// Mailbox is a single-slot Source. Publishing over an untaken frame replaces
// it and counts a drop; the render thread only ever sees the latest frame.
type Mailbox struct {
	mu    sync.Mutex
	frame *Frame
	seq   uint64

	published uint64
	taken     uint64
	dropped   uint64
	lastTaken time.Time
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Publish stores f, assigning it the next sequence number. Safe for
// concurrent use.
func (m *Mailbox) Publish(f *Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frame != nil {
		m.dropped++
	}
	m.seq++
	f.Seq = m.seq
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	m.frame = f
	m.published++
}

func (m *Mailbox) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame != nil
}

// Frame takes the pending frame, or returns ErrNoFrame.
func (m *Mailbox) Frame() (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frame == nil {
		return nil, ErrNoFrame
	}
	f := m.frame
	m.frame = nil
	m.taken++
	m.lastTaken = time.Now()
	return f, nil
}

// MailboxStats is a snapshot of mailbox traffic.
type MailboxStats struct {
	Published uint64
	Taken     uint64
	Dropped   uint64
	LastSeq   uint64
	LastTaken time.Time
}

func (m *Mailbox) Stats() MailboxStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MailboxStats{
		Published: m.published,
		Taken:     m.taken,
		Dropped:   m.dropped,
		LastSeq:   m.seq,
		LastTaken: m.lastTaken,
	}
}
