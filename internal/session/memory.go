package session

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

type key struct {
	userID string
	kind   Kind
}

type entry struct {
	payload Payload
	expires time.Time
}

// Memory is a process-local Store.
type Memory struct {
	entries *xsync.Map[key, entry]
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{entries: xsync.NewMap[key, entry](), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source used for expiry.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, userID string, kind Kind) (Payload, error) {
	e, ok := m.entries.Load(key{userID, kind})
	if !ok || m.expired(e) {
		return Payload{}, notFound("get session", userID, kind)
	}
	return e.payload.clone(), nil
}

func (m *Memory) Put(_ context.Context, userID string, payload Payload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	m.entries.Store(key{userID, payload.Kind}, entry{payload: payload.clone(), expires: m.now().Add(m.ttl)})
	return nil
}

func (m *Memory) Delete(_ context.Context, userID string, kind Kind) error {
	m.entries.Delete(key{userID, kind})
	return nil
}

func (m *Memory) Take(_ context.Context, userID string, kind Kind) (Payload, error) {
	e, ok := m.entries.LoadAndDelete(key{userID, kind})
	if !ok || m.expired(e) {
		return Payload{}, notFound("take session", userID, kind)
	}
	return e.payload, nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	removed := 0
	m.entries.Range(func(k key, e entry) bool {
		if m.expired(e) {
			m.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

func (m *Memory) expired(e entry) bool {
	return !m.now().Before(e.expires)
}

var _ Store = (*Memory)(nil)
