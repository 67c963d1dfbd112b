package editor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator mints identifiers for nodes and options created in the editor.
type IDGenerator interface {
	NodeID() string
	OptionID() string
}

// TimestampGenerator mints "node-<unixnano>" and "opt-<unixnano>" identifiers.
// Consecutive calls within the same clock tick get strictly increasing values.
type TimestampGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewTimestampGenerator returns a generator backed by the wall clock.
func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{now: time.Now}
}

func (g *TimestampGenerator) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UnixNano()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	return ts
}

func (g *TimestampGenerator) NodeID() string {
	return fmt.Sprintf("node-%d", g.next())
}

func (g *TimestampGenerator) OptionID() string {
	return fmt.Sprintf("opt-%d", g.next())
}

// UUIDGenerator mints random uuid-based identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NodeID() string   { return "node-" + uuid.NewString() }
func (UUIDGenerator) OptionID() string { return "opt-" + uuid.NewString() }
