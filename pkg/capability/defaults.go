package capability

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// SystemClock reads the host clock.
type SystemClock struct {
	// Location overrides the zone reported by Now. Nil means time.Local.
	Location *time.Location
}

// Now implements Clock.
func (c SystemClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// Sleep implements Clock.
func (c SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rand is a RandSource backed by a PCG generator so that sequences are reproducible
// from a seed.
type Rand struct {
	mu   sync.Mutex
	pcg  *rand.PCG
	r    *rand.Rand
	last float64
}

// NewRand returns a generator seeded with seed.
func NewRand(seed int64) *Rand {
	pcg := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	return &Rand{pcg: pcg, r: rand.New(pcg)}
}

// Next implements RandSource.
func (g *Rand) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = g.r.Float64()
	return g.last
}

// Last implements RandSource.
func (g *Rand) Last() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Seed implements RandSource.
func (g *Rand) Seed(seed int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pcg.Seed(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	g.last = 0
}

// MemoryProgram is an in-memory Program.
type MemoryProgram struct {
	mu   sync.Mutex
	name string
	text []byte
}

// NewProgram returns an empty, unnamed program.
func NewProgram() *MemoryProgram {
	return &MemoryProgram{}
}

// Name implements Program.
func (p *MemoryProgram) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// SetName implements Program.
func (p *MemoryProgram) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

// Text implements Program. The returned slice is a copy.
func (p *MemoryProgram) Text() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.text...)
}

// SetText implements Program. The slice is copied.
func (p *MemoryProgram) SetText(text []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = append([]byte(nil), text...)
}
