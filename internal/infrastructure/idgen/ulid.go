package idgen

import (
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iho/goaccount/internal/domain"
)

// ULIDGenerator generates ULID-based account IDs.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewULIDGenerator creates a new ULIDGenerator backed by ulid's default
// monotonic entropy.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.DefaultEntropy(), now: time.Now}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// NewAccountID returns a fresh account ID.
func (g *ULIDGenerator) NewAccountID() domain.AccountID {
	return domain.NewAccountIDFromULID(g.Generate())
}
