// Package id issues run identifiers for the journal.
package id

import (
	cryptorand "crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ULIDs that sort by creation time. IDs created within the
// same millisecond still increase.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewGenerator reads entropy from r, or crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = cryptorand.Reader
	}
	return &Generator{entropy: ulid.Monotonic(r, 0), now: time.Now}
}

func (g *Generator) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var std = NewGenerator(nil)

// New returns a run ID from the package generator.
func New() (string, error) { return std.New() }

// Time extracts the creation time encoded in a run ID.
func Time(s string) (time.Time, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()).UTC(), nil
}
