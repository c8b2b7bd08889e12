// Package uid generates DICOM unique identifiers.
package uid

import (
	"fmt"
	"hash/fnv"
	"math/big"

	"github.com/google/uuid"
)

// Root is the organization root all generated UIDs descend from.
const Root = "1.2.826.0.1.3680043.10.1081"

// Generator produces DICOM UIDs. Implementations must return values
// no longer than 64 characters containing only digits and dots.
type Generator interface {
	New() string
}

// Random generates UIDs under the UUID-derived 2.25 arc.
type Random struct{}

// New returns a UID built from a freshly generated UUID rendered as a
// decimal integer under the 2.25 root.
func (Random) New() string {
	u := uuid.New()
	var n big.Int
	n.SetBytes(u[:])
	return "2.25." + n.String()
}

// Deterministic generates UIDs derived from a seed string and a call
// counter, so the same seed always yields the same identifier
// sequence. Useful for reproducible test fixtures.
type Deterministic struct {
	Seed string
	n    int
}

func (d *Deterministic) New() string {
	d.n++
	return FromSeed(fmt.Sprintf("%s_%d", d.Seed, d.n))
}

// FromSeed hashes seed into a UID under Root. Collision resistance is
// that of 64-bit FNV-1a, sufficient for fixture generation but not for
// clinical instance identity.
func FromSeed(seed string) string {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return fmt.Sprintf("%s.%d", Root, h.Sum64())
}
