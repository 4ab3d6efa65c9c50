// Package vcache memoizes oracle verdicts per candidate removal set.
package vcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"slices"

	"ddebug/internal/syntax"
)

// Fingerprint identifies a removal set. Equal sets give equal fingerprints
// regardless of the order ids were supplied in.
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:8])
}

// Compute fingerprints accepted ∪ candidate, salted with seed (the target
// file hash) so that fingerprints of different inputs never collide.
func Compute(seed [32]byte, accepted []syntax.NodeID, candidate ...syntax.NodeID) Fingerprint {
	ids := make([]syntax.NodeID, 0, len(accepted)+len(candidate))
	ids = append(ids, accepted...)
	ids = append(ids, candidate...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	h := sha256.New()
	_, _ = h.Write(seed[:])
	buf := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
	}
	_, _ = h.Write(buf)

	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out
}
