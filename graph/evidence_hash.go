package graph

import (
	"github.com/minio/highwayhash"
)

var evidenceHashKey = []byte("CPLNGBALANCE0123456789ABCDEFCPLN")

// EvidenceHashTiebreak returns a stable 64-bit fingerprint of an
// evidence snippet, used by the GraphBuilder as a last-resort,
// deterministic tiebreaker when two evidence samples are textually
// identical (same ref_kind, same rendered text) but originate from
// distinct source locations — see SPEC_FULL.md §4.3. Reuses the
// teacher's highwayhash dependency (inspector/graph/hash.go) for the
// same purpose it serves there: a fast, stable content fingerprint.
func EvidenceHashTiebreak(text string) uint64 {
	hash, err := highwayhash.New64(evidenceHashKey)
	if err != nil {
		// New64 only errors on a malformed key; the key above is
		// always exactly 32 bytes, so this is unreachable.
		return 0
	}
	_, _ = hash.Write([]byte(text))
	return hash.Sum64()
}
