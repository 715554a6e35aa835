package tracking

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// subjectHashLen is the number of hex characters kept from the digest. Long
// enough to make collisions across a citizen population negligible, short
// enough to stay readable in logs and dashboards.
const subjectHashLen = 16

// Pseudonymizer turns BSNs into stable, non-reversible subject hashes. The
// salt is deployment-specific configuration; without it a rainbow table over
// the nine-digit BSN space would be trivial.
type Pseudonymizer struct {
	salt []byte
}

// NewPseudonymizer builds a pseudonymizer from the configured salt.
func NewPseudonymizer(salt string) *Pseudonymizer {
	return &Pseudonymizer{salt: []byte(salt)}
}

// Hash returns the truncated hex digest for a BSN. The same BSN always maps
// to the same hash within one deployment, so history joins work.
func (p *Pseudonymizer) Hash(bsn string) string {
	h, _ := blake2b.New256(nil)
	h.Write(p.salt)
	h.Write([]byte(bsn))
	return hex.EncodeToString(h.Sum(nil))[:subjectHashLen]
}
