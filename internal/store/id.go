package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IDHexWidth is the number of hex characters in the hash portion of an issue
// ID. Eight hex chars give four billion possibilities, enough to avoid
// collisions at the scale of one repository's issues.
const IDHexWidth = 8

// generateID derives a deterministic issue ID from the title and canonical
// creation timestamp: sha256 truncated to IDHexWidth hex chars, prefixed
// with the repository-derived prefix.
func generateID(prefix, title, createdAt string) string {
	sum := sha256.Sum256([]byte(title + createdAt))
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(sum[:])[:IDHexWidth])
}

// NewID derives an ID under this store's prefix. Importers use it for
// records that arrive without one.
func (s *Store) NewID(title, createdAt string) string {
	return generateID(s.Prefix(), title, createdAt)
}
