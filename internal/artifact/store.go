package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrNotFound = errors.New("artifact not found")

// Store persists uploaded diagrams. IDs are content-derived, so each id is
// write-once: re-putting identical bytes is a no-op, and stored artifacts are
// never mutated. Artifacts are user data, not a cache; nothing evicts them.
type Store interface {
	// Put stores content under its content-derived id and returns the id.
	Put(ctx context.Context, content []byte, mimeType string) (string, error)
	// Get returns the stored bytes and MIME type, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, string, error)
}

// ContentID derives the stable artifact id for a payload.
func ContentID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
