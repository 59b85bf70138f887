// Package blobref issues short-lived references to image blobs so the API can
// hand clients a URL instead of inline bytes. Every issued reference must be
// revoked by whoever issued it.
package blobref

import (
	"sync"

	"github.com/google/uuid"
)

type blob struct {
	data     []byte
	mimeType string
}

// Registry maps references to blobs
type Registry struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{blobs: make(map[string]blob)}
}

// Issue registers data and returns a new reference
func (r *Registry) Issue(data []byte, mimeType string) string {
	ref := uuid.NewString()

	r.mu.Lock()
	r.blobs[ref] = blob{data: data, mimeType: mimeType}
	r.mu.Unlock()

	return ref
}

// Resolve returns the blob behind ref
func (r *Registry) Resolve(ref string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blobs[ref]
	return b.data, b.mimeType, ok
}

// Revoke releases refs. Unknown or empty refs are ignored.
func (r *Registry) Revoke(refs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range refs {
		delete(r.blobs, ref)
	}
}

// Len reports how many references are live
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
