package blobref

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	a := r.Issue([]byte("a"), "image/png")
	b := r.Issue([]byte("b"), "image/jpeg")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.Len())

	data, mimeType, ok := r.Resolve(b)
	assert.True(t, ok)
	assert.Equal(t, []byte("b"), data)
	assert.Equal(t, "image/jpeg", mimeType)

	r.Revoke(a, "", "missing")
	_, _, ok = r.Resolve(a)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}
