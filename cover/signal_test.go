package cover

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucket(t *testing.T) {
	for _, tc := range []struct {
		v, b byte
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 8},
		{7, 8},
		{8, 16},
		{15, 16},
		{16, 32},
		{31, 32},
		{32, 64},
		{127, 64},
		{128, 128},
		{255, 128},
	} {
		assert.Equal(t, tc.b, Bucket(tc.v), "count %d", tc.v)
	}
}

func TestSignalMerge(t *testing.T) {
	s := NewSignal()

	cur := []byte{0, 1, 0, 5}

	assert.True(t, s.HasNew(cur))

	e, b := s.Merge(cur)
	assert.Equal(t, 2, e)
	assert.Equal(t, 0, b)
	assert.Equal(t, 2, s.Edges())

	assert.False(t, s.HasNew(cur))
	assert.False(t, s.HasNew([]byte{0, 1, 0, 6}), "same bucket")

	cur = []byte{0, 2, 0, 5}
	assert.True(t, s.HasNew(cur))

	e, b = s.Merge(cur)
	assert.Equal(t, 0, e)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, s.Edges())

	cur = []byte{0, 0, 0, 0, 0, 0, 3}
	assert.True(t, s.HasNew(cur))

	e, b = s.Merge(cur)
	assert.Equal(t, 1, e)
	assert.Equal(t, 0, b)
	assert.Equal(t, 3, s.Edges())

	s.Reset()
	assert.Equal(t, 0, s.Edges())
	assert.True(t, s.HasNew([]byte{0, 1}))
}

func TestHash(t *testing.T) {
	a := Hash([]byte{0, 1, 0, 5})

	assert.Equal(t, a, Hash([]byte{0, 1, 0, 6}), "same buckets")
	assert.Equal(t, a, Hash([]byte{0, 1, 0, 5, 0, 0}), "trailing zeros")
	assert.NotEqual(t, a, Hash([]byte{0, 1, 0, 8}))
	assert.NotEqual(t, a, Hash([]byte{1, 0, 0, 5}))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(nil))
	assert.Equal(t, 2, Count([]byte{0, 3, 0, 255}))
}
