package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResultOr(t *testing.T) {
	assert.Equal(t, WriteUnchanged, WriteUnchanged.Or(WriteUnchanged))
	assert.Equal(t, WriteReallocated, WriteUnchanged.Or(WriteReallocated))
	assert.Equal(t, WriteReallocated, WriteReallocated.Or(WriteUnchanged))
	assert.Equal(t, WriteReallocated, WriteReallocated.Or(WriteReallocated))

	assert.False(t, WriteUnchanged.Reallocated())
	assert.True(t, WriteReallocated.Reallocated())
}

func TestPlanWriteFitsWithoutRealloc(t *testing.T) {
	newCap, realloc, err := planWrite(1024, 512)
	require.NoError(t, err)
	assert.False(t, realloc)
	assert.Equal(t, uint64(1024), newCap)

	newCap, realloc, err = planWrite(1024, 1024)
	require.NoError(t, err)
	assert.False(t, realloc)
	assert.Equal(t, uint64(1024), newCap)
}

func TestPlanWriteDoublesUntilFit(t *testing.T) {
	newCap, realloc, err := planWrite(1024, 1025)
	require.NoError(t, err)
	assert.True(t, realloc)
	assert.Equal(t, uint64(2048), newCap)

	// A large jump still resolves in a single reallocation.
	newCap, realloc, err = planWrite(1024, 10000)
	require.NoError(t, err)
	assert.True(t, realloc)
	assert.Equal(t, uint64(16384), newCap)
}

func TestPlanWriteNeverShrinks(t *testing.T) {
	capacity := uint64(6144) // 128 point lights at 48 bytes
	sizes := []uint64{100, 6144, 6145, 300, 12288, 12289}
	for _, size := range sizes {
		newCap, _, err := planWrite(capacity, size)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, newCap, capacity)
		capacity = newCap
	}
	assert.Equal(t, uint64(24576), capacity)
}

func TestPlanWriteZeroCapacity(t *testing.T) {
	newCap, realloc, err := planWrite(0, 48)
	require.NoError(t, err)
	assert.True(t, realloc)
	assert.Equal(t, uint64(64), newCap)
}

func TestPlanWriteClampsAtMaxBufferSize(t *testing.T) {
	newCap, realloc, err := planWrite(MaxBufferSize/2+1, MaxBufferSize/2+2)
	require.NoError(t, err)
	assert.True(t, realloc)
	assert.Equal(t, MaxBufferSize, newCap)
}

func TestPlanWriteRejectsOversizedWrite(t *testing.T) {
	_, _, err := planWrite(1024, MaxBufferSize+1)
	assert.Error(t, err)
}

func TestWriteEmptyResetsCountWithoutGPU(t *testing.T) {
	// No device or queue attached; an empty write must not touch either.
	b := &bufferImpl[uint32]{label: "test", capacity: 64, count: 9}

	result, err := b.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, WriteUnchanged, result)
	assert.Equal(t, 0, b.Count())

	b.count = 9
	result, err = b.WriteRaw(nil)
	require.NoError(t, err)
	assert.Equal(t, WriteUnchanged, result)
	assert.Equal(t, 0, b.Count())
}

func TestWriteRawRejectsPartialStride(t *testing.T) {
	b := &bufferImpl[uint64]{label: "test", capacity: 64}
	_, err := b.WriteRaw(make([]byte, 12))
	assert.Error(t, err)
}
