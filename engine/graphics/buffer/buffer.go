package buffer

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/common"
)

// MaxBufferSize is the hard upper bound for any single GPU buffer allocation
// in bytes. Growth is clamped here; writes that cannot fit even at this size
// fail with an error.
const MaxBufferSize uint64 = 128 * 1024 * 1024

// WriteResult reports what a buffer write did to the underlying allocation.
// Callers must rebuild any bind group referencing the buffer when a write
// reallocated it, since the old handle is released.
type WriteResult int

const (
	// WriteUnchanged means the data fit into the existing allocation.
	WriteUnchanged WriteResult = iota
	// WriteReallocated means the buffer was replaced with a larger allocation
	// and existing bind groups referencing it are stale.
	WriteReallocated
)

// Reallocated reports whether the write replaced the underlying buffer.
//
// Returns:
//   - bool: true if the buffer was reallocated
func (r WriteResult) Reallocated() bool {
	return r == WriteReallocated
}

// Or combines two write results, yielding WriteReallocated if either side
// reallocated. Used to accumulate the outcome of a frame's buffer writes.
//
// Parameters:
//   - other: the result to combine with
//
// Returns:
//   - WriteResult: the combined result
func (r WriteResult) Or(other WriteResult) WriteResult {
	if r == WriteReallocated || other == WriteReallocated {
		return WriteReallocated
	}
	return WriteUnchanged
}

// Buffer is a typed, growable GPU buffer. Writes that exceed the current
// capacity transparently reallocate the underlying wgpu buffer; the write
// result tells the caller whether bind groups need rebuilding.
type Buffer[T any] interface {
	// Handle returns the current underlying wgpu buffer. The handle changes
	// whenever a write reallocates, so it must not be cached across writes
	// that report WriteReallocated.
	//
	// Returns:
	//   - *wgpu.Buffer: the current buffer handle
	Handle() *wgpu.Buffer

	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the buffer label
	Label() string

	// Capacity returns the current allocation size in bytes.
	//
	// Returns:
	//   - uint64: the capacity in bytes
	Capacity() uint64

	// Count returns the number of elements stored by the most recent write.
	//
	// Returns:
	//   - int: the element count
	Count() int

	// Write uploads the given elements to the buffer starting at offset zero,
	// growing the allocation first if they do not fit. An empty slice resets
	// the count without touching the GPU.
	//
	// Parameters:
	//   - data: the elements to upload
	//
	// Returns:
	//   - WriteResult: whether the underlying buffer was reallocated
	//   - error: an error if the data exceeds MaxBufferSize or allocation failed
	Write(data []T) (WriteResult, error)

	// WriteRaw uploads pre-marshaled bytes to the buffer starting at offset
	// zero, growing the allocation first if they do not fit. The length must
	// be a multiple of the element stride.
	//
	// Parameters:
	//   - data: the bytes to upload
	//
	// Returns:
	//   - WriteResult: whether the underlying buffer was reallocated
	//   - error: an error if the data exceeds MaxBufferSize or allocation failed
	WriteRaw(data []byte) (WriteResult, error)

	// Release frees the underlying GPU buffer. The Buffer must not be written
	// after release.
	Release()
}

type bufferImpl[T any] struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	label    string
	usage    wgpu.BufferUsage
	handle   *wgpu.Buffer
	capacity uint64
	count    int
}

// NewBuffer creates a typed GPU buffer with capacity for initialCount elements.
// CopyDst is always added to the usage flags so the queue can write into it.
//
// Parameters:
//   - device: the logical device to allocate on
//   - queue: the queue used for subsequent writes
//   - label: a debug label for the buffer
//   - initialCount: the number of elements to reserve space for, at least 1
//   - usage: the buffer usage flags
//
// Returns:
//   - Buffer[T]: the constructed buffer
//   - error: an error if the allocation failed
func NewBuffer[T any](device *wgpu.Device, queue *wgpu.Queue, label string, initialCount int, usage wgpu.BufferUsage) (Buffer[T], error) {
	if initialCount < 1 {
		initialCount = 1
	}
	var zero T
	stride := uint64(unsafe.Sizeof(zero))

	capacity := uint64(initialCount) * stride
	if capacity > MaxBufferSize {
		capacity = MaxBufferSize
	}

	b := &bufferImpl[T]{
		device:   device,
		queue:    queue,
		label:    label,
		usage:    usage | wgpu.BufferUsageCopyDst,
		capacity: capacity,
	}

	handle, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             capacity,
		Usage:            b.usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	b.handle = handle

	return b, nil
}

var _ Buffer[uint32] = &bufferImpl[uint32]{}

func (b *bufferImpl[T]) Handle() *wgpu.Buffer {
	return b.handle
}

func (b *bufferImpl[T]) Label() string {
	return b.label
}

func (b *bufferImpl[T]) Capacity() uint64 {
	return b.capacity
}

func (b *bufferImpl[T]) Count() int {
	return b.count
}

func (b *bufferImpl[T]) Write(data []T) (WriteResult, error) {
	if len(data) == 0 {
		b.count = 0
		return WriteUnchanged, nil
	}
	result, err := b.write(common.SliceToBytes(data))
	if err != nil {
		return result, err
	}
	b.count = len(data)
	return result, nil
}

func (b *bufferImpl[T]) WriteRaw(data []byte) (WriteResult, error) {
	if len(data) == 0 {
		b.count = 0
		return WriteUnchanged, nil
	}
	var zero T
	stride := int(unsafe.Sizeof(zero))
	if len(data)%stride != 0 {
		return WriteUnchanged, fmt.Errorf("buffer %q: raw write of %d bytes is not a multiple of the %d byte stride", b.label, len(data), stride)
	}
	result, err := b.write(data)
	if err != nil {
		return result, err
	}
	b.count = len(data) / stride
	return result, nil
}

func (b *bufferImpl[T]) write(data []byte) (WriteResult, error) {
	newCapacity, realloc, err := planWrite(b.capacity, uint64(len(data)))
	if err != nil {
		return WriteUnchanged, fmt.Errorf("buffer %q: %w", b.label, err)
	}

	if realloc {
		handle, createErr := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            b.label,
			Size:             newCapacity,
			Usage:            b.usage,
			MappedAtCreation: false,
		})
		if createErr != nil {
			return WriteUnchanged, fmt.Errorf("failed to grow buffer %q to %d bytes: %w", b.label, newCapacity, createErr)
		}
		if b.handle != nil {
			b.handle.Release()
		}
		b.handle = handle
		b.capacity = newCapacity
	}

	b.queue.WriteBuffer(b.handle, 0, data)

	if realloc {
		return WriteReallocated, nil
	}
	return WriteUnchanged, nil
}

func (b *bufferImpl[T]) Release() {
	if b.handle != nil {
		b.handle.Release()
		b.handle = nil
	}
	b.capacity = 0
	b.count = 0
}

// planWrite decides whether a write of byteLen bytes into a buffer of the
// given capacity requires reallocation, and what the new capacity should be.
// Capacity doubles until the data fits, clamped at MaxBufferSize, so capacity
// never shrinks and a single overflow causes exactly one reallocation.
//
// Parameters:
//   - capacity: the current capacity in bytes
//   - byteLen: the size of the pending write in bytes
//
// Returns:
//   - newCapacity: the capacity after the write
//   - realloc: true if the buffer must be replaced
//   - err: an error if byteLen exceeds MaxBufferSize
func planWrite(capacity, byteLen uint64) (newCapacity uint64, realloc bool, err error) {
	if byteLen > MaxBufferSize {
		return capacity, false, fmt.Errorf("write of %d bytes exceeds maximum buffer size of %d bytes", byteLen, MaxBufferSize)
	}
	if byteLen <= capacity {
		return capacity, false, nil
	}

	newCapacity = capacity
	if newCapacity == 0 {
		newCapacity = 1
	}
	for newCapacity < byteLen {
		newCapacity *= 2
	}
	if newCapacity > MaxBufferSize {
		newCapacity = MaxBufferSize
	}
	return newCapacity, true, nil
}
