package graphics

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/graphics/texture"
)

// PickerTargetKind classifies what a picker attachment texel refers to.
type PickerTargetKind uint32

const (
	// PickerTargetNothing marks texels no draw covered.
	PickerTargetNothing PickerTargetKind = iota
	// PickerTargetTile refers to a walkable map tile by coordinates.
	PickerTargetTile
	// PickerTargetEntity refers to an entity by key.
	PickerTargetEntity
	// PickerTargetObject refers to a static map object by key.
	PickerTargetObject
)

// PickerValueSize is the byte size of one encoded picker value, matching the
// two-channel 32-bit uint picker attachment format.
const PickerValueSize = 8

// PickerTarget identifies what the pointer hovers. Draws into the picker
// attachment write the encoded form; the readback decodes it again.
type PickerTarget struct {
	Kind PickerTargetKind
	// TileX and TileY are set when Kind is PickerTargetTile.
	TileX uint16
	TileY uint16
	// Key is set for entity and object targets.
	Key uint32
}

// Encode packs the target into the 64-bit value stored per picker texel. The
// low word carries the payload, the high word the kind, so the red channel of
// the attachment holds the payload and the green channel the kind.
//
// Returns:
//   - uint64: the encoded value, 0 for nothing
func (p PickerTarget) Encode() uint64 {
	var low uint32
	switch p.Kind {
	case PickerTargetTile:
		low = uint32(p.TileX)<<16 | uint32(p.TileY)
	case PickerTargetEntity, PickerTargetObject:
		low = p.Key
	default:
		return 0
	}
	return uint64(p.Kind)<<32 | uint64(low)
}

// DecodePickerTarget unpacks a value read back from the picker attachment.
// Unknown kinds decode as nothing.
//
// Parameters:
//   - value: the encoded 64-bit picker value
//
// Returns:
//   - PickerTarget: the decoded target
func DecodePickerTarget(value uint64) PickerTarget {
	kind := PickerTargetKind(value >> 32)
	low := uint32(value)

	switch kind {
	case PickerTargetTile:
		return PickerTarget{
			Kind:  kind,
			TileX: uint16(low >> 16),
			TileY: uint16(low),
		}
	case PickerTargetEntity, PickerTargetObject:
		return PickerTarget{Kind: kind, Key: low}
	default:
		return PickerTarget{}
	}
}

// pickerReadback owns the small mapped-readable buffer the hovered picker
// texel is copied into at the end of each frame. The copy is recorded during
// frame encoding and resolved at the start of the next frame, so reading
// never stalls inside the frame that produced the value.
type pickerReadback struct {
	valueBuffer *wgpu.Buffer
	copyPending bool
	lastTarget  PickerTarget
}

func newPickerReadback(device *wgpu.Device) (*pickerReadback, error) {
	valueBuffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "picker value",
		Size:  PickerValueSize,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create picker value buffer: %w", err)
	}
	return &pickerReadback{valueBuffer: valueBuffer}, nil
}

// copyHoveredValue records a copy of the picker texel under the pointer into
// the value buffer. Positions outside the attachment clamp to the nearest
// covered texel.
func (p *pickerReadback) copyHoveredValue(
	encoder *wgpu.CommandEncoder,
	pickerTexture texture.AttachmentTexture,
	position [2]uint32,
) error {
	size := pickerTexture.Size()
	if size.Width == 0 || size.Height == 0 {
		return nil
	}
	if position[0] >= size.Width {
		position[0] = size.Width - 1
	}
	if position[1] >= size.Height {
		position[1] = size.Height - 1
	}

	err := encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  pickerTexture.Texture(),
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: position[0], Y: position[1]},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: p.valueBuffer,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  texture.CopyBytesPerRowAlignment,
				RowsPerImage: 1,
			},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("failed to copy picker value: %w", err)
	}

	p.copyPending = true
	return nil
}

// readHoveredValue resolves the most recent completed copy. When a copy from
// the previous frame is pending it maps the buffer, which may wait for the
// GPU to finish that frame's work.
func (p *pickerReadback) readHoveredValue(device *wgpu.Device) (PickerTarget, error) {
	if !p.copyPending {
		return p.lastTarget, nil
	}

	mapStatus := wgpu.BufferMapAsyncStatusUnknown
	err := p.valueBuffer.MapAsync(wgpu.MapModeRead, 0, PickerValueSize, func(status wgpu.BufferMapAsyncStatus) {
		mapStatus = status
	})
	if err != nil {
		return p.lastTarget, fmt.Errorf("failed to map picker value buffer: %w", err)
	}
	device.Poll(true, nil)

	if mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		p.valueBuffer.Unmap()
		return p.lastTarget, fmt.Errorf("picker value buffer mapping failed with status %d", mapStatus)
	}

	data := p.valueBuffer.GetMappedRange(0, PickerValueSize)
	value := binary.LittleEndian.Uint64(data)
	p.valueBuffer.Unmap()

	p.copyPending = false
	p.lastTarget = DecodePickerTarget(value)
	return p.lastTarget, nil
}

func (p *pickerReadback) release() {
	if p.valueBuffer != nil {
		p.valueBuffer.Release()
		p.valueBuffer = nil
	}
}
