package graphics

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GlobalUniforms is the GPU-aligned uniform block bound at group 0 for every
// pass. Matches the WGSL GlobalUniforms struct layout exactly.
// Size: 384 bytes (std140 / WGSL aligned).
type GlobalUniforms struct {
	ViewProjection     [16]float32 // offset   0: column-major projection * view
	View               [16]float32 // offset  64: column-major view matrix
	InverseView        [16]float32 // offset 128: inverse view, identity when singular
	InverseProjection  [16]float32 // offset 192: inverse projection, identity when singular
	IndicatorPositions [16]float32 // offset 256: walk indicator corners as four column vectors
	IndicatorColor     [4]float32  // offset 320: walk indicator tint
	AmbientColor       [4]float32  // offset 336: scene ambient light term
	ScreenSize         [2]uint32   // offset 352: surface size in pixels
	PointerPosition    [2]uint32   // offset 360: pointer position in pixels
	AnimationTimer     float32     // offset 368
	DayTimer           float32     // offset 372
	WaterLevel         float32     // offset 376
	PointLightCount    uint32      // offset 380: total point lights this frame
}

// Size returns the size of the GlobalUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (384)
func (g *GlobalUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GlobalUniforms struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 384-byte buffer ready for GPU upload
func (g *GlobalUniforms) Marshal() []byte {
	buf := make([]byte, 384)
	putMatrix(buf[0:64], &g.ViewProjection)
	putMatrix(buf[64:128], &g.View)
	putMatrix(buf[128:192], &g.InverseView)
	putMatrix(buf[192:256], &g.InverseProjection)
	putMatrix(buf[256:320], &g.IndicatorPositions)
	for i, v := range g.IndicatorColor {
		binary.LittleEndian.PutUint32(buf[320+i*4:324+i*4], math.Float32bits(v))
	}
	for i, v := range g.AmbientColor {
		binary.LittleEndian.PutUint32(buf[336+i*4:340+i*4], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[352:356], g.ScreenSize[0])
	binary.LittleEndian.PutUint32(buf[356:360], g.ScreenSize[1])
	binary.LittleEndian.PutUint32(buf[360:364], g.PointerPosition[0])
	binary.LittleEndian.PutUint32(buf[364:368], g.PointerPosition[1])
	binary.LittleEndian.PutUint32(buf[368:372], math.Float32bits(g.AnimationTimer))
	binary.LittleEndian.PutUint32(buf[372:376], math.Float32bits(g.DayTimer))
	binary.LittleEndian.PutUint32(buf[376:380], math.Float32bits(g.WaterLevel))
	binary.LittleEndian.PutUint32(buf[380:384], g.PointLightCount)
	return buf
}

// DebugUniforms is the GPU-aligned uniform block driving the debug
// visualization overlays. Matches the WGSL DebugUniforms struct layout exactly.
// Size: 20 bytes.
type DebugUniforms struct {
	ShowPickerBuffer            uint32 // offset  0
	ShowDirectionalShadowMap    uint32 // offset  4
	ShowPointShadowMap          uint32 // offset  8: one-based caster slot, 0 = off
	ShowLightCullingCountBuffer uint32 // offset 12
	ShowFontAtlas               uint32 // offset 16
}

// Size returns the size of the DebugUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (20)
func (d *DebugUniforms) Size() int {
	return int(unsafe.Sizeof(*d))
}

// Marshal serializes the DebugUniforms struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload
func (d *DebugUniforms) Marshal() []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], d.ShowPickerBuffer)
	binary.LittleEndian.PutUint32(buf[4:8], d.ShowDirectionalShadowMap)
	binary.LittleEndian.PutUint32(buf[8:12], d.ShowPointShadowMap)
	binary.LittleEndian.PutUint32(buf[12:16], d.ShowLightCullingCountBuffer)
	binary.LittleEndian.PutUint32(buf[16:20], d.ShowFontAtlas)
	return buf
}

// DrawIndirectArgs is the argument record consumed by indirect draw calls.
// Matches the layout the GPU expects for DrawIndirect.
// Size: 16 bytes.
type DrawIndirectArgs struct {
	VertexCount   uint32 // offset  0
	InstanceCount uint32 // offset  4
	FirstVertex   uint32 // offset  8
	FirstInstance uint32 // offset 12
}

// DrawIndirectArgsSize is the byte stride of one DrawIndirectArgs record.
const DrawIndirectArgsSize = uint64(unsafe.Sizeof(DrawIndirectArgs{}))

// DispatchIndirectArgs is the argument record consumed by indirect compute
// dispatches. Size: 12 bytes.
type DispatchIndirectArgs struct {
	X uint32
	Y uint32
	Z uint32
}

// DispatchIndirectArgsSize is the byte stride of one DispatchIndirectArgs record.
const DispatchIndirectArgsSize = uint64(unsafe.Sizeof(DispatchIndirectArgs{}))

// putMatrix writes a column-major matrix into dst as 16 little-endian floats.
func putMatrix(dst []byte, m *[16]float32) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], math.Float32bits(v))
	}
}
