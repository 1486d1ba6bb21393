package light

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// PointLightData is the GPU-aligned representation of a single point light as
// consumed by the light culling and forward shaders.
// Size: 48 bytes (std430 / WGSL aligned).
type PointLightData struct {
	Position [4]float32 // offset  0: world-space position, w = 1
	Color    [4]float32 // offset 16: linear RGB color, a unused
	Range    float32    // offset 32: attenuation cutoff distance
	// TextureIndex selects the cube shadow map for this light. Slot numbering
	// is one-based; zero means the light casts no shadow.
	TextureIndex int32     // offset 36
	_pad         [2]uint32 // offset 40: padding to 48-byte stride
}

// Size returns the size of the PointLightData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (p *PointLightData) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the PointLightData struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (p *PointLightData) Marshal() []byte {
	buf := make([]byte, 48)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.Position[3]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(p.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(p.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(p.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(p.Color[3]))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(p.Range))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(p.TextureIndex))
	binary.LittleEndian.PutUint32(buf[40:44], 0) // padding
	binary.LittleEndian.PutUint32(buf[44:48], 0) // padding
	return buf
}

// DirectionalLightUniforms is the GPU-aligned representation of the scene's
// directional light, including the view-projection matrix used for both shadow
// map rendering and shadow lookups in the forward pass.
// Size: 96 bytes (std140 / WGSL aligned).
type DirectionalLightUniforms struct {
	ViewProjection [16]float32 // offset  0: column-major light view-projection
	Color          [4]float32  // offset 64: linear RGB color, a unused
	Direction      [4]float32  // offset 80: normalized direction, w = 0
}

// Size returns the size of the DirectionalLightUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (d *DirectionalLightUniforms) Size() int {
	return int(unsafe.Sizeof(*d))
}

// Marshal serializes the DirectionalLightUniforms struct into a byte buffer
// suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (d *DirectionalLightUniforms) Marshal() []byte {
	buf := make([]byte, 96)
	for i, v := range d.ViewProjection {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(d.Color[0]))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(d.Color[1]))
	binary.LittleEndian.PutUint32(buf[72:76], math.Float32bits(d.Color[2]))
	binary.LittleEndian.PutUint32(buf[76:80], math.Float32bits(d.Color[3]))
	binary.LittleEndian.PutUint32(buf[80:84], math.Float32bits(d.Direction[0]))
	binary.LittleEndian.PutUint32(buf[84:88], math.Float32bits(d.Direction[1]))
	binary.LittleEndian.PutUint32(buf[88:92], math.Float32bits(d.Direction[2]))
	binary.LittleEndian.PutUint32(buf[92:96], math.Float32bits(d.Direction[3]))
	return buf
}

// MarshalPointLightData serializes a slice of point light records into a
// single contiguous byte buffer suitable for storage buffer upload.
//
// Parameters:
//   - lights: the records to serialize, shadow casters first
//
// Returns:
//   - []byte: len(lights) * 48 bytes ready for GPU upload
func MarshalPointLightData(lights []PointLightData) []byte {
	lightSize := (&PointLightData{}).Size()
	buf := make([]byte, 0, len(lights)*lightSize)
	for i := range lights {
		buf = append(buf, lights[i].Marshal()...)
	}
	return buf
}

// TileLightIndices is one tile's worth of point light indices in the tile
// light indices storage buffer. The buffer holds one entry per culling tile
// and is written exclusively by the light culling compute shader; the CPU only
// needs its size to allocate and grow the buffer.
// Size: 1024 bytes (std430 aligned).
type TileLightIndices struct {
	Indices [MaxLightsPerTile]uint32
}

// Size returns the size of the TileLightIndices struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (1024)
func (t *TileLightIndices) Size() int {
	return int(unsafe.Sizeof(*t))
}
