package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileCounts(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		wantX, wantY  uint32
	}{
		{"full hd", 1920, 1080, 120, 68},
		{"svga", 800, 600, 50, 38},
		{"exact multiple", 160, 320, 10, 20},
		{"one pixel over", 161, 321, 11, 21},
		{"single pixel", 1, 1, 1, 1},
		{"zero clamps to one", 0, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := TileCounts(tt.width, tt.height)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestShadowDetailRoundTrip(t *testing.T) {
	for _, d := range []ShadowDetail{ShadowDetailLow, ShadowDetailMedium, ShadowDetailHigh, ShadowDetailUltra} {
		assert.Equal(t, d, ParseShadowDetail(d.String()))
	}
	assert.Equal(t, ShadowDetailHigh, ParseShadowDetail("garbage"))
}

func TestShadowDetailResolutionsIncrease(t *testing.T) {
	tiers := []ShadowDetail{ShadowDetailLow, ShadowDetailMedium, ShadowDetailHigh, ShadowDetailUltra}
	for i := 1; i < len(tiers); i++ {
		assert.Greater(t, tiers[i].DirectionalShadowResolution(), tiers[i-1].DirectionalShadowResolution())
		assert.Greater(t, tiers[i].PointShadowResolution(), tiers[i-1].PointShadowResolution())
	}
}

func TestNewLightDefaults(t *testing.T) {
	l := NewLight(LightTypePoint)
	assert.Equal(t, LightTypePoint, l.Type())
	assert.True(t, l.Enabled())
	assert.False(t, l.CastsShadows())
	assert.Equal(t, float32(1.0), l.Intensity())
	assert.Equal(t, float32(10.0), l.Range())
}

func TestNewLightWithOptions(t *testing.T) {
	l := NewLight(LightTypeDirectional,
		WithDirection(0, -2, 0),
		WithColor(1, 0.5, 0.25),
		WithIntensity(3),
		WithCastsShadows(true),
		WithEnabled(false),
	)
	assert.Equal(t, [3]float32{0, -1, 0}, l.Direction())
	assert.Equal(t, [3]float32{1, 0.5, 0.25}, l.Color())
	assert.Equal(t, float32(3), l.Intensity())
	assert.True(t, l.CastsShadows())
	assert.False(t, l.Enabled())
}

func TestSetDirectionNormalizes(t *testing.T) {
	l := NewLight(LightTypeDirectional)
	l.SetDirection(3, 0, 4)
	d := l.Direction()
	assert.InDelta(t, 0.6, d[0], 1e-6)
	assert.InDelta(t, 0.0, d[1], 1e-6)
	assert.InDelta(t, 0.8, d[2], 1e-6)

	l.SetDirection(0, 0, 0)
	assert.Equal(t, [3]float32{0, -1, 0}, l.Direction())
}

func TestPointLightDataMarshal(t *testing.T) {
	p := PointLightData{
		Position:     [4]float32{1, 2, 3, 1},
		Color:        [4]float32{0.1, 0.2, 0.3, 0},
		Range:        25.5,
		TextureIndex: 3,
	}
	assert.Equal(t, 48, p.Size())

	buf := p.Marshal()
	assert.Len(t, buf, 48)
	assert.Equal(t, math.Float32bits(1), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, math.Float32bits(0.1), binary.LittleEndian.Uint32(buf[16:20]))
	assert.Equal(t, math.Float32bits(25.5), binary.LittleEndian.Uint32(buf[32:36]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[36:40]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[40:44]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[44:48]))
}

func TestPointLightDataMarshalNegativeTextureIndex(t *testing.T) {
	p := PointLightData{TextureIndex: -1}
	buf := p.Marshal()
	assert.Equal(t, int32(-1), int32(binary.LittleEndian.Uint32(buf[36:40])))
}

func TestDirectionalLightUniformsMarshal(t *testing.T) {
	d := DirectionalLightUniforms{
		Color:     [4]float32{1, 0.9, 0.8, 0},
		Direction: [4]float32{0, -1, 0, 0},
	}
	for i := range d.ViewProjection {
		d.ViewProjection[i] = float32(i)
	}
	assert.Equal(t, 96, d.Size())

	buf := d.Marshal()
	assert.Len(t, buf, 96)
	assert.Equal(t, math.Float32bits(15), binary.LittleEndian.Uint32(buf[60:64]))
	assert.Equal(t, math.Float32bits(1), binary.LittleEndian.Uint32(buf[64:68]))
	assert.Equal(t, math.Float32bits(-1), binary.LittleEndian.Uint32(buf[84:88]))
}

func TestMarshalPointLightData(t *testing.T) {
	lights := []PointLightData{
		{Position: [4]float32{1, 0, 0, 1}, Range: 5, TextureIndex: 1},
		{Position: [4]float32{0, 2, 0, 1}, Range: 7},
	}
	buf := MarshalPointLightData(lights)
	assert.Len(t, buf, 96)
	assert.Equal(t, math.Float32bits(5), binary.LittleEndian.Uint32(buf[32:36]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[36:40]))
	assert.Equal(t, math.Float32bits(2), binary.LittleEndian.Uint32(buf[48+4:48+8]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[48+36:48+40]))

	assert.Empty(t, MarshalPointLightData(nil))
}

func TestTileLightIndicesSize(t *testing.T) {
	var tile TileLightIndices
	assert.Equal(t, 1024, tile.Size())
	assert.Equal(t, 256, MaxLightsPerTile)
}
