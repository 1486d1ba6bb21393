package graphics

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/gdesatrigraha/korangar/common"
)

func TestGlobalUniformsMarshal(t *testing.T) {
	g := GlobalUniforms{
		IndicatorColor:  [4]float32{0.1, 0.2, 0.3, 0.4},
		AmbientColor:    [4]float32{0.5, 0.6, 0.7, 1},
		ScreenSize:      [2]uint32{1920, 1080},
		PointerPosition: [2]uint32{333, 444},
		AnimationTimer:  1.5,
		DayTimer:        2.5,
		WaterLevel:      -3.5,
		PointLightCount: 7,
	}
	for i := range g.ViewProjection {
		g.ViewProjection[i] = float32(i)
		g.View[i] = float32(100 + i)
		g.InverseView[i] = float32(200 + i)
		g.InverseProjection[i] = float32(300 + i)
		g.IndicatorPositions[i] = float32(400 + i)
	}
	assert.Equal(t, 384, g.Size())

	buf := g.Marshal()
	assert.Len(t, buf, 384)
	assert.Equal(t, math.Float32bits(0), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, math.Float32bits(15), binary.LittleEndian.Uint32(buf[60:64]))
	assert.Equal(t, math.Float32bits(100), binary.LittleEndian.Uint32(buf[64:68]))
	assert.Equal(t, math.Float32bits(200), binary.LittleEndian.Uint32(buf[128:132]))
	assert.Equal(t, math.Float32bits(300), binary.LittleEndian.Uint32(buf[192:196]))
	assert.Equal(t, math.Float32bits(400), binary.LittleEndian.Uint32(buf[256:260]))
	assert.Equal(t, math.Float32bits(0.1), binary.LittleEndian.Uint32(buf[320:324]))
	assert.Equal(t, math.Float32bits(0.5), binary.LittleEndian.Uint32(buf[336:340]))
	assert.Equal(t, uint32(1920), binary.LittleEndian.Uint32(buf[352:356]))
	assert.Equal(t, uint32(1080), binary.LittleEndian.Uint32(buf[356:360]))
	assert.Equal(t, uint32(333), binary.LittleEndian.Uint32(buf[360:364]))
	assert.Equal(t, uint32(444), binary.LittleEndian.Uint32(buf[364:368]))
	assert.Equal(t, math.Float32bits(1.5), binary.LittleEndian.Uint32(buf[368:372]))
	assert.Equal(t, math.Float32bits(2.5), binary.LittleEndian.Uint32(buf[372:376]))
	assert.Equal(t, math.Float32bits(-3.5), binary.LittleEndian.Uint32(buf[376:380]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[380:384]))
}

func TestDebugUniformsMarshal(t *testing.T) {
	d := DebugUniforms{
		ShowPickerBuffer:            1,
		ShowDirectionalShadowMap:    1,
		ShowPointShadowMap:          3,
		ShowLightCullingCountBuffer: 1,
		ShowFontAtlas:               1,
	}
	assert.Equal(t, 20, d.Size())

	buf := d.Marshal()
	assert.Len(t, buf, 20)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[4:8]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[8:12]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[12:16]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[16:20]))
}

func TestIndirectArgSizes(t *testing.T) {
	assert.Equal(t, uint64(16), DrawIndirectArgsSize)
	assert.Equal(t, uint64(12), DispatchIndirectArgsSize)
}

func TestMsaaRoundTrip(t *testing.T) {
	for _, samples := range []int{2, 4, 8} {
		msaa := ParseMsaa(samples)
		assert.Equal(t, uint32(samples), msaa.SampleCount())
		assert.True(t, msaa.Multisampling())
	}
	assert.Equal(t, MsaaOff, ParseMsaa(1))
	assert.Equal(t, MsaaOff, ParseMsaa(3))
	assert.Equal(t, uint32(1), MsaaOff.SampleCount())
	assert.False(t, MsaaOff.Multisampling())
}

func TestScreenSpaceAntiAliasingRoundTrip(t *testing.T) {
	for _, ssaa := range []ScreenSpaceAntiAliasing{
		ScreenSpaceAntiAliasingOff, ScreenSpaceAntiAliasingFxaa, ScreenSpaceAntiAliasingCmaa2,
	} {
		assert.Equal(t, ssaa, ParseScreenSpaceAntiAliasing(ssaa.String()))
	}
	assert.Equal(t, ScreenSpaceAntiAliasingOff, ParseScreenSpaceAntiAliasing("garbage"))
}

func TestBlendStates(t *testing.T) {
	assert.Equal(t, wgpu.BlendOperationAdd, AlphaBlend.Color.Operation)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, AlphaBlend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, AlphaBlend.Color.DstFactor)

	// Water darkens the scene color and keeps the widest alpha coverage.
	assert.Equal(t, wgpu.BlendOperationReverseSubtract, WaterAttachmentBlend.Color.Operation)
	assert.Equal(t, wgpu.BlendOperationMax, WaterAttachmentBlend.Alpha.Operation)
	assert.Equal(t, wgpu.BlendFactorOne, WaterAttachmentBlend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOne, WaterAttachmentBlend.Color.DstFactor)
}

func TestCmaa2EdgesTextureSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		wantW, wantH  uint32
	}{
		{"full hd", 1920, 1080, 960, 1080},
		{"odd width rounds up", 1921, 1080, 961, 1080},
		{"single pixel", 1, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Cmaa2EdgesTextureSize(common.ScreenSize{Width: tt.width, Height: tt.height})
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestCmaa2BufferCounts(t *testing.T) {
	fullHD := common.ScreenSize{Width: 1920, Height: 1080}
	assert.Equal(t, 518400, Cmaa2ShapeCandidateCount(fullHD))
	assert.Equal(t, 518400, Cmaa2BlendItemHeadCount(fullHD))
	assert.Equal(t, 1036800, Cmaa2BlendItemCount(fullHD))
	assert.Equal(t, 345600, Cmaa2BlendLocationCount(fullHD))

	tiny := common.ScreenSize{Width: 1, Height: 1}
	assert.Equal(t, 1, Cmaa2ShapeCandidateCount(tiny))
	assert.Equal(t, 1, Cmaa2BlendItemHeadCount(tiny))
	assert.Equal(t, 1, Cmaa2BlendItemCount(tiny))
	assert.Equal(t, 1, Cmaa2BlendLocationCount(tiny))

	// 8192*8192/2 items would exceed the maximum buffer size at stride 8.
	huge := common.ScreenSize{Width: 8192, Height: 8192}
	assert.Equal(t, 16777216, Cmaa2BlendItemCount(huge))
}

func TestPickerTargetEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		target PickerTarget
	}{
		{"tile", PickerTarget{Kind: PickerTargetTile, TileX: 123, TileY: 456}},
		{"tile max coordinates", PickerTarget{Kind: PickerTargetTile, TileX: 65535, TileY: 65535}},
		{"entity", PickerTarget{Kind: PickerTargetEntity, Key: 0xDEADBEEF}},
		{"object", PickerTarget{Kind: PickerTargetObject, Key: 42}},
		{"nothing", PickerTarget{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.target, DecodePickerTarget(tt.target.Encode()))
		})
	}
}

func TestPickerTargetEncodeNothingIgnoresPayload(t *testing.T) {
	target := PickerTarget{Kind: PickerTargetNothing, TileX: 9, Key: 9}
	assert.Equal(t, uint64(0), target.Encode())
}

func TestDecodePickerTargetUnknownKind(t *testing.T) {
	assert.Equal(t, PickerTarget{}, DecodePickerTarget(uint64(9)<<32|77))
}

func newTestContext() *globalContextImpl {
	return &globalContextImpl{
		mu:         &sync.Mutex{},
		screenSize: common.ScreenSize{Width: 640, Height: 480},
	}
}

func baseInstruction() *RenderInstruction {
	instruction := &RenderInstruction{
		PickerPosition: [2]uint32{100, 200},
		Debug:          DefaultDebugSettings(),
	}
	common.Identity(instruction.Uniforms.ViewMatrix[:])
	common.Identity(instruction.Uniforms.ProjectionMatrix[:])
	return instruction
}

func TestPrepareAssemblesGlobalUniforms(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	// View translates by (1, 2, 3); the projection scales by 2.
	instruction.Uniforms.ViewMatrix[12] = 1
	instruction.Uniforms.ViewMatrix[13] = 2
	instruction.Uniforms.ViewMatrix[14] = 3
	instruction.Uniforms.ProjectionMatrix[0] = 2
	instruction.Uniforms.ProjectionMatrix[5] = 2
	instruction.Uniforms.ProjectionMatrix[10] = 2
	instruction.Uniforms.AnimationTimer = 1.25
	instruction.Uniforms.DayTimer = 2.5
	instruction.Uniforms.WaterLevel = -4
	instruction.Uniforms.AmbientLightColor = common.Color{R: 0.25, G: 0.5, B: 0.75, A: 1}
	instruction.PointLights = []PointLightInstruction{{Range: 5}}

	g.Prepare(instruction)

	assert.Equal(t, instruction.Uniforms.ViewMatrix, g.globalUniforms.View)
	assert.Equal(t, float32(2), g.globalUniforms.ViewProjection[0])
	assert.Equal(t, float32(2), g.globalUniforms.ViewProjection[12])
	assert.Equal(t, float32(4), g.globalUniforms.ViewProjection[13])
	assert.Equal(t, float32(6), g.globalUniforms.ViewProjection[14])

	assert.Equal(t, float32(-1), g.globalUniforms.InverseView[12])
	assert.Equal(t, float32(-2), g.globalUniforms.InverseView[13])
	assert.Equal(t, float32(-3), g.globalUniforms.InverseView[14])
	assert.InDelta(t, 0.5, g.globalUniforms.InverseProjection[0], 1e-6)

	assert.Equal(t, [4]float32{0.25, 0.5, 0.75, 1}, g.globalUniforms.AmbientColor)
	assert.Equal(t, [2]uint32{640, 480}, g.globalUniforms.ScreenSize)
	assert.Equal(t, [2]uint32{100, 200}, g.globalUniforms.PointerPosition)
	assert.Equal(t, float32(1.25), g.globalUniforms.AnimationTimer)
	assert.Equal(t, float32(2.5), g.globalUniforms.DayTimer)
	assert.Equal(t, float32(-4), g.globalUniforms.WaterLevel)
	assert.Equal(t, uint32(1), g.globalUniforms.PointLightCount)
}

func TestPrepareSingularProjectionFallsBackToIdentity(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	instruction.Uniforms.ProjectionMatrix = [16]float32{}

	g.Prepare(instruction)

	var identity [16]float32
	common.Identity(identity[:])
	assert.Equal(t, identity, g.globalUniforms.InverseProjection)
}

func TestPrepareBlanksDisabledLightColors(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	instruction.Uniforms.AmbientLightColor = common.Color{R: 1, G: 1, B: 1, A: 1}
	instruction.DirectionalLight.Color = common.Color{R: 1, G: 0.9, B: 0.8, A: 1}
	instruction.Debug.ShowAmbientLight = false
	instruction.Debug.ShowDirectionalLight = false

	g.Prepare(instruction)

	assert.Equal(t, common.ColorBlack.Components(), g.globalUniforms.AmbientColor)
	assert.Equal(t, common.ColorBlack.Components(), g.directionalLightUniforms.Color)
}

func TestPrepareDirectionalLightUniforms(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	instruction.DirectionalLight.Color = common.Color{R: 1, G: 0.9, B: 0.8, A: 1}
	instruction.DirectionalLight.Direction = [3]float32{0, -1, 0}
	for i := range instruction.DirectionalLight.ViewProjectionMatrix {
		instruction.DirectionalLight.ViewProjectionMatrix[i] = float32(i)
	}

	g.Prepare(instruction)

	assert.Equal(t, instruction.DirectionalLight.ViewProjectionMatrix, g.directionalLightUniforms.ViewProjection)
	assert.Equal(t, [4]float32{1, 0.9, 0.8, 1}, g.directionalLightUniforms.Color)
	assert.Equal(t, [4]float32{0, -1, 0, 0}, g.directionalLightUniforms.Direction)
}

func TestPrepareIndicatorDefaults(t *testing.T) {
	g := newTestContext()

	g.Prepare(baseInstruction())

	assert.Equal(t, [16]float32{}, g.globalUniforms.IndicatorPositions)
	assert.Equal(t, common.ColorWhite.Components(), g.globalUniforms.IndicatorColor)
}

func TestPrepareIndicatorCorners(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	instruction.Indicator = &IndicatorInstruction{
		UpperLeft:  [3]float32{1, 2, 3},
		UpperRight: [3]float32{4, 5, 6},
		LowerLeft:  [3]float32{7, 8, 9},
		LowerRight: [3]float32{10, 11, 12},
		Color:      common.Color{R: 0, G: 1, B: 0, A: 1},
	}

	g.Prepare(instruction)

	m := g.globalUniforms.IndicatorPositions
	assert.Equal(t, [4]float32{1, 2, 3, 1}, [4]float32{m[0], m[1], m[2], m[3]})
	assert.Equal(t, [4]float32{4, 5, 6, 1}, [4]float32{m[4], m[5], m[6], m[7]})
	assert.Equal(t, [4]float32{7, 8, 9, 1}, [4]float32{m[8], m[9], m[10], m[11]})
	assert.Equal(t, [4]float32{10, 11, 12, 1}, [4]float32{m[12], m[13], m[14], m[15]})
	assert.Equal(t, [4]float32{0, 1, 0, 1}, g.globalUniforms.IndicatorColor)
}

func TestPreparePointLightOrdering(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	instruction.PointShadowCasters = []PointShadowCasterInstruction{
		{Position: [3]float32{1, 0, 0}, Color: common.Color{R: 1, A: 1}, Range: 10},
		{Position: [3]float32{2, 0, 0}, Color: common.Color{G: 1, A: 1}, Range: 20},
	}
	instruction.PointLights = []PointLightInstruction{
		{Position: [3]float32{3, 0, 0}, Color: common.Color{B: 1, A: 1}, Range: 30},
	}

	g.Prepare(instruction)

	assert.Len(t, g.pointLightData, 3)
	assert.Equal(t, int32(1), g.pointLightData[0].TextureIndex)
	assert.Equal(t, int32(2), g.pointLightData[1].TextureIndex)
	assert.Equal(t, int32(0), g.pointLightData[2].TextureIndex)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, g.pointLightData[0].Position)
	assert.Equal(t, [4]float32{3, 0, 0, 1}, g.pointLightData[2].Position)
	assert.Equal(t, float32(30), g.pointLightData[2].Range)
	assert.Equal(t, uint32(3), g.globalUniforms.PointLightCount)
}

func TestPrepareClearsPreviousPointLights(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	instruction.PointLights = []PointLightInstruction{{Range: 1}, {Range: 2}}
	g.Prepare(instruction)
	assert.Len(t, g.pointLightData, 2)

	g.Prepare(baseInstruction())
	assert.Empty(t, g.pointLightData)
	assert.Equal(t, uint32(0), g.globalUniforms.PointLightCount)
}

func TestPrepareDebugUniforms(t *testing.T) {
	g := newTestContext()

	instruction := baseInstruction()
	instruction.Debug.ShowPickerBuffer = true
	instruction.Debug.ShowPointShadowMap = 4
	instruction.Debug.ShowFontAtlas = true

	g.Prepare(instruction)

	assert.Equal(t, DebugUniforms{
		ShowPickerBuffer:   1,
		ShowPointShadowMap: 4,
		ShowFontAtlas:      1,
	}, g.debugUniforms)
}

func TestDefaultDebugSettings(t *testing.T) {
	settings := DefaultDebugSettings()
	assert.True(t, settings.ShowAmbientLight)
	assert.True(t, settings.ShowDirectionalLight)
	assert.False(t, settings.ShowPickerBuffer)
	assert.Equal(t, uint32(0), settings.ShowPointShadowMap)
}
