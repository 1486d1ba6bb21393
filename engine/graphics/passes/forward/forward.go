// Package forward renders the scene into the frame's color and depth
// attachments: the model geometry lit through the tiled light lists and the
// shadow maps, plus the walk indicator decal. The pass uses a reverse depth
// range, clearing to 0 and testing greater, for better precision at distance.
package forward

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/graphics"
)

const passName = "forward render pass"

// BeginPass opens the forward render pass on the frame's color and depth
// attachments and binds the global and forward bind groups. When
// multisampling is active the pass resolves into the resolved color
// attachment. The caller ends and releases the returned pass after drawing.
//
// Parameters:
//   - encoder: the frame's command encoder
//   - context: the shared resource context
//
// Returns:
//   - *wgpu.RenderPassEncoder: the recording render pass
func BeginPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext) *wgpu.RenderPassEncoder {
	colorAttachment := wgpu.RenderPassColorAttachment{
		View:       context.ForwardColorTexture().View(),
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	if context.Msaa().Multisampling() {
		colorAttachment.ResolveTarget = context.ResolvedColorTexture().View()
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            passName,
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            context.ForwardDepthTexture().View(),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 0.0,
		},
	})

	pass.SetBindGroup(0, context.GlobalBindGroup(), nil)
	pass.SetBindGroup(1, context.ForwardBindGroup(), nil)

	return pass
}
