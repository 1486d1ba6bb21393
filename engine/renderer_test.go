package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/directional_shadow"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/forward"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/point_shadow"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/post_processing"
)

// The stubs below embed their interfaces so only the preparer methods need
// implementations; nothing else is called by the code under test.

type stubGlobalContext struct {
	graphics.GlobalContext
	log *[]string
}

func (s *stubGlobalContext) Prepare(_ *graphics.RenderInstruction) {
	*s.log = append(*s.log, "context.prepare")
}

func (s *stubGlobalContext) Upload() error {
	*s.log = append(*s.log, "context.upload")
	return nil
}

type stubDirectionalShadowPass struct {
	directional_shadow.Pass
	log *[]string
}

func (s *stubDirectionalShadowPass) Prepare(_ *graphics.RenderInstruction) {
	*s.log = append(*s.log, "directional pass.prepare")
}

func (s *stubDirectionalShadowPass) Upload() error {
	*s.log = append(*s.log, "directional pass.upload")
	return nil
}

type stubPointShadowPass struct {
	point_shadow.Pass
	log *[]string
}

func (s *stubPointShadowPass) Prepare(_ *graphics.RenderInstruction) {
	*s.log = append(*s.log, "point pass.prepare")
}

func (s *stubPointShadowPass) Upload() error {
	*s.log = append(*s.log, "point pass.upload")
	return nil
}

type stubDirectionalShadowModels struct {
	directional_shadow.ModelDrawer
	log *[]string
}

func (s *stubDirectionalShadowModels) Prepare(_ *graphics.RenderInstruction) {
	*s.log = append(*s.log, "directional models.prepare")
}

func (s *stubDirectionalShadowModels) Upload() error {
	*s.log = append(*s.log, "directional models.upload")
	return nil
}

type stubPointShadowModels struct {
	point_shadow.ModelDrawer
	log *[]string
}

func (s *stubPointShadowModels) Prepare(_ *graphics.RenderInstruction) {
	*s.log = append(*s.log, "point models.prepare")
}

func (s *stubPointShadowModels) Upload() error {
	*s.log = append(*s.log, "point models.upload")
	return nil
}

type stubForwardModels struct {
	forward.ModelDrawer
	log *[]string
}

func (s *stubForwardModels) Prepare(_ *graphics.RenderInstruction) {
	*s.log = append(*s.log, "forward models.prepare")
}

func (s *stubForwardModels) Upload() error {
	*s.log = append(*s.log, "forward models.upload")
	return nil
}

type stubCmaa2Drawer struct {
	post_processing.Cmaa2Drawer
	log *[]string
}

func (s *stubCmaa2Drawer) Prepare(_ *graphics.RenderInstruction) {
	*s.log = append(*s.log, "cmaa2.prepare")
}

func (s *stubCmaa2Drawer) Upload() error {
	*s.log = append(*s.log, "cmaa2.upload")
	return nil
}

func newStubbedRenderer(log *[]string) *rendererImpl {
	return &rendererImpl{
		mu:                      &sync.Mutex{},
		context:                 &stubGlobalContext{log: log},
		directionalShadowPass:   &stubDirectionalShadowPass{log: log},
		pointShadowPass:         &stubPointShadowPass{log: log},
		directionalShadowModels: &stubDirectionalShadowModels{log: log},
		pointShadowModels:       &stubPointShadowModels{log: log},
		forwardModels:           &stubForwardModels{log: log},
	}
}

func TestPreparersStageBeforeAnyUpload(t *testing.T) {
	var log []string
	renderer := newStubbedRenderer(&log)

	preparers := renderer.preparers()
	for _, preparer := range preparers {
		preparer.Prepare(&graphics.RenderInstruction{})
	}
	for _, preparer := range preparers {
		require.NoError(t, preparer.Upload())
	}

	assert.Equal(t, []string{
		"context.prepare",
		"directional pass.prepare",
		"point pass.prepare",
		"directional models.prepare",
		"point models.prepare",
		"forward models.prepare",
		"context.upload",
		"directional pass.upload",
		"point pass.upload",
		"directional models.upload",
		"point models.upload",
		"forward models.upload",
	}, log)
}

func TestPreparersIncludeCmaa2OnlyWhileActive(t *testing.T) {
	var log []string
	renderer := newStubbedRenderer(&log)
	require.Len(t, renderer.preparers(), 6)

	renderer.cmaa2 = &stubCmaa2Drawer{log: &log}
	preparers := renderer.preparers()
	require.Len(t, preparers, 7)

	preparers[len(preparers)-1].Prepare(&graphics.RenderInstruction{})
	assert.Equal(t, []string{"cmaa2.prepare"}, log)
}

func TestReleaseToleratesAbsentDrawers(t *testing.T) {
	renderer := &rendererImpl{mu: &sync.Mutex{}}
	require.NotPanics(t, func() {
		renderer.Release()
	})
}
