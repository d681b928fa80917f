package dualcam

import (
	"image"
	"testing"
	"time"

	"gioui.org/layout"
	"gioui.org/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorValue(t *testing.T) {
	s := newSelector([]string{"steel", "oak", "pvc"})
	assert.Equal(t, []string{"steel", "oak", "pvc"}, s.items, "labels keep their file order")
	assert.Equal(t, "steel", s.Value(), "the first label is preselected")

	s.current = 2
	assert.Equal(t, "pvc", s.Value())
}

func TestSelectorEmpty(t *testing.T) {
	s := newSelector(nil)
	assert.Equal(t, "", s.Value())
}

func TestDialogShow(t *testing.T) {
	var d dialog
	assert.False(t, d.visible)

	d.show(dialogWarning, "No images captured", []string{"Check the camera connections."})
	assert.True(t, d.visible)
	assert.Equal(t, dialogWarning, d.kind)
	assert.Equal(t, "No images captured", d.title)

	d.show(dialogSuccess, "Capture complete", []string{"a.png", "b.png"})
	assert.Equal(t, dialogSuccess, d.kind)
	assert.Len(t, d.lines, 2)
}

func TestFrameImageFillsBox(t *testing.T) {
	f := Frame{Image: testImage(320, 240), Seq: 1}
	img := frameImage(&f)

	assert.Equal(t, widget.Contain, img.Fit, "sub-box frames scale up to fill the preview")
	assert.Equal(t, layout.Center, img.Position)
	assert.Equal(t, image.Pt(320, 240), img.Src.Size())
}

func TestPreviewSurfaceUpdate(t *testing.T) {
	s := &previewSurface{side: SideLeft}
	assert.Nil(t, s.frame.Load(), "nothing on screen before the first frame")

	s.update(Frame{Image: testImage(4, 4), Seq: 5, CapturedAt: time.Now()})
	f := s.frame.Load()
	require.NotNil(t, f)
	assert.Equal(t, uint64(5), f.Seq)
}
