package dualcam

import (
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// Frame is a single decoded camera image. A frame is immutable once built:
// workers exchange frames by replacing the whole value, never by mutating
// pixels in place, which is what keeps the lock-free raw slot safe to read
// from the UI.
type Frame struct {
	// Image holds the decoded raster, normalized to NRGBA.
	Image *image.NRGBA
	// Seq numbers the frames of one source, starting at 1.
	Seq uint64
	// CapturedAt is the wall-clock time of the read.
	CapturedAt time.Time
}

// Size returns the raster dimensions.
func (f Frame) Size() image.Point {
	if f.Image == nil {
		return image.Point{}
	}
	return f.Image.Bounds().Size()
}

// toNRGBA normalizes a decoded image to *image.NRGBA with the origin at
// (0, 0). It always copies, detaching the frame from any buffer the source
// may reuse for the next read.
func toNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// fitPreview scales a raw frame down into the preview box, preserving the
// aspect ratio with Lanczos resampling. Frames already smaller than the box
// pass through at native size; the renderer stretches them to fill the box.
func fitPreview(img image.Image, box image.Point) *image.NRGBA {
	return imaging.Fit(img, box.X, box.Y, imaging.Lanczos)
}
