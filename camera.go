package dualcam

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// cameraSource reads frames from a local capture device or a stream URL
// through OpenCV. One goroutine reads; Close may come from another and is
// idempotent. The capture handle is only released between reads, never
// under a read in flight.
type cameraSource struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// openCamera opens a capture device. The argument follows
// gocv.OpenVideoCapture: an int device index or a string URL/path.
func openCamera(src any) (*cameraSource, error) {
	cap, err := gocv.OpenVideoCapture(src)
	if err != nil {
		return nil, fmt.Errorf("opening capture %v: %w", src, err)
	}
	return &cameraSource{cap: cap, mat: gocv.NewMat()}, nil
}

// Next reads one frame and decodes it into a fresh Go image. A failed read
// reports ErrNoFrame; the device decides how long a read may block.
func (c *cameraSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrSourceClosed
	}
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, ErrNoFrame
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}

// Close releases the device handle. Safe to call twice.
func (c *cameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.cap.Close()
}
