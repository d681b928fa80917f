package dualcam

import (
	"context"
	"errors"
	"image"
	"os"

	"github.com/LEKPCSTEAM/OpenCV-Camera-Capture/utils"
)

// Sentinel errors shared by the video sources.
var (
	// ErrNoSource marks a side with nothing configured behind it.
	ErrNoSource = errors.New("dualcam: no source configured")
	// ErrNoFrame marks a read attempt that produced no frame.
	ErrNoFrame = errors.New("dualcam: no frame available")
	// ErrSourceClosed marks reads past Close.
	ErrSourceClosed = errors.New("dualcam: source closed")
)

// Source is a pull-style video input. Next blocks until a frame is
// available, the context is done or the source is closed, and returns a
// freshly decoded image the caller owns. Close releases the underlying
// device or watch handle and may be called from another goroutine.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// OpenFunc opens the source a worker reads from. It runs on the worker's
// own goroutine, so it may block (network streams take their time) without
// stalling the UI.
type OpenFunc func() (Source, error)

// Opener returns the OpenFunc matching the reference: device indices, URLs
// and device paths open an OpenCV capture, a string naming an existing
// directory opens a watched folder, and the zero reference reports
// ErrNoSource.
func (r SourceRef) Opener() OpenFunc {
	return func() (Source, error) {
		switch r.kind {
		case sourceDevice:
			return openCamera(r.device)
		case sourcePath:
			if !utils.IsValidUrl(r.path) {
				if fi, err := os.Stat(r.path); err == nil && fi.IsDir() {
					return openFolder(r.path)
				}
			}
			return openCamera(r.path)
		}
		return nil, ErrNoSource
	}
}
