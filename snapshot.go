package dualcam

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultResultsDir is where captured stills land, relative to the working
// directory.
const DefaultResultsDir = "results"

// Layouts of the filename timestamp and the per-day folder.
const (
	stampLayout  = "20060102_150405"
	folderLayout = "02_01_2006"
)

// SavedImage records one written still.
type SavedImage struct {
	Side Side
	Path string
}

// CaptureEvent describes the outcome of one capture action: which sides
// were written, which had no frame to offer and which failed on the
// filesystem. It feeds the report dialog and the log and is not persisted.
type CaptureEvent struct {
	ID       uuid.UUID
	Time     time.Time
	Material string
	Saved    []SavedImage
	Skipped  []Side
	Failed   []Side
}

// Success reports whether at least one still was written.
func (e *CaptureEvent) Success() bool {
	return len(e.Saved) > 0
}

// Paths returns the written file paths in side order.
func (e *CaptureEvent) Paths() []string {
	paths := make([]string, 0, len(e.Saved))
	for _, s := range e.Saved {
		paths = append(paths, s.Path)
	}
	return paths
}

// Saver encodes raw frames into dated result folders as
// <material>_<side>_<timestamp>.png files.
type Saver struct {
	// BaseDir is the output root. Empty means DefaultResultsDir.
	BaseDir string

	// Log receives one record per saved or failed file.
	// When nil, slog.Default() is used.
	Log *slog.Logger

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewSaver returns a saver writing below baseDir.
func NewSaver(baseDir string) *Saver {
	if baseDir == "" {
		baseDir = DefaultResultsDir
	}
	return &Saver{BaseDir: baseDir, now: time.Now}
}

// Capture writes one PNG per side holding a raw frame. Sides without a
// frame are skipped; filesystem failures are logged, recorded on the event
// and the side is left out of the saved list. There is no atomicity across
// the two writes: one side may land while the other does not.
func (s *Saver) Capture(material string, frames map[Side]Frame) *CaptureEvent {
	clock := s.now
	if clock == nil {
		clock = time.Now
	}
	ev := &CaptureEvent{ID: uuid.New(), Time: clock(), Material: material}

	stamp := ev.Time.Format(stampLayout)
	dir := filepath.Join(s.baseDir(), ev.Time.Format(folderLayout))
	log := s.logger().With(slog.String("capture", ev.ID.String()))

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error("creating capture folder failed",
			slog.String("dir", dir), slog.Any("error", err))
		for _, side := range Sides() {
			if _, ok := frames[side]; ok {
				ev.Failed = append(ev.Failed, side)
			} else {
				ev.Skipped = append(ev.Skipped, side)
			}
		}
		return ev
	}

	for _, side := range Sides() {
		frame, ok := frames[side]
		if !ok || frame.Image == nil {
			ev.Skipped = append(ev.Skipped, side)
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.png", material, side, stamp))
		if err := writePNG(path, frame); err != nil {
			log.Error("saving frame failed",
				slog.String("path", path), slog.Any("error", err))
			ev.Failed = append(ev.Failed, side)
			continue
		}
		ev.Saved = append(ev.Saved, SavedImage{Side: side, Path: path})
		log.Info("frame saved",
			slog.String("path", path),
			slog.Uint64("seq", frame.Seq),
			slog.String("material", material))
	}
	return ev
}

func writePNG(path string, frame Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(file, frame.Image); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func (s *Saver) baseDir() string {
	if s.BaseDir == "" {
		return DefaultResultsDir
	}
	return s.BaseDir
}

func (s *Saver) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
