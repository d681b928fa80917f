package dualcam

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Default configuration file locations, relative to the working directory.
const (
	MaterialsPath = "config/materials.json"
	CamerasPath   = "config/cameras.json"
)

// defaultMaterials is the label list used when the materials file is unusable.
var defaultMaterials = []string{"unknown"}

// Side identifies one of the two camera slots.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Sides returns the camera slots in display order.
func Sides() []Side {
	return []Side{SideLeft, SideRight}
}

// SourceRef identifies a video input: a local capture device index, a stream
// URL or device path, or a directory watched for image files. The zero value
// means the side has no source configured.
type SourceRef struct {
	kind   sourceKind
	device int
	path   string
}

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceDevice
	sourcePath
)

// DeviceRef returns a reference to a local capture device index.
func DeviceRef(index int) SourceRef {
	return SourceRef{kind: sourceDevice, device: index}
}

// PathRef returns a reference to a stream URL, a device path or a watched
// directory. An empty path yields the zero reference.
func PathRef(path string) SourceRef {
	if path == "" {
		return SourceRef{}
	}
	return SourceRef{kind: sourcePath, path: path}
}

// IsZero reports whether the reference points to no source at all.
func (r SourceRef) IsZero() bool {
	return r.kind == sourceNone
}

// String returns the reference the way it appeared in the configuration.
func (r SourceRef) String() string {
	switch r.kind {
	case sourceDevice:
		return strconv.Itoa(r.device)
	case sourcePath:
		return r.path
	}
	return ""
}

// UnmarshalJSON accepts the two forms a camera source may take in the config
// file: a JSON number (device index) or a JSON string (URL, device path or
// watched directory).
func (r *SourceRef) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		*r = PathRef(v)
	case float64:
		*r = DeviceRef(int(v))
	default:
		return fmt.Errorf("camera source must be a string or a number, got %T", v)
	}
	return nil
}

// Cameras maps each side to its configured source. Sides absent from the
// file keep the zero reference and simply produce no frames.
type Cameras struct {
	Left  SourceRef `json:"left"`
	Right SourceRef `json:"right"`
}

// Ref returns the source configured for the given side.
func (c Cameras) Ref(side Side) SourceRef {
	switch side {
	case SideLeft:
		return c.Left
	case SideRight:
		return c.Right
	}
	return SourceRef{}
}

// Loader reads the JSON configuration files. A broken file never prevents
// startup: the loader logs one diagnostic and falls back to a safe default.
type Loader struct {
	// Log receives one diagnostic record per unusable file.
	// When nil, slog.Default() is used.
	Log *slog.Logger
}

// Materials reads the material label list. On any read or parse error it
// returns the default list. A parseable file without the materials key
// yields an empty list.
func (l *Loader) Materials(path string) []string {
	var cfg struct {
		Materials []string `json:"materials"`
	}
	if err := l.read(path, &cfg); err != nil {
		l.logger().Warn("loading material types failed, using default list",
			slog.String("path", path), slog.Any("error", err))
		return append([]string(nil), defaultMaterials...)
	}
	return cfg.Materials
}

// Cameras reads the side to camera source mapping. On any read or parse
// error it returns an empty mapping, leaving both sides without a source.
func (l *Loader) Cameras(path string) Cameras {
	var cfg Cameras
	if err := l.read(path, &cfg); err != nil {
		l.logger().Warn("loading camera config failed, no sources configured",
			slog.String("path", path), slog.Any("error", err))
		return Cameras{}
	}
	return cfg
}

func (l *Loader) read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}
