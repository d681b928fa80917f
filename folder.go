package dualcam

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	// Files dropped into a watched folder may use any of the supported
	// still formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// folderExtensions lists the file types served as frames.
var folderExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

// folderSource serves image files dropped into a directory as video frames.
// It stands in for a camera when a feed is replayed from disk.
type folderSource struct {
	dir     string
	watcher *fsnotify.Watcher
	once    sync.Once
	err     error
}

// openFolder watches dir and yields a frame for every image file created or
// rewritten inside it. Files already present are not replayed.
func openFolder(dir string) (*folderSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating folder watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &folderSource{dir: dir, watcher: watcher}, nil
}

// Next blocks until a decodable image file lands in the folder. Files that
// do not decode are skipped; a file still being written decodes on one of
// its later write events.
func (f *folderSource) Next(ctx context.Context) (image.Image, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return nil, ErrSourceClosed
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if !isFrameFile(ev.Name) {
				continue
			}
			img, err := decodeFrameFile(ev.Name)
			if err != nil {
				continue
			}
			return img, nil
		case _, ok := <-f.watcher.Errors:
			if !ok {
				return nil, ErrSourceClosed
			}
		}
	}
}

// Close stops the watch and unblocks a pending Next. Safe to call twice.
func (f *folderSource) Close() error {
	f.once.Do(func() {
		f.err = f.watcher.Close()
	})
	return f.err
}

func isFrameFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range folderExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

func decodeFrameFile(name string) (image.Image, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return img, nil
}
