package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var frameExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ImageDevice is a camera that replays still images: a single file, or every
// image in a directory in name order, looping forever.
type ImageDevice struct {
	path string
}

func NewImageDevice(path string) *ImageDevice {
	return &ImageDevice{path: path}
}

func (d *ImageDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := d.frames()
	if err != nil {
		return nil, err
	}

	first, err := decodeFrame(files[0])
	if err != nil {
		return nil, err
	}
	b := first.Bounds()
	if b.Dx() < c.MinWidth || b.Dy() < c.MinHeight {
		return nil, fmt.Errorf("%w: frame %dx%d below minimum %dx%d",
			ErrConstraintsUnsatisfied, b.Dx(), b.Dy(), c.MinWidth, c.MinHeight)
	}

	return &imageStream{files: files}, nil
}

func (d *ImageDevice) frames() ([]string, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.path, err)
	}
	if !info.IsDir() {
		return []string{d.path}, nil
	}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(d.path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceNotFound, d.path)
	}
	sort.Strings(files)
	return files, nil
}

func decodeFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

type imageStream struct {
	mu     sync.Mutex
	files  []string
	next   int
	closed bool
}

func (s *imageStream) Frame() (image.Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, os.ErrClosed
	}
	path := s.files[s.next%len(s.files)]
	s.next++
	s.mu.Unlock()

	return decodeFrame(path)
}

func (s *imageStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
