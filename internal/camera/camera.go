// Package camera provides frames for the capture loop.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the source could not deliver a frame.
var ErrNoFrame = errors.New("no frame from camera")

// ErrExhausted is returned by a DirSource after its last frame. It wraps io.EOF.
var ErrExhausted = fmt.Errorf("no more frames: %w", io.EOF)

// Source delivers encoded frames.
type Source interface {
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// DeviceSource reads JPEG frames from a local video device.
type DeviceSource struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenDevice opens the video device with the given index.
func OpenDevice(index int) (*DeviceSource, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	return &DeviceSource{capture: vc, mat: gocv.NewMat()}, nil
}

// Frame grabs the next frame and encodes it as JPEG.
func (s *DeviceSource) Frame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return slices.Clone(buf.GetBytes()), nil
}

// Close releases the device.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mat.Close(); err != nil {
		return err
	}
	return s.capture.Close()
}

// DirSource replays image files from a directory in name order.
// It stands in for a camera on machines without one.
type DirSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

// OpenDir lists the images in dir.
func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return &DirSource{files: files}, nil
}

// Frame returns the next file's content.
func (s *DirSource) Frame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.files) {
		return nil, ErrExhausted
	}
	path := s.files[s.next]
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFrame, err)
	}
	return data, nil
}

// Close is a no-op.
func (s *DirSource) Close() error {
	return nil
}
