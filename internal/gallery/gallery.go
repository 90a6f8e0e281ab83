// Package gallery loads registered identities from disk and keeps the in-memory
// gallery the matcher runs against.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/presence-station/internal/facematch"
	"github.com/kozaktomas/presence-station/internal/fingerprint"
	"github.com/kozaktomas/presence-station/internal/frame"
)

// Skip reasons reported by Load.
const (
	ReasonUnreadable = "unreadable"
	ReasonNoFace     = "no_face"
	ReasonInvalidKey = "invalid_key"
	ReasonExtraction = "extraction_failed"
)

// SkippedFile is an image Load could not turn into a gallery entry.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
	Err    string `json:"error,omitempty"`
}

// LoadReport summarises one Load.
type LoadReport struct {
	Files   int           `json:"files"`
	Loaded  int           `json:"loaded"`
	Skipped []SkippedFile `json:"skipped,omitempty"`
}

// ProgressFunc is called after each processed file.
type ProgressFunc func(done, total int)

var imageExts = []string{".jpg", ".jpeg", ".png", ".bmp"}

// Load reads every image in dir in file name order and extracts one embedding per file.
// The key of an entry is the file name without extension. Images that cannot be read,
// contain no face or have a key that cannot be written to the attendance log are skipped.
// A missing directory yields an empty gallery.
func Load(ctx context.Context, dir string, extractor fingerprint.Extractor, progress ProgressFunc) (facematch.Gallery, LoadReport, error) {
	var report LoadReport

	files, err := listImages(dir)
	if err != nil {
		return nil, report, err
	}
	report.Files = len(files)

	gallery := make(facematch.Gallery, 0, len(files))
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return gallery, report, err
		}

		key := strings.TrimSuffix(name, filepath.Ext(name))
		emb, skip := loadOne(ctx, filepath.Join(dir, name), key, extractor)
		if skip != nil {
			skip.File = name
			report.Skipped = append(report.Skipped, *skip)
		} else {
			gallery = append(gallery, facematch.Entry{Key: key, Embedding: emb})
			report.Loaded++
		}

		if progress != nil {
			progress(i+1, len(files))
		}
	}

	return gallery, report, nil
}

func loadOne(ctx context.Context, path, key string, extractor fingerprint.Extractor) (facematch.Embedding, *SkippedFile) {
	if err := ValidateKey(key); err != nil {
		return nil, &SkippedFile{Reason: ReasonInvalidKey, Err: err.Error()}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SkippedFile{Reason: ReasonUnreadable, Err: err.Error()}
	}
	data, err = frame.Normalize(data, frame.Options{MaxSize: frame.DefaultOptions().MaxSize})
	if err != nil {
		return nil, &SkippedFile{Reason: ReasonUnreadable, Err: err.Error()}
	}

	emb, err := extractor.ExtractFace(ctx, data)
	switch {
	case errors.Is(err, fingerprint.ErrNoFace):
		return nil, &SkippedFile{Reason: ReasonNoFace}
	case err != nil:
		return nil, &SkippedFile{Reason: ReasonExtraction, Err: err.Error()}
	}
	return emb, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read gallery directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

// ErrInvalidKey is returned for identity keys that are empty or would break the log format.
var ErrInvalidKey = errors.New("invalid identity key")

// ValidateKey checks that key can be used as an identity key.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.ContainsAny(key, ",\n\r"):
		return fmt.Errorf("%w: %q contains a comma or line break", ErrInvalidKey, key)
	case strings.ContainsAny(key, `/\`) || key == "." || key == "..":
		return fmt.Errorf("%w: %q is not a valid file name", ErrInvalidKey, key)
	}
	return nil
}
