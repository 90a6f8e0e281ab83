package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/presence-station/internal/facematch"
	"github.com/kozaktomas/presence-station/internal/fingerprint"
	"github.com/kozaktomas/presence-station/internal/frame"
)

// Worker is the metadata stored next to a registered face.
type Worker struct {
	Key        string `yaml:"-" json:"key"`
	FullName   string `yaml:"full_name" json:"full_name"`
	EmployeeID string `yaml:"employee_id,omitempty" json:"employee_id,omitempty"`
	Department string `yaml:"department,omitempty" json:"department,omitempty"`
	Position   string `yaml:"position,omitempty" json:"position,omitempty"`
}

// Registration is a new identity with its photo.
type Registration struct {
	Worker
	Photo []byte
}

// Store holds the current gallery and the directories it is loaded from.
type Store struct {
	facesDir  string
	dataDir   string
	extractor fingerprint.Extractor
	logger    *zap.Logger

	// reloadMu serialises reloads and registrations.
	reloadMu sync.Mutex
	mu       sync.RWMutex
	gallery  facematch.Gallery
}

// NewStore creates both directories if needed. The gallery is empty until Reload.
func NewStore(facesDir, dataDir string, extractor fingerprint.Extractor, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{facesDir, dataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{
		facesDir:  facesDir,
		dataDir:   dataDir,
		extractor: extractor,
		logger:    logger,
	}, nil
}

// Gallery returns the current gallery. Callers must not modify it.
func (s *Store) Gallery() facematch.Gallery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gallery
}

// Reload rebuilds the gallery from disk and swaps it in as a whole.
func (s *Store) Reload(ctx context.Context, progress ProgressFunc) (LoadReport, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.reload(ctx, progress)
}

func (s *Store) reload(ctx context.Context, progress ProgressFunc) (LoadReport, error) {
	g, report, err := Load(ctx, s.facesDir, s.extractor, progress)
	if err != nil {
		return report, err
	}

	for _, sk := range report.Skipped {
		s.logger.Warn("gallery image skipped",
			zap.String("file", sk.File), zap.String("reason", sk.Reason), zap.String("error", sk.Err))
	}
	s.logger.Info("gallery loaded", zap.Int("identities", report.Loaded), zap.Int("skipped", len(report.Skipped)))

	s.mu.Lock()
	s.gallery = g
	s.mu.Unlock()
	return report, nil
}

// Register stores the photo and metadata of a new identity and reloads the gallery.
// Registering an existing key replaces it.
func (s *Store) Register(ctx context.Context, reg Registration) (Worker, error) {
	w := reg.Worker
	w.Key = facematch.IdentityKey(w.FullName)
	if err := ValidateKey(w.Key); err != nil {
		return Worker{}, err
	}

	photo, err := frame.Normalize(reg.Photo, frame.Options{MaxSize: frame.DefaultOptions().MaxSize})
	if err != nil {
		return Worker{}, err
	}
	if _, err := s.extractor.ExtractFace(ctx, photo); err != nil {
		return Worker{}, fmt.Errorf("registration photo: %w", err)
	}

	meta, err := yaml.Marshal(w)
	if err != nil {
		return Worker{}, fmt.Errorf("encode worker metadata: %w", err)
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	// Drop photos of the same key stored under another extension.
	for _, ext := range imageExts {
		if p := filepath.Join(s.facesDir, w.Key+ext); p != s.photoPath(w.Key) {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return Worker{}, fmt.Errorf("remove old photo: %w", err)
			}
		}
	}
	if err := os.WriteFile(s.photoPath(w.Key), photo, 0o644); err != nil {
		return Worker{}, fmt.Errorf("write photo: %w", err)
	}
	if err := os.WriteFile(s.metaPath(w.Key), meta, 0o644); err != nil {
		return Worker{}, fmt.Errorf("write worker metadata: %w", err)
	}
	s.logger.Info("identity registered", zap.String("key", w.Key))

	if _, err := s.reload(ctx, nil); err != nil {
		return w, fmt.Errorf("reload gallery: %w", err)
	}
	return w, nil
}

// Worker returns the metadata of key. Identities registered without metadata
// get a Worker derived from the key.
func (s *Store) Worker(key string) (Worker, error) {
	data, err := os.ReadFile(s.metaPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return Worker{Key: key, FullName: facematch.DisplayName(key)}, nil
	}
	if err != nil {
		return Worker{}, fmt.Errorf("read worker metadata: %w", err)
	}

	var w Worker
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Worker{}, fmt.Errorf("parse worker metadata %s: %w", key, err)
	}
	w.Key = key
	if w.FullName == "" {
		w.FullName = facematch.DisplayName(key)
	}
	return w, nil
}

// Workers returns the metadata of every identity in the gallery, in gallery order.
func (s *Store) Workers() ([]Worker, error) {
	keys := s.Gallery().Keys()
	out := make([]Worker, 0, len(keys))
	for _, key := range keys {
		w, err := s.Worker(key)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *Store) photoPath(key string) string {
	return filepath.Join(s.facesDir, key+".jpg")
}

func (s *Store) metaPath(key string) string {
	return filepath.Join(s.dataDir, key+".yaml")
}
