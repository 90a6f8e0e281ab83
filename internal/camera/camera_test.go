package camera

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"b.jpg":     "second",
		"a.png":     "first",
		"notes.txt": "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o700); err != nil {
		t.Fatal(err)
	}

	src, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir() error = %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	for _, want := range []string{"first", "second"} {
		got, err := src.Frame(ctx)
		if err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("Frame() = %q, want %q", got, want)
		}
	}
	if _, err := src.Frame(ctx); !errors.Is(err, ErrExhausted) || !errors.Is(err, io.EOF) {
		t.Errorf("Frame() error = %v, want ErrExhausted wrapping io.EOF", err)
	}
}

func TestDirSource_Missing(t *testing.T) {
	if _, err := OpenDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("OpenDir() should fail for a missing directory")
	}
}
