package fingerprint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func faceServer(t *testing.T, status int, resp FaceResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("path = %s, want /embed/face", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %s", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			file.Close()
			if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
				t.Errorf("part content type = %s, want image/jpeg", ct)
			}
		}
		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractFace(t *testing.T) {
	srv := faceServer(t, http.StatusOK, FaceResponse{
		FacesCount: 2,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: 3, Embedding: []float32{0.5, 0.25, 1}},
			{FaceIndex: 1, Dim: 3, Embedding: []float32{9, 9, 9}},
		},
	})
	defer srv.Close()

	emb, err := NewEmbeddingClient(srv.URL+"/").ExtractFace(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("ExtractFace() error = %v", err)
	}
	if len(emb) != 3 || emb[0] != 0.5 || emb[1] != 0.25 || emb[2] != 1 {
		t.Errorf("ExtractFace() = %v, want first face", emb)
	}
}

func TestExtractFace_NoFace(t *testing.T) {
	srv := faceServer(t, http.StatusOK, FaceResponse{})
	defer srv.Close()

	_, err := NewEmbeddingClient(srv.URL).ExtractFace(context.Background(), jpegHeader)
	if !errors.Is(err, ErrNoFace) {
		t.Errorf("ExtractFace() error = %v, want ErrNoFace", err)
	}
}

func TestExtractFace_ServerError(t *testing.T) {
	srv := faceServer(t, http.StatusInternalServerError, FaceResponse{})
	defer srv.Close()

	_, err := NewEmbeddingClient(srv.URL).ExtractFace(context.Background(), jpegHeader)
	if err == nil || errors.Is(err, ErrNoFace) {
		t.Errorf("ExtractFace() error = %v, want API error", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"bmp", []byte{0x42, 0x4D, 0, 0, 0, 0, 0, 0}, "image/bmp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType() = %s, want %s", got, tt.want)
			}
		})
	}
}
