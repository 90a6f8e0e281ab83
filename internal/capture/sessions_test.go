package capture

import (
	"errors"
	"testing"
	"time"
)

func TestSessions_OpenGetClose(t *testing.T) {
	s := NewSessions[int](time.Second, 0)

	sess, err := s.Open("front-door")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sess.ID == "" || sess.Gate == nil {
		t.Fatalf("Open() = %+v, want ID and gate", sess)
	}

	got, err := s.Get(sess.ID)
	if err != nil || got != sess {
		t.Errorf("Get() = %v, %v", got, err)
	}

	if err := s.Close(sess.ID); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after Close error = %v, want ErrSessionNotFound", err)
	}
	if err := s.Close(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Close() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessions_Limit(t *testing.T) {
	s := NewSessions[int](time.Second, 2)
	for range 2 {
		if _, err := s.Open(""); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	if _, err := s.Open(""); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("Open() over limit error = %v, want ErrTooManySessions", err)
	}
	if len(s.List()) != 2 {
		t.Errorf("List() len = %d, want 2", len(s.List()))
	}
}

func TestSessions_CloseIdle(t *testing.T) {
	s := NewSessions[int](time.Second, 0)
	old, _ := s.Open("a")
	old.OpenedAt = time.Now().Add(-time.Hour)
	fresh, _ := s.Open("b")

	if n := s.CloseIdle(time.Now().Add(-time.Minute)); n != 1 {
		t.Errorf("CloseIdle() = %d, want 1", n)
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Errorf("fresh session closed: %v", err)
	}
}
