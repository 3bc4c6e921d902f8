package storage

import (
	"io"
	"strings"
	"testing"
)

func TestStore(t *testing.T) {
	t.Run("save and open round trip", func(t *testing.T) {
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}

		ref, err := s.Save("user-1", []byte("audio bytes"))
		if err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		if !strings.HasPrefix(ref, "user-1") {
			t.Errorf("ref %q not scoped to user", ref)
		}
		if !strings.HasSuffix(ref, ".wav") {
			t.Errorf("ref %q missing extension", ref)
		}

		f, err := s.Open(ref)
		if err != nil {
			t.Fatalf("Open() error: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "audio bytes" {
			t.Errorf("read back %q, want %q", data, "audio bytes")
		}
	})

	t.Run("identical content hashes identically", func(t *testing.T) {
		s, _ := New(t.TempDir())
		a, _ := s.Save("u", []byte("same"))
		b, _ := s.Save("u", []byte("same"))
		// References share the content hash even if the timestamp differs.
		if a[strings.LastIndex(a, "_"):] != b[strings.LastIndex(b, "_"):] {
			t.Errorf("hash suffix differs: %q vs %q", a, b)
		}
	})

	t.Run("rejects unsafe user ids", func(t *testing.T) {
		s, _ := New(t.TempDir())
		for _, id := range []string{"", "..", "../other", `a\b`, "a/b"} {
			if _, err := s.Save(id, []byte("x")); err == nil {
				t.Errorf("Save(%q, ...) should fail", id)
			}
		}
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		s, _ := New(t.TempDir())
		if _, err := s.Open("../../etc/passwd"); err == nil {
			t.Error("Open(../../etc/passwd) should fail")
		}
		if _, err := s.Open("/etc/passwd"); err == nil {
			t.Error("Open(/etc/passwd) should fail")
		}
	})
}
