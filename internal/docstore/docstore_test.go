package docstore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDocs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("%PDF-1.4 "+n), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFindCaseInsensitive(t *testing.T) {
	dir := writeDocs(t, "TEST-001.pdf", "notes.txt")
	s := New(dir, 0)

	tests := []struct {
		part string
		want string
		err  error
	}{
		{"TEST-001", "TEST-001.pdf", nil},
		{" test-001 ", "TEST-001.pdf", nil},
		{"notes", "", ErrNotFound},
		{"", "", ErrNotFound},
		{"../etc/passwd", "", ErrNotFound},
	}
	for _, tt := range tests {
		got, err := s.Find(tt.part)
		if !errors.Is(err, tt.err) {
			t.Errorf("Find(%q) err = %v, want %v", tt.part, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("Find(%q) = %q, want %q", tt.part, got, tt.want)
		}
	}
}

func TestFindSubdirectoryCandidate(t *testing.T) {
	dir := writeDocs(t, "line2/P-7.pdf")
	s := New(dir, 0)
	got, err := s.Find("line2/P-7")
	if err != nil || got != "line2/P-7.pdf" {
		t.Errorf("Find = %q, %v", got, err)
	}
}

func TestFindCachesHits(t *testing.T) {
	dir := writeDocs(t, "A.pdf")
	s := New(dir, time.Minute)

	if _, err := s.Find("A"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "A.pdf")); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Find("a"); err != nil || got != "A.pdf" {
		t.Errorf("cached Find = %q, %v", got, err)
	}
}

func TestOpen(t *testing.T) {
	dir := writeDocs(t, "A.pdf")
	s := New(dir, 0)

	f, err := s.Open("A.pdf")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "%PDF-1.4 A.pdf" {
		t.Errorf("content = %q", data)
	}

	for _, bad := range []string{"", "missing.pdf", "../A.pdf", "/etc/passwd", "."} {
		if _, err := s.Open(bad); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q) err = %v, want ErrNotFound", bad, err)
		}
	}
}

func TestURL(t *testing.T) {
	at := time.Date(2025, 11, 4, 9, 5, 7, 0, time.UTC)
	if got := URL("A.pdf", at); got != "/documents/A.pdf?v=20251104090507" {
		t.Errorf("URL = %q", got)
	}
}

func TestParts(t *testing.T) {
	dir := writeDocs(t, "B.pdf", "A.pdf", "notes.txt", "sub/C.pdf")
	parts, err := New(dir, 0).Parts()
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 || parts[0] != "A" || parts[1] != "B" {
		t.Errorf("Parts = %v", parts)
	}

	if _, err := New(filepath.Join(dir, "missing"), 0).Parts(); err == nil {
		t.Error("missing dir should fail")
	}
}
