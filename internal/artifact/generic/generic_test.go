package generic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/models"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename string
		name     string
		version  string
		ext      string
		kind     artifact.Kind
	}{
		{"mytool-1.0.tar.gz", "mytool", "1.0", ".tar.gz", artifact.KindSource},
		{"mytool-1.0-2.tar.xz", "mytool", "1.0-2", ".tar.xz", artifact.KindSource},
		{"my-long-tool-2.3.1.zip", "my-long-tool", "2.3.1", ".zip", artifact.KindSource},
		{"mytool-1.0.tar.gz.sig", "mytool", "1.0", ".tar.gz.sig", artifact.KindSignature},
		{"fix-build-0.1.patch", "fix-build", "0.1", ".patch", artifact.KindSource},
	}

	tmpDir := t.TempDir()
	family := NewFamily()

	for _, tt := range tests {
		path := touch(t, tmpDir, tt.filename)
		if !family.Matches(path) {
			t.Errorf("Matches(%q) = false", tt.filename)
			continue
		}

		art, err := family.New(path)
		if err != nil {
			t.Errorf("New(%q) failed: %v", tt.filename, err)
			continue
		}
		if art.Name() != tt.name {
			t.Errorf("%q: name = %q, want %q", tt.filename, art.Name(), tt.name)
		}
		if art.Version().String() != tt.version {
			t.Errorf("%q: version = %q, want %q", tt.filename, art.Version(), tt.version)
		}
		if art.Extension() != tt.ext {
			t.Errorf("%q: extension = %q, want %q", tt.filename, art.Extension(), tt.ext)
		}
		if art.Kind() != tt.kind {
			t.Errorf("%q: kind = %v, want %v", tt.filename, art.Kind(), tt.kind)
		}
	}
}

func TestParseRejectsMalformedNames(t *testing.T) {
	family := NewFamily()

	for _, bad := range []string{
		"noversion.tar.gz",
		"mytool-1.0.unknownext",
		"mytool.tar.gz",
		"http://example.com/packages/",
	} {
		if family.Matches(bad) {
			t.Errorf("Matches(%q) = true", bad)
		}
		_, err := family.New(bad)
		if !models.IsType(err, models.ErrMalformedPath) {
			t.Errorf("New(%q) error = %v, want MalformedPath", bad, err)
		}
	}
}

func TestCanonicalPath(t *testing.T) {
	tmpDir := t.TempDir()
	family := NewFamily()

	art, err := family.New(touch(t, tmpDir, "mytool-1.0.tar.gz"))
	if err != nil {
		t.Fatal(err)
	}

	want := "mytool/1.0/mytool-1.0.tar.gz"
	if got := art.CanonicalPath(); got != want {
		t.Errorf("CanonicalPath() = %q, want %q", got, want)
	}
}

func TestChecksumLazyAndCached(t *testing.T) {
	tmpDir := t.TempDir()
	family := NewFamily()

	path := touch(t, tmpDir, "mytool-1.0.tar.gz")
	art, err := family.New(path)
	if err != nil {
		t.Fatal(err)
	}

	first, err := art.Checksum()
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	if first == "" {
		t.Fatal("empty checksum")
	}

	// The cached value survives even when the file changes underneath;
	// only an explicit recomputation rereads.
	if err := os.WriteFile(path, []byte("changed"), 0644); err != nil {
		t.Fatal(err)
	}
	second, err := art.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("checksum was recomputed implicitly")
	}
}

func TestContentIdentitySharedByHardlinks(t *testing.T) {
	tmpDir := t.TempDir()
	family := NewFamily()

	path := touch(t, tmpDir, "mytool-1.0.tar.gz")
	link := filepath.Join(tmpDir, "mytool-1.0-copy.tar.gz")
	if err := os.Link(path, link); err != nil {
		t.Skipf("hardlinks unavailable: %v", err)
	}

	a, err := family.New(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := family.New(link)
	if err != nil {
		t.Fatal(err)
	}

	if a.ContentID() != b.ContentID() {
		t.Errorf("hardlinked files got different content IDs: %s vs %s",
			a.ContentID(), b.ContentID())
	}

	other, err := family.New(touch(t, tmpDir, "mytool-2.0.tar.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if a.ContentID() == other.ContentID() {
		t.Error("independent files share a content ID")
	}
}
