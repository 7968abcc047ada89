package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/models"
	"github.com/dcaro/repoman/internal/version"
)

// testArtifact is a minimal in-memory artifact for index-level tests.
type testArtifact struct {
	name      string
	ver       version.Key
	path      string
	contentID string
	kind      artifact.Kind
}

func (t *testArtifact) Name() string             { return t.name }
func (t *testArtifact) Version() version.Key     { return t.ver }
func (t *testArtifact) Extension() string        { return ".rpm" }
func (t *testArtifact) Kind() artifact.Kind      { return t.kind }
func (t *testArtifact) Path() string             { return t.path }
func (t *testArtifact) SetPath(p string)         { t.path = p }
func (t *testArtifact) ContentID() string        { return t.contentID }
func (t *testArtifact) Checksum() (string, error) { return "d41d8cd98f00b204e9800998ecf8427e", nil }
func (t *testArtifact) CanonicalPath() string {
	return fmt.Sprintf("%s/%s/%s-%s.rpm", t.name, t.ver, t.name, t.ver)
}
func (t *testArtifact) Sign(artifact.Signer) error { return nil }

func newTestArtifact(name, ver, path, contentID string) *testArtifact {
	return &testArtifact{
		name:      name,
		ver:       version.NewKey(ver),
		path:      path,
		contentID: contentID,
		kind:      artifact.KindPackage,
	}
}

// fsArtifact creates a real file under dir and returns an artifact pointing
// at it, keyed by the file's actual inode.
func fsArtifact(t *testing.T, dir, name, ver, fname string) *testArtifact {
	t.Helper()

	path := filepath.Join(dir, fname)
	if err := os.WriteFile(path, []byte(fname), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}

	a, err := artifact.NewFile(path)
	if err != nil {
		t.Fatalf("Failed to derive identity for %s: %v", path, err)
	}

	return &testArtifact{
		name:      name,
		ver:       version.NewKey(ver),
		path:      path,
		contentID: a.ContentID(),
		kind:      artifact.KindPackage,
	}
}

func TestAddArtifactIdempotentGrouping(t *testing.T) {
	c := New()

	c.AddArtifact(newTestArtifact("pkg", "1.0-1", "/repo/a.rpm", "ino:7"), false)
	c.AddArtifact(newTestArtifact("pkg", "1.0-1", "/repo/other/a.rpm", "ino:7"), false)

	idx, ok := c.Name("pkg")
	if !ok {
		t.Fatal("name index missing after add")
	}
	bucket, ok := idx.Bucket(version.NewKey("1.0-1"))
	if !ok {
		t.Fatal("version bucket missing after add")
	}

	groups := bucket.Groups()
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].Len() != 2 {
		t.Fatalf("got %d members, want 2", groups[0].Len())
	}
}

func TestAddArtifactDistinctContentMakesNewGroup(t *testing.T) {
	c := New()

	c.AddArtifact(newTestArtifact("pkg", "1.0-1", "/repo/a.rpm", "ino:7"), false)
	created := false
	idx, _ := c.Name("pkg")
	bucket, _ := idx.Bucket(version.NewKey("1.0-1"))
	created = bucket.AddArtifact(newTestArtifact("pkg", "1.0-1", "/repo/b.rpm", "ino:8"))

	if !created {
		t.Error("distinct content identity should create a new group")
	}
	if len(bucket.Groups()) != 2 {
		t.Fatalf("got %d groups, want 2", len(bucket.Groups()))
	}
}

func TestOnlyIfNewerGate(t *testing.T) {
	c := New()

	c.AddArtifact(newTestArtifact("pkg", "1.0-1", "/repo/a.rpm", "ino:1"), false)
	c.AddArtifact(newTestArtifact("pkg", "2.0-1", "/repo/b.rpm", "ino:2"), false)

	if c.AddArtifact(newTestArtifact("pkg", "1.5-1", "/repo/c.rpm", "ino:3"), true) {
		t.Error("1.5-1 admitted although 2.0-1 is indexed")
	}
	if c.AddArtifact(newTestArtifact("pkg", "2.0-1", "/repo/d.rpm", "ino:4"), true) {
		t.Error("equal version admitted under onlyIfNewer")
	}
	if !c.AddArtifact(newTestArtifact("pkg", "3.0-1", "/repo/e.rpm", "ino:5"), true) {
		t.Error("strictly newer 3.0-1 rejected")
	}

	idx, _ := c.Name("pkg")
	if got := len(idx.Versions()); got != 3 {
		t.Fatalf("got %d versions, want 3", got)
	}
}

func TestLatestVersionsOrdering(t *testing.T) {
	idx := NewNameIndex("pkg")
	for i, ver := range []string{"1.9-1", "1.10-1", "0.9-1", "2.0-1"} {
		idx.AddArtifact(newTestArtifact("pkg", ver, fmt.Sprintf("/repo/%d.rpm", i), fmt.Sprintf("ino:%d", i)), false)
	}

	latest := idx.LatestVersions(2)
	if len(latest) != 2 {
		t.Fatalf("got %d buckets, want 2", len(latest))
	}
	if got := latest[0].Version().String(); got != "2.0-1" {
		t.Errorf("latest[0] = %s, want 2.0-1", got)
	}
	if got := latest[1].Version().String(); got != "1.10-1" {
		t.Errorf("latest[1] = %s, want 1.10-1", got)
	}

	// Zero and out-of-range counts return everything, still descending.
	for _, num := range []int{0, 10} {
		all := idx.LatestVersions(num)
		if len(all) != 4 {
			t.Fatalf("LatestVersions(%d) returned %d buckets, want 4", num, len(all))
		}
		if got := all[3].Version().String(); got != "0.9-1" {
			t.Errorf("oldest = %s, want 0.9-1", got)
		}
	}

	empty := NewNameIndex("none")
	if got := empty.LatestVersions(1); len(got) != 0 {
		t.Errorf("empty index returned %d buckets", len(got))
	}
}

func TestRetainKeepsNewestAndDeletesFiles(t *testing.T) {
	tmpDir := t.TempDir()
	c := New()

	versions := []string{"1.0-1", "1.1-1", "2.0-1", "2.1-1"}
	for i, ver := range versions {
		c.AddArtifact(fsArtifact(t, tmpDir, "pkg", ver, fmt.Sprintf("pkg-%d.rpm", i)), false)
	}

	removed, err := c.Retain(2, false)
	if err != nil {
		t.Fatalf("Retain failed: %v", err)
	}

	if len(removed) != 2 {
		t.Fatalf("got %d removed artifacts, want 2", len(removed))
	}
	// Oldest first.
	if removed[0].Version().String() != "1.0-1" || removed[1].Version().String() != "1.1-1" {
		t.Errorf("removed versions %s, %s; want 1.0-1, 1.1-1",
			removed[0].Version(), removed[1].Version())
	}
	for _, a := range removed {
		if _, err := os.Stat(a.Path()); !os.IsNotExist(err) {
			t.Errorf("%s still exists after retention", a.Path())
		}
	}

	idx, _ := c.Name("pkg")
	left := idx.Versions()
	if len(left) != 2 || left[0].String() != "2.1-1" || left[1].String() != "2.0-1" {
		t.Fatalf("surviving versions %v, want [2.1-1 2.0-1]", left)
	}
	for _, a := range idx.Collect(nil, 0) {
		if _, err := os.Stat(a.Path()); err != nil {
			t.Errorf("kept artifact %s missing: %v", a.Path(), err)
		}
	}
}

func TestRetainRemovesEveryHardlinkPath(t *testing.T) {
	tmpDir := t.TempDir()
	c := New()

	old := fsArtifact(t, tmpDir, "pkg", "1.0-1", "pkg-1.0.rpm")
	linkPath := filepath.Join(tmpDir, "pkg-1.0-link.rpm")
	if err := os.Link(old.Path(), linkPath); err != nil {
		t.Skipf("hardlinks unavailable: %v", err)
	}
	link := &testArtifact{
		name:      "pkg",
		ver:       version.NewKey("1.0-1"),
		path:      linkPath,
		contentID: old.ContentID(),
		kind:      artifact.KindPackage,
	}
	c.AddArtifact(old, false)
	c.AddArtifact(link, false)
	c.AddArtifact(fsArtifact(t, tmpDir, "pkg", "2.0-1", "pkg-2.0.rpm"), false)

	removed, err := c.Retain(1, false)
	if err != nil {
		t.Fatalf("Retain failed: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("got %d removed, want both hardlink paths", len(removed))
	}
	for _, p := range []string{old.Path(), linkPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still linked after retention", p)
		}
	}
}

func TestRetainDryRunIsPure(t *testing.T) {
	tmpDir := t.TempDir()
	c := New()

	for i, ver := range []string{"1.0-1", "2.0-1", "3.0-1"} {
		c.AddArtifact(fsArtifact(t, tmpDir, "pkg", ver, fmt.Sprintf("pkg-%d.rpm", i)), false)
	}

	before := c.Query(nil, nil, 0)

	removed, err := c.Retain(1, true)
	if err != nil {
		t.Fatalf("Retain dry-run failed: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("dry-run reported %d removals, want 2", len(removed))
	}

	after := c.Query(nil, nil, 0)
	if len(after) != len(before) {
		t.Fatalf("dry-run mutated the catalog: %d -> %d artifacts", len(before), len(after))
	}
	for _, a := range after {
		if _, err := os.Stat(a.Path()); err != nil {
			t.Errorf("dry-run touched %s: %v", a.Path(), err)
		}
	}
}

func TestRetainRejectsNonPositiveKeep(t *testing.T) {
	tmpDir := t.TempDir()
	c := New()
	a := fsArtifact(t, tmpDir, "pkg", "1.0-1", "pkg.rpm")
	c.AddArtifact(a, false)

	for _, keep := range []int{0, -3} {
		removed, err := c.Retain(keep, false)
		if err == nil {
			t.Fatalf("Retain(%d) succeeded", keep)
		}
		if !models.IsType(err, models.ErrInvalidRetention) {
			t.Errorf("Retain(%d) error type %v, want InvalidRetention", keep, err)
		}
		if removed != nil {
			t.Errorf("Retain(%d) reported removals", keep)
		}
		if _, err := os.Stat(a.Path()); err != nil {
			t.Errorf("Retain(%d) touched files: %v", keep, err)
		}
	}
}

func TestCascadeRemovesEmptiedLevels(t *testing.T) {
	tmpDir := t.TempDir()
	c := New()

	a := fsArtifact(t, tmpDir, "pkg", "1.0-1", "pkg.rpm")
	c.AddArtifact(a, false)

	removed, err := c.DeleteVersion("pkg", version.NewKey("1.0-1"), false)
	if err != nil {
		t.Fatalf("DeleteVersion failed: %v", err)
	}
	if len(removed) != 1 {
		t.Fatalf("reported %d removals, want 1", len(removed))
	}

	if _, ok := c.Name("pkg"); ok {
		t.Error("emptied name index still present in catalog")
	}
	if !c.Empty() {
		t.Error("catalog not empty after last version removed")
	}
}

func TestDeleteVersionAbsentIsNoop(t *testing.T) {
	c := New()
	if _, err := c.DeleteVersion("ghost", version.NewKey("1.0-1"), false); err != nil {
		t.Fatalf("absent name errored: %v", err)
	}

	c.AddArtifact(newTestArtifact("pkg", "1.0-1", "/repo/a.rpm", "ino:1"), false)
	if _, err := c.DeleteVersion("pkg", version.NewKey("9.9-9"), false); err != nil {
		t.Fatalf("absent version errored: %v", err)
	}
	if _, ok := c.Name("pkg"); !ok {
		t.Error("no-op delete removed the name index")
	}
}

func TestDeleteToleratesAlreadyAbsentFiles(t *testing.T) {
	tmpDir := t.TempDir()
	c := New()

	a := fsArtifact(t, tmpDir, "pkg", "1.0-1", "pkg.rpm")
	c.AddArtifact(a, false)

	// Simulate a previous partial run.
	if err := os.Remove(a.Path()); err != nil {
		t.Fatal(err)
	}

	if _, err := c.DeleteVersion("pkg", version.NewKey("1.0-1"), false); err != nil {
		t.Fatalf("already-absent file treated as failure: %v", err)
	}
}

func TestRetainReportsOnlyDeletedOnFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file removal cannot be made to fail as root")
	}

	tmpDir := t.TempDir()
	roDir := filepath.Join(tmpDir, "ro")
	if err := os.MkdirAll(roDir, 0755); err != nil {
		t.Fatal(err)
	}

	c := New()
	stuck := fsArtifact(t, roDir, "pkg", "1.0-1", "pkg-1.0.rpm")
	prunable := fsArtifact(t, tmpDir, "pkg", "1.1-1", "pkg-1.1.rpm")
	c.AddArtifact(stuck, false)
	c.AddArtifact(prunable, false)
	c.AddArtifact(fsArtifact(t, tmpDir, "pkg", "2.0-1", "pkg-2.0.rpm"), false)

	if err := os.Chmod(roDir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(roDir, 0755) })

	removed, err := c.Retain(1, false)
	if !models.IsType(err, models.ErrFileRemoval) {
		t.Fatalf("got %v, want FileRemoval", err)
	}
	if len(removed) != 1 || removed[0].Path() != prunable.Path() {
		t.Fatalf("removal report %v, want only %s", removed, prunable.Path())
	}
	if _, err := os.Stat(stuck.Path()); err != nil {
		t.Errorf("undeletable artifact vanished: %v", err)
	}
}

func TestQueryFilters(t *testing.T) {
	c := New()
	c.AddArtifact(newTestArtifact("alpha", "1.0-1", "/repo/alpha-1.0.rpm", "ino:1"), false)
	c.AddArtifact(newTestArtifact("alpha", "2.0-1", "/repo/alpha-2.0.rpm", "ino:2"), false)
	c.AddArtifact(newTestArtifact("beta", "1.0-1", "/repo/beta-1.0.rpm", "ino:3"), false)

	if got := len(c.Query(nil, nil, 0)); got != 3 {
		t.Fatalf("unfiltered query returned %d, want 3", got)
	}

	re := regexp.MustCompile(`alpha-.*\.rpm$`)
	if got := len(c.Query(re, nil, 0)); got != 2 {
		t.Errorf("regex query returned %d, want 2", got)
	}

	// When both filters are supplied only the regex is honored.
	none := func(artifact.Artifact) bool { return false }
	if got := len(c.Query(re, none, 0)); got != 2 {
		t.Errorf("regex+predicate query returned %d, want 2 (regex wins)", got)
	}

	pred := func(a artifact.Artifact) bool { return a.Name() == "beta" }
	if got := len(c.Query(nil, pred, 0)); got != 1 {
		t.Errorf("predicate query returned %d, want 1", got)
	}

	if got := len(c.Query(nil, nil, 1)); got != 2 {
		t.Errorf("latest-1 query returned %d, want one artifact per name", got)
	}
}

func TestGroupFilterDoesNotMutate(t *testing.T) {
	g := NewInodeGroup("ino:1")
	g.Add(newTestArtifact("pkg", "1.0-1", "/repo/a.rpm", "ino:1"))
	g.Add(newTestArtifact("pkg", "1.0-1", "/repo/b.rpm", "ino:1"))

	filtered := g.Filter(func(a artifact.Artifact) bool {
		return a.Path() == "/repo/a.rpm"
	})
	if len(filtered) != 1 {
		t.Fatalf("filter returned %d members, want 1", len(filtered))
	}
	if g.Len() != 2 {
		t.Errorf("filter mutated the group: %d members left", g.Len())
	}
}
