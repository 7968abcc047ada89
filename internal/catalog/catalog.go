// Package catalog implements the four-level artifact index:
//
//	Catalog 1-* NameIndex 1-* VersionBucket 1-* InodeGroup 1-* Artifact
//
// Each level enforces its own invariants (cascading removal of emptied
// containers, version-ordered retention, dry-run purity) instead of leaving
// them to caller discipline.
package catalog

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/models"
	"github.com/dcaro/repoman/internal/version"
	"github.com/sirupsen/logrus"
)

// Catalog is the root index over every artifact name in the repository.
type Catalog struct {
	names map[string]*NameIndex
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{names: make(map[string]*NameIndex)}
}

// AddArtifact files the artifact under its name, creating the name index on
// first sight. This is the sole ingestion entry point. Reports whether the
// artifact was admitted (only the onlyIfNewer gate can reject).
func (c *Catalog) AddArtifact(a artifact.Artifact, onlyIfNewer bool) bool {
	name := a.Name()
	idx, ok := c.names[name]
	if !ok {
		idx = NewNameIndex(name)
		c.names[name] = idx
	}

	admitted := idx.AddArtifact(a, onlyIfNewer)
	if !admitted && idx.Empty() {
		delete(c.names, name)
	}
	return admitted
}

// Names returns the indexed artifact names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the index for one artifact name, if present.
func (c *Catalog) Name(name string) (*NameIndex, bool) {
	idx, ok := c.names[name]
	return idx, ok
}

// Empty reports whether the catalog holds no artifacts.
func (c *Catalog) Empty() bool {
	return len(c.names) == 0
}

// DeleteVersion removes one (name, version) pair, deleting its files, and
// returns the artifacts actually removed. Absent names or versions are a
// no-op. A name index left empty is removed.
func (c *Catalog) DeleteVersion(name string, ver version.Key, dryRun bool) ([]artifact.Artifact, error) {
	idx, ok := c.names[name]
	if !ok {
		return nil, nil
	}

	removed, err := idx.DeleteVersion(ver, dryRun)
	if !dryRun && idx.Empty() {
		delete(c.names, name)
	}
	return removed, err
}

// Retain keeps only the keep newest versions of every name and deletes the
// rest. It returns the artifacts actually removed (or, under dryRun, the ones
// that would have been), per name in version order oldest first. A failing
// group aborts only itself and its members stay out of the report; retention
// continues across groups and names, and the first failure is reported after
// the sweep.
func (c *Catalog) Retain(keep int, dryRun bool) ([]artifact.Artifact, error) {
	if keep <= 0 {
		return nil, &models.RepoError{
			Type: models.ErrInvalidRetention,
			Err:  fmt.Errorf("number of versions to keep must be positive, got %d", keep),
		}
	}

	var removed []artifact.Artifact
	var firstErr error

	for _, name := range c.Names() {
		idx := c.names[name]

		kept := make(map[string]bool)
		for _, bucket := range idx.LatestVersions(keep) {
			kept[bucket.Version().String()] = true
		}

		// Oldest first so the removal report reads chronologically.
		versions := idx.Versions()
		for i := len(versions) - 1; i >= 0; i-- {
			ver := versions[i]
			if kept[ver.String()] {
				continue
			}

			logrus.Debugf("Removing %s version %s", name, ver)
			gone, err := c.DeleteVersion(name, ver, dryRun)
			removed = append(removed, gone...)
			if err != nil {
				logrus.Warnf("Failed to fully remove %s %s: %v", name, ver, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	return removed, firstErr
}

// Query returns the flattened, filtered artifacts across the whole catalog.
// A regexp filters by artifact path; when it is given, pred is ignored so
// the filter semantics stay unambiguous. latestN restricts each name to its
// newest latestN versions before filtering.
func (c *Catalog) Query(re *regexp.Regexp, pred Predicate, latestN int) []artifact.Artifact {
	if re != nil {
		pred = func(a artifact.Artifact) bool {
			return re.MatchString(a.Path())
		}
	}

	var out []artifact.Artifact
	for _, name := range c.Names() {
		out = append(out, c.names[name].Collect(pred, latestN)...)
	}
	return out
}
