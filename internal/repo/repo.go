// Package repo ties the pieces together: it loads a repository directory into
// the catalog, ingests new sources, prunes old versions, signs artifacts,
// publishes yum metadata and persists everything back to disk.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/artifact/generic"
	"github.com/dcaro/repoman/internal/artifact/rpm"
	"github.com/dcaro/repoman/internal/catalog"
	"github.com/dcaro/repoman/internal/config"
	"github.com/dcaro/repoman/internal/fileutil"
	"github.com/dcaro/repoman/internal/models"
	"github.com/dcaro/repoman/internal/signer"
	"github.com/dcaro/repoman/internal/source"
	"github.com/sirupsen/logrus"
)

// Repo is one repository directory plus its in-memory catalog. The on-disk
// tree is the source of truth between runs; the catalog only lives for one
// process invocation.
type Repo struct {
	path     string
	cfg      *config.Config
	registry *artifact.Registry
	catalog  *catalog.Catalog
	signer   signer.Signer
	loader   *source.Loader
}

// New opens the repository at path, building the artifact family registry
// from the config's store selection and indexing whatever the tree already
// holds.
func New(path string, cfg *config.Config) (*Repo, error) {
	rpmFamily, err := rpm.NewFamily(rpm.Options{
		DistroPattern:  cfg.RPM.DistroPattern,
		AllDistroNames: cfg.RPM.ToAllDistros,
	})
	if err != nil {
		return nil, err
	}

	registry := artifact.NewRegistry(rpmFamily, generic.NewFamily())
	if len(cfg.Stores) > 0 {
		registry, err = registry.Select(cfg.Stores)
		if err != nil {
			return nil, err
		}
	}

	var sgn signer.Signer
	if cfg.SigningKey != "" {
		sgn, err = signer.NewGPGSigner(cfg.SigningKey, cfg.SigningPassphrase)
		if err != nil {
			return nil, err
		}
		logrus.Debugf("Loaded signing key %s", cfg.SigningKey)
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir, err = os.MkdirTemp("", "repoman-")
		if err != nil {
			return nil, err
		}
	}

	r := &Repo{
		path:     strings.TrimSuffix(path, "/"),
		cfg:      cfg,
		registry: registry,
		catalog:  catalog.New(),
		signer:   sgn,
		loader:   source.NewLoader(tempDir),
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path is the repository root directory.
func (r *Repo) Path() string {
	return r.path
}

// Catalog exposes the in-memory index.
func (r *Repo) Catalog() *catalog.Catalog {
	return r.catalog
}

// load walks the repository tree and indexes every file a family recognizes.
// Checksums persisted by a previous run seed the artifact caches so a reload
// does not reread every package.
func (r *Repo) load() error {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		logrus.Debugf("Repo dir %s does not exist yet, starting empty", r.path)
		return nil
	}

	checksums := r.readIndexChecksums()

	count := 0
	err := filepath.Walk(r.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Yum metadata is regenerated, never indexed.
			if info.Name() == "repodata" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == indexFileName {
			return nil
		}

		art, err := r.registry.FromPath(path)
		if err != nil {
			logrus.Debugf("Skipping unrecognized file %s", path)
			return nil
		}

		if sum, ok := checksums[r.relPath(path)]; ok {
			if f, ok := art.(interface{ RestoreChecksum(string) }); ok {
				f.RestoreChecksum(sum)
			}
		}

		r.catalog.AddArtifact(art, false)
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load repo %s: %w", r.path, err)
	}

	logrus.Infof("Loaded repo %s with %d artifacts", r.path, count)
	return nil
}

// AddSource expands one source expression and ingests every artifact it
// yields. A malformed source aborts only itself; the caller decides whether
// the batch continues.
func (r *Repo) AddSource(expr string) error {
	paths, err := r.loader.Expand(expr)
	if err != nil {
		return err
	}

	for _, path := range paths {
		art, err := r.registry.FromPath(path)
		if err != nil {
			return err
		}

		if r.catalog.AddArtifact(art, r.cfg.OnlyIfNewer) {
			logrus.Infof("Adding %s", art)
		} else {
			logrus.Infof("Skipping %s, an equal or newer version is already indexed", art)
		}
	}
	return nil
}

// Save places every indexed artifact at its canonical path under the repo
// root (hardlinking where possible so retention sees shared content) and
// writes the index back. A failure here is fatal for the run: whatever the
// catalog holds in memory would otherwise be lost.
func (r *Repo) Save() error {
	for _, art := range r.catalog.Query(nil, nil, 0) {
		dst := filepath.Join(r.path, filepath.FromSlash(art.CanonicalPath()))
		if art.Path() == dst {
			continue
		}

		if _, err := os.Stat(dst); err == nil {
			logrus.Debugf("Not saving %s, already exists", dst)
			art.SetPath(dst)
			continue
		}

		logrus.Infof("Saving %s", dst)
		if err := fileutil.LinkOrCopy(art.Path(), dst); err != nil {
			return &models.RepoError{
				Type:     models.ErrPersistence,
				Artifact: art.Path(),
				Err:      fmt.Errorf("failed to place artifact: %w", err),
			}
		}

		// A detached signature travels with its artifact.
		if _, err := os.Stat(art.Path() + ".sig"); err == nil {
			if err := fileutil.LinkOrCopy(art.Path()+".sig", dst+".sig"); err != nil {
				return &models.RepoError{
					Type:     models.ErrPersistence,
					Artifact: art.Path() + ".sig",
					Err:      err,
				}
			}
		}

		art.SetPath(dst)
	}

	if err := r.writeIndex(); err != nil {
		return err
	}

	logrus.Debugf("Saved repo %s", r.path)
	return nil
}

// DeleteOld keeps the newest keep versions of every artifact name and
// removes the rest, reporting what was (or would have been) removed.
func (r *Repo) DeleteOld(keep int, noop bool) ([]artifact.Artifact, error) {
	return r.catalog.Retain(keep, noop)
}

// SignAll writes a detached signature beside every artifact that does not
// have one yet.
func (r *Repo) SignAll() error {
	if r.signer == nil {
		return &models.RepoError{
			Type: models.ErrSigning,
			Err:  fmt.Errorf("no signing key configured"),
		}
	}

	for _, art := range r.catalog.Query(nil, nil, 0) {
		if art.Kind() == artifact.KindSignature {
			continue
		}
		if _, err := os.Stat(art.Path() + ".sig"); err == nil {
			logrus.Debugf("Already signed: %s", art.Path())
			continue
		}
		if err := art.Sign(r.signer); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) relPath(path string) string {
	rel, err := filepath.Rel(r.path, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
