package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dcaro/repoman/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// indexFileName is the catalog snapshot written at the repo root.
const indexFileName = "repoman.index.yaml"

type indexFile struct {
	Artifacts []indexArtifact `yaml:"artifacts"`
}

type indexArtifact struct {
	Name    string       `yaml:"name"`
	Version string       `yaml:"version"`
	Groups  []indexGroup `yaml:"groups"`
}

type indexGroup struct {
	ContentID string       `yaml:"content_id"`
	Files     []indexEntry `yaml:"files"`
}

type indexEntry struct {
	Path     string `yaml:"path"`
	Checksum string `yaml:"checksum"`
}

// writeIndex persists the catalog's shape (name, version, content-identity
// grouping, per-file checksum) to the repo root.
func (r *Repo) writeIndex() error {
	var idx indexFile

	for _, name := range r.catalog.Names() {
		nameIdx, _ := r.catalog.Name(name)
		for _, ver := range nameIdx.Versions() {
			bucket, _ := nameIdx.Bucket(ver)

			entry := indexArtifact{Name: name, Version: ver.String()}
			for _, group := range bucket.Groups() {
				ig := indexGroup{ContentID: group.ID()}
				for _, art := range group.Members() {
					sum, err := art.Checksum()
					if err != nil {
						return &models.RepoError{
							Type:     models.ErrPersistence,
							Artifact: art.Path(),
							Err:      fmt.Errorf("failed to checksum: %w", err),
						}
					}
					ig.Files = append(ig.Files, indexEntry{
						Path:     r.relPath(art.Path()),
						Checksum: sum,
					})
				}
				entry.Groups = append(entry.Groups, ig)
			}
			idx.Artifacts = append(idx.Artifacts, entry)
		}
	}

	data, err := yaml.Marshal(&idx)
	if err != nil {
		return &models.RepoError{Type: models.ErrPersistence, Err: err}
	}

	path := filepath.Join(r.path, indexFileName)
	if err := os.MkdirAll(r.path, 0755); err != nil {
		return &models.RepoError{Type: models.ErrPersistence, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &models.RepoError{
			Type: models.ErrPersistence,
			Err:  fmt.Errorf("failed to write index: %w", err),
		}
	}
	return nil
}

// readIndexChecksums returns the persisted path -> checksum map, empty when
// no index exists or it cannot be parsed (the tree itself stays
// authoritative).
func (r *Repo) readIndexChecksums() map[string]string {
	sums := make(map[string]string)

	data, err := os.ReadFile(filepath.Join(r.path, indexFileName))
	if err != nil {
		return sums
	}

	var idx indexFile
	if err := yaml.Unmarshal(data, &idx); err != nil {
		logrus.Warnf("Ignoring unreadable index: %v", err)
		return sums
	}

	for _, art := range idx.Artifacts {
		for _, group := range art.Groups {
			for _, file := range group.Files {
				if file.Checksum != "" {
					sums[file.Path] = file.Checksum
				}
			}
		}
	}
	return sums
}
