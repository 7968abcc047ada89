package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dcaro/repoman/internal/artifact/rpm"
	"github.com/sirupsen/logrus"
)

// GenerateSources populates src/<name>/ with the upstream archives carried by
// every source RPM in the repo, optionally including patches, and signs the
// extracted files when a key is configured.
func (r *Repo) GenerateSources(withPatches bool) error {
	var srcRPMs []*rpm.Artifact
	for _, art := range r.catalog.Query(nil, nil, 0) {
		if pkg, ok := art.(*rpm.Artifact); ok && pkg.IsSource() {
			srcRPMs = append(srcRPMs, pkg)
		}
	}

	if len(srcRPMs) == 0 {
		logrus.Warn("No source RPMs indexed, nothing to extract")
		return nil
	}

	for _, pkg := range srcRPMs {
		dstDir := filepath.Join(r.path, "src", pkg.PackageName())
		logrus.Infof("Extracting sources from %s into %s", pkg.Path(), dstDir)

		if err := pkg.ExtractSources(dstDir, withPatches); err != nil {
			return fmt.Errorf("failed to extract %s: %w", pkg, err)
		}

		if r.signer != nil {
			if err := r.signTree(dstDir); err != nil {
				return err
			}
		}
	}
	return nil
}

// signTree detached-signs every unsigned file under dir.
func (r *Repo) signTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if strings.HasSuffix(path, ".sig") {
			return nil
		}
		if _, err := os.Stat(path + ".sig"); err == nil {
			return nil
		}
		return r.signer.SignFile(path)
	})
}
