// Package generic implements the artifact family for plain versioned files
// following the name-version.extension convention (release tarballs, patches
// and their detached signatures).
package generic

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/models"
	"github.com/dcaro/repoman/internal/version"
)

// Extensions this family recognizes, longest first so ".tar.gz" wins over
// ".gz".
var knownExtensions = []string{
	".tar.bz2",
	".tar.gz",
	".tar.xz",
	".tgz",
	".zip",
	".7z",
	".gz",
	".xz",
	".patch",
	".iso",
}

// stemPattern splits "name-version" with the shortest name such that the
// version starts with a digit, so "my-tool-1.2.3-0.1" keeps its dashed name.
var stemPattern = regexp.MustCompile(`^(.+?)-(\d.*)$`)

// Family implements artifact.Family for generic versioned files.
type Family struct{}

// NewFamily creates the generic artifact family.
func NewFamily() *Family {
	return &Family{}
}

// Format returns the registry key for this family.
func (f *Family) Format() string {
	return "generic"
}

// Matches reports whether the filename follows the name-version.extension
// convention with a recognized extension.
func (f *Family) Matches(p string) bool {
	_, _, _, _, err := parseFilename(p)
	return err == nil
}

// New constructs a generic artifact from a local file.
func (f *Family) New(p string) (artifact.Artifact, error) {
	name, ver, ext, kind, err := parseFilename(p)
	if err != nil {
		return nil, err
	}

	file, err := artifact.NewFile(p)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		File:      file,
		name:      name,
		version:   version.NewKey(ver),
		extension: ext,
		kind:      kind,
	}, nil
}

func parseFilename(p string) (name, ver, ext string, kind artifact.Kind, err error) {
	base := path.Base(filepath.ToSlash(p))
	if base == "" || base == "." || base == "/" || strings.HasSuffix(p, "/") {
		return "", "", "", 0, &models.RepoError{
			Type:     models.ErrMalformedPath,
			Artifact: p,
			Err:      fmt.Errorf("no filename segment in %q", p),
		}
	}

	kind = artifact.KindSource
	sigSuffix := ""
	if strings.HasSuffix(base, ".sig") {
		kind = artifact.KindSignature
		sigSuffix = ".sig"
		base = strings.TrimSuffix(base, ".sig")
	}

	for _, known := range knownExtensions {
		if !strings.HasSuffix(base, known) {
			continue
		}
		stem := strings.TrimSuffix(base, known)
		match := stemPattern.FindStringSubmatch(stem)
		if match == nil {
			break
		}
		return match[1], match[2], known + sigSuffix, kind, nil
	}

	return "", "", "", 0, &models.RepoError{
		Type:     models.ErrMalformedPath,
		Artifact: p,
		Err:      fmt.Errorf("%q does not follow the name-version.extension convention", base),
	}
}

// Artifact is one generic versioned file.
type Artifact struct {
	artifact.File

	name      string
	version   version.Key
	extension string
	kind      artifact.Kind
}

// Name returns the artifact name.
func (a *Artifact) Name() string {
	return a.name
}

// Version returns the version-release key.
func (a *Artifact) Version() version.Key {
	return a.version
}

// Extension returns the filename suffix including the leading dot.
func (a *Artifact) Extension() string {
	return a.extension
}

// Kind returns the family discriminator.
func (a *Artifact) Kind() artifact.Kind {
	return a.kind
}

// CanonicalPath is name/version/name-version.extension, the layout the
// source tree uses.
func (a *Artifact) CanonicalPath() string {
	return fmt.Sprintf("%s/%s/%s-%s%s",
		a.name, a.version, a.name, a.version, a.extension)
}

// Sign writes a detached signature beside the file. Signature files are
// never themselves signed.
func (a *Artifact) Sign(s artifact.Signer) error {
	if a.kind == artifact.KindSignature {
		return nil
	}
	return s.SignFile(a.Path())
}

// String uniquely identifies the artifact file for logs.
func (a *Artifact) String() string {
	return fmt.Sprintf("generic(%s %s %s)", a.name, a.version, a.extension)
}
