// Package artifact defines the contract every artifact family (RPM, generic
// tarball, ...) satisfies so the catalog can index, place and sign files
// without knowing their format.
package artifact

import (
	"fmt"
	"strings"

	"github.com/dcaro/repoman/internal/models"
	"github.com/dcaro/repoman/internal/version"
)

// Kind discriminates the artifact families within a repository.
type Kind int

const (
	KindPackage Kind = iota
	KindSource
	KindSignature
	KindGeneric
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindSource:
		return "source"
	case KindSignature:
		return "signature"
	default:
		return "generic"
	}
}

// Signer produces a detached signature file beside a target path.
type Signer interface {
	SignFile(path string) error
}

// Artifact is one physical file plus the identity derived from it. Name,
// version, extension and kind are fixed at construction; only the path moves,
// and only through SetPath.
type Artifact interface {
	// Name is the logical artifact name ("ovirt-engine.el7.x86_64").
	Name() string
	// Version is the comparable version-release key.
	Version() version.Key
	// Extension is the filename suffix including the leading dot.
	Extension() string
	// Kind is the artifact family discriminator.
	Kind() Kind
	// Path is the current location on disk.
	Path() string
	// SetPath records a move or rename done by the repo layer.
	SetPath(path string)
	// ContentID is an opaque key identifying shared physical content
	// (inode number, or a content hash where inodes are meaningless). It
	// never stands in for logical identity.
	ContentID() string
	// Checksum returns the content hash, computing and caching it on
	// first use.
	Checksum() (string, error)
	// CanonicalPath is the repo-relative path the artifact should occupy,
	// regardless of where it currently is.
	CanonicalPath() string
	// Sign writes a detached signature beside the artifact.
	Sign(s Signer) error
}

// Family recognizes and constructs the artifacts of one format.
type Family interface {
	// Format is the registry key ("rpm", "generic").
	Format() string
	// Matches reports whether the file at path belongs to this family.
	Matches(path string) bool
	// New constructs an artifact from an already-materialized local file.
	New(path string) (Artifact, error)
}

// Registry holds the artifact families enabled for a run, in priority order.
type Registry struct {
	families []Family
}

// NewRegistry creates a registry over the given families.
func NewRegistry(families ...Family) *Registry {
	return &Registry{families: families}
}

// Select returns a registry restricted to the named formats, keeping the
// original priority order. Unknown names are an error so a typoed --stores
// flag fails loudly.
func (r *Registry) Select(formats []string) (*Registry, error) {
	byFormat := make(map[string]Family, len(r.families))
	for _, f := range r.families {
		byFormat[f.Format()] = f
	}

	selected := &Registry{}
	for _, name := range formats {
		name = strings.TrimSpace(name)
		f, ok := byFormat[name]
		if !ok {
			return nil, &models.RepoError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("unknown store %q", name),
			}
		}
		selected.families = append(selected.families, f)
	}
	return selected, nil
}

// Families returns the enabled families in priority order.
func (r *Registry) Families() []Family {
	return r.families
}

// FromPath constructs an artifact from the first family whose convention the
// path matches.
func (r *Registry) FromPath(path string) (Artifact, error) {
	for _, f := range r.families {
		if f.Matches(path) {
			return f.New(path)
		}
	}
	return nil, &models.RepoError{
		Type:     models.ErrMalformedPath,
		Artifact: path,
		Err:      fmt.Errorf("no artifact family matches %q", path),
	}
}
