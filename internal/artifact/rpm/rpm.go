// Package rpm implements the artifact family for RPM packages. The logical
// name carries the distribution and architecture (name.distro.arch) so the
// same package built for several distros indexes independently, and the
// version key strips the distro token from the release so rebuilds compare
// naturally.
package rpm

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/models"
	"github.com/dcaro/repoman/internal/version"
	"github.com/sassoftware/go-rpmutils"
)

// DefaultDistroPattern matches the distribution token in a release string
// ("1.el7.centos" -> "el7").
const DefaultDistroPattern = `\.(fc|el)\d+`

// Options tune how the family derives identity from RPM headers.
type Options struct {
	// DistroPattern extracts the distribution from the release string.
	// Empty means DefaultDistroPattern.
	DistroPattern string
	// AllDistroNames are package-name patterns that apply to every
	// distribution regardless of their release string.
	AllDistroNames []string
}

// Family implements artifact.Family for RPM files.
type Family struct {
	distroPattern *regexp.Regexp
	allDistros    []*regexp.Regexp
}

// NewFamily creates the RPM artifact family.
func NewFamily(opts Options) (*Family, error) {
	pattern := opts.DistroPattern
	if pattern == "" {
		pattern = DefaultDistroPattern
	}
	distroRe, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &models.RepoError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("bad distro pattern %q: %w", pattern, err),
		}
	}

	f := &Family{distroPattern: distroRe}
	for _, name := range opts.AllDistroNames {
		re, err := regexp.Compile(name)
		if err != nil {
			return nil, &models.RepoError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("bad all-distros pattern %q: %w", name, err),
			}
		}
		f.allDistros = append(f.allDistros, re)
	}
	return f, nil
}

// Format returns the registry key for this family.
func (f *Family) Format() string {
	return "rpm"
}

// Matches reports whether path names an RPM file.
func (f *Family) Matches(path string) bool {
	return strings.HasSuffix(path, ".rpm")
}

// New constructs an RPM artifact by reading the package header.
func (f *Family) New(path string) (artifact.Artifact, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, &models.RepoError{
			Type:     models.ErrMalformedPath,
			Artifact: path,
			Err:      err,
		}
	}
	defer fd.Close()

	pkg, err := rpmutils.ReadRpm(fd)
	if err != nil {
		return nil, &models.RepoError{
			Type:     models.ErrMalformedPath,
			Artifact: path,
			Err:      fmt.Errorf("failed to read RPM header: %w", err),
		}
	}

	name := getStringTag(pkg, rpmutils.NAME)
	ver := getStringTag(pkg, rpmutils.VERSION)
	release := getStringTag(pkg, rpmutils.RELEASE)
	arch := getStringTag(pkg, rpmutils.ARCH)
	if arch == "" {
		arch = "none"
	}
	// Binary packages carry the name of the source RPM they were built
	// from; source packages do not.
	isSource := getStringTag(pkg, rpmutils.SOURCERPM) == ""

	distro, err := f.distro(path, name, release)
	if err != nil {
		return nil, err
	}

	file, err := artifact.NewFile(path)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		File:       file,
		name:       name,
		version:    ver,
		release:    release,
		arch:       arch,
		distro:     distro,
		isSource:   isSource,
		verRel:     version.NewKey(verRel(ver, release, distro)),
		compressor: getStringTag(pkg, rpmutils.PAYLOADCOMPRESSOR),
	}, nil
}

func (f *Family) distro(path, name, release string) (string, error) {
	for _, re := range f.allDistros {
		if re.MatchString(name) {
			return "all", nil
		}
	}
	if match := f.distroPattern.FindString(release); match != "" {
		return match[1:], nil
	}
	return "", &models.RepoError{
		Type:     models.ErrMalformedPath,
		Artifact: path,
		Err:      fmt.Errorf("unknown distro in release %q", release),
	}
}

// verRel builds the comparable version-release string, with the distro token
// removed from the release so "1.el7" and "1.el8" rebuilds of the same
// package compare equal.
func verRel(ver, release, distro string) string {
	if distro != "" {
		re, err := regexp.Compile(`\.` + regexp.QuoteMeta(distro) + `[^.]*`)
		if err == nil {
			release = re.ReplaceAllString(release, "")
		}
	}
	return ver + "-" + release
}

// Artifact is one RPM file.
type Artifact struct {
	artifact.File

	name       string
	version    string
	release    string
	arch       string
	distro     string
	isSource   bool
	verRel     version.Key
	compressor string
}

// Name is the logical name: name.distro.arch.
func (a *Artifact) Name() string {
	return fmt.Sprintf("%s.%s.%s", a.name, a.distro, a.arch)
}

// Version is the distro-stripped version-release key.
func (a *Artifact) Version() version.Key {
	return a.verRel
}

// Extension distinguishes source from binary packages.
func (a *Artifact) Extension() string {
	if a.isSource {
		return ".src.rpm"
	}
	return ".rpm"
}

// Kind returns the family discriminator.
func (a *Artifact) Kind() artifact.Kind {
	if a.isSource {
		return artifact.KindSource
	}
	return artifact.KindPackage
}

// IsSource reports whether this is a source RPM.
func (a *Artifact) IsSource() bool {
	return a.isSource
}

// Distro is the distribution this package targets ("el7", or "all").
func (a *Artifact) Distro() string {
	return a.distro
}

// Arch is the package architecture from the header.
func (a *Artifact) Arch() string {
	return a.arch
}

// PackageName is the bare header name, without distro or arch.
func (a *Artifact) PackageName() string {
	return a.name
}

// PackageVersion is the bare header version, without the release.
func (a *Artifact) PackageVersion() string {
	return a.version
}

// Release is the full release string from the header.
func (a *Artifact) Release() string {
	return a.release
}

// CanonicalPath lays packages out as rpm/distro/arch with sources under
// SRPMS, mirroring a yum repository tree.
func (a *Artifact) CanonicalPath() string {
	archDir, archName := a.arch, a.arch
	if a.isSource {
		archDir, archName = "SRPMS", "src"
	}
	return fmt.Sprintf("rpm/%s/%s/%s-%s-%s.%s.rpm",
		a.distro, archDir, a.name, a.version, a.release, archName)
}

// Sign writes a detached signature beside the package file.
func (a *Artifact) Sign(s artifact.Signer) error {
	return s.SignFile(a.Path())
}

// String uniquely identifies the RPM file for logs.
func (a *Artifact) String() string {
	srcBin := "bin"
	if a.isSource {
		srcBin = "src"
	}
	return fmt.Sprintf("rpm(%s %s %s %s %s)",
		a.name, a.version, a.release, a.arch, srcBin)
}

// getStringTag safely gets a string tag from an RPM header
func getStringTag(pkg *rpmutils.Rpm, tag int) string {
	val, err := pkg.Header.Get(tag)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	default:
		return fmt.Sprintf("%v", v)
	}

	return ""
}
