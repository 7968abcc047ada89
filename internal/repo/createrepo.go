package repo

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dcaro/repoman/internal/artifact/rpm"
	"github.com/dcaro/repoman/internal/fileutil"
	"github.com/sirupsen/logrus"
)

// Createrepo generates yum repodata for every distribution tree under
// rpm/<distro>: a compressed primary.xml plus repomd.xml. With a key
// configured, repomd.xml is detached-signed and the armored public key is
// published beside it so clients can import it.
func (r *Repo) Createrepo() error {
	byDistro := make(map[string][]*rpm.Artifact)
	for _, art := range r.catalog.Query(nil, nil, 0) {
		pkg, ok := art.(*rpm.Artifact)
		if !ok || pkg.IsSource() {
			continue
		}
		byDistro[pkg.Distro()] = append(byDistro[pkg.Distro()], pkg)
	}

	if len(byDistro) == 0 {
		logrus.Warn("No binary RPMs indexed, nothing to publish")
		return nil
	}

	distros := make([]string, 0, len(byDistro))
	for distro := range byDistro {
		distros = append(distros, distro)
	}
	sort.Strings(distros)

	for _, distro := range distros {
		if err := r.createrepoDistro(distro, byDistro[distro]); err != nil {
			return fmt.Errorf("failed to publish %s: %w", distro, err)
		}
	}
	return nil
}

func (r *Repo) createrepoDistro(distro string, packages []*rpm.Artifact) error {
	logrus.Infof("Generating repodata for %s (%d packages)", distro, len(packages))

	distroDir := filepath.Join(r.path, "rpm", distro)
	repodataDir := filepath.Join(distroDir, "repodata")
	if err := fileutil.EnsureDir(repodataDir); err != nil {
		return err
	}

	primaryXML, err := r.generatePrimaryXML(distroDir, packages)
	if err != nil {
		return fmt.Errorf("failed to generate primary.xml: %w", err)
	}

	compression := r.cfg.Createrepo.Compression
	compressed, ext, err := compress(primaryXML, compression)
	if err != nil {
		return fmt.Errorf("failed to compress primary.xml: %w", err)
	}

	primaryChecksum := fileutil.SHA256Sum(compressed)
	primaryName := fmt.Sprintf("%s-primary.xml.%s", primaryChecksum, ext)
	if err := fileutil.WriteFile(filepath.Join(repodataDir, primaryName), compressed, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", primaryName, err)
	}

	repomdXML, err := generateRepomdXML(primaryName, primaryChecksum,
		fileutil.SHA256Sum(primaryXML), int64(len(compressed)), int64(len(primaryXML)))
	if err != nil {
		return fmt.Errorf("failed to generate repomd.xml: %w", err)
	}

	repomdPath := filepath.Join(repodataDir, "repomd.xml")
	if err := fileutil.WriteFile(repomdPath, repomdXML, 0644); err != nil {
		return fmt.Errorf("failed to write repomd.xml: %w", err)
	}

	if r.signer != nil {
		signature, err := r.signer.SignDetached(repomdXML)
		if err != nil {
			return fmt.Errorf("failed to sign repomd.xml: %w", err)
		}
		if err := fileutil.WriteFile(repomdPath+".asc", signature, 0644); err != nil {
			return fmt.Errorf("failed to write repomd.xml.asc: %w", err)
		}

		pubKey, err := r.signer.GetPublicKey()
		if err != nil {
			return fmt.Errorf("failed to export public key: %w", err)
		}
		if err := fileutil.WriteFile(repomdPath+".key", pubKey, 0644); err != nil {
			return fmt.Errorf("failed to write repomd.xml.key: %w", err)
		}
	}

	return nil
}

func compress(data []byte, format string) (compressed []byte, ext string, err error) {
	switch format {
	case "xz":
		compressed, err = fileutil.XzCompress(data)
		return compressed, "xz", err
	case "zst", "zstd":
		compressed, err = fileutil.ZstdCompress(data)
		return compressed, "zst", err
	default:
		compressed, err = fileutil.GzipCompress(data)
		return compressed, "gz", err
	}
}

// XML structures for yum metadata

type metadata struct {
	XMLName       xml.Name `xml:"metadata"`
	Xmlns         string   `xml:"xmlns,attr"`
	XmlnsRpm      string   `xml:"xmlns:rpm,attr"`
	PackagesCount int      `xml:"packages,attr"`
	Packages      []xmlPkg `xml:"package"`
}

type xmlPkg struct {
	Type     string      `xml:"type,attr"`
	Name     string      `xml:"name"`
	Arch     string      `xml:"arch"`
	Version  xmlVersion  `xml:"version"`
	Checksum xmlChecksum `xml:"checksum"`
	Time     xmlTime     `xml:"time"`
	Size     xmlSize     `xml:"size"`
	Location xmlLocation `xml:"location"`
}

type xmlVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type xmlChecksum struct {
	Type  string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type xmlTime struct {
	File  int64 `xml:"file,attr"`
	Build int64 `xml:"build,attr"`
}

type xmlSize struct {
	Package   int64 `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive   int64 `xml:"archive,attr"`
}

type xmlLocation struct {
	Href string `xml:"href,attr"`
}

func (r *Repo) generatePrimaryXML(distroDir string, packages []*rpm.Artifact) ([]byte, error) {
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Path() < packages[j].Path()
	})

	now := time.Now().Unix()
	var xmlPackages []xmlPkg

	for _, pkg := range packages {
		sums, err := fileutil.CalculateChecksums(pkg.Path())
		if err != nil {
			return nil, fmt.Errorf("failed to checksum %s: %w", pkg.Path(), err)
		}

		href, err := filepath.Rel(distroDir, pkg.Path())
		if err != nil {
			href = filepath.Base(pkg.Path())
		}

		xmlPackages = append(xmlPackages, xmlPkg{
			Type: "rpm",
			Name: pkg.PackageName(),
			Arch: pkg.Arch(),
			Version: xmlVersion{
				Epoch: "0",
				Ver:   pkg.PackageVersion(),
				Rel:   pkg.Release(),
			},
			Checksum: xmlChecksum{
				Type:  "sha256",
				Pkgid: "YES",
				Value: sums.SHA256,
			},
			Time: xmlTime{
				File:  now,
				Build: now,
			},
			Size: xmlSize{
				Package:   sums.Size,
				Installed: sums.Size,
				Archive:   sums.Size,
			},
			Location: xmlLocation{
				Href: filepath.ToSlash(href),
			},
		})
	}

	meta := metadata{
		Xmlns:         "http://linux.duke.edu/metadata/common",
		XmlnsRpm:      "http://linux.duke.edu/metadata/rpm",
		PackagesCount: len(xmlPackages),
		Packages:      xmlPackages,
	}

	xmlBytes, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), xmlBytes...), nil
}

type repomd struct {
	XMLName  xml.Name     `xml:"repomd"`
	Xmlns    string       `xml:"xmlns,attr"`
	XmlnsRpm string       `xml:"xmlns:rpm,attr"`
	Revision int64        `xml:"revision"`
	Data     []repomdData `xml:"data"`
}

type repomdData struct {
	Type         string         `xml:"type,attr"`
	Checksum     repomdChecksum `xml:"checksum"`
	OpenChecksum repomdChecksum `xml:"open-checksum"`
	Location     xmlLocation    `xml:"location"`
	Timestamp    int64          `xml:"timestamp"`
	Size         int64          `xml:"size"`
	OpenSize     int64          `xml:"open-size"`
}

type repomdChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

func generateRepomdXML(primaryName, checksum, openChecksum string, size, openSize int64) ([]byte, error) {
	now := time.Now().Unix()

	doc := repomd{
		Xmlns:    "http://linux.duke.edu/metadata/repo",
		XmlnsRpm: "http://linux.duke.edu/metadata/rpm",
		Revision: now,
		Data: []repomdData{
			{
				Type:         "primary",
				Checksum:     repomdChecksum{Type: "sha256", Value: checksum},
				OpenChecksum: repomdChecksum{Type: "sha256", Value: openChecksum},
				Location:     xmlLocation{Href: "repodata/" + primaryName},
				Timestamp:    now,
				Size:         size,
				OpenSize:     openSize,
			},
		},
	}

	xmlBytes, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), xmlBytes...), nil
}
