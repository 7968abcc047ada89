package artifact

import (
	"fmt"

	"github.com/dcaro/repoman/internal/fileutil"
	"github.com/dcaro/repoman/internal/models"
)

// File carries the pieces every artifact family shares: the current path, the
// content-identity key and the lazily computed checksum. Families embed it
// and supply the identity derivation on top.
type File struct {
	path      string
	contentID string
	checksum  string
}

// NewFile stats path and derives its content-identity key: the inode number
// where the filesystem has one, the sha256 of the content otherwise.
func NewFile(path string) (File, error) {
	f := File{path: path}

	if ino, ok := fileutil.Inode(path); ok {
		f.contentID = fmt.Sprintf("ino:%d", ino)
		return f, nil
	}

	sums, err := fileutil.CalculateChecksums(path)
	if err != nil {
		return File{}, &models.RepoError{
			Type:     models.ErrMalformedPath,
			Artifact: path,
			Err:      fmt.Errorf("cannot derive content identity: %w", err),
		}
	}
	f.contentID = "sha256:" + sums.SHA256
	f.checksum = sums.MD5
	return f, nil
}

// Path is the current location on disk.
func (f *File) Path() string {
	return f.path
}

// SetPath records a move or rename.
func (f *File) SetPath(path string) {
	f.path = path
}

// ContentID is the opaque shared-content key.
func (f *File) ContentID() string {
	return f.contentID
}

// Checksum computes the content md5 on first use and caches it. The cache is
// only dropped by an explicit Recompute.
func (f *File) Checksum() (string, error) {
	if f.checksum != "" {
		return f.checksum, nil
	}

	sums, err := fileutil.CalculateChecksums(f.path)
	if err != nil {
		return "", err
	}
	f.checksum = sums.MD5
	return f.checksum, nil
}

// Recompute invalidates the cached checksum and reads the file again.
func (f *File) Recompute() (string, error) {
	f.checksum = ""
	return f.Checksum()
}

// RestoreChecksum seeds the checksum cache from a persisted index so reloads
// do not reread every file.
func (f *File) RestoreChecksum(sum string) {
	f.checksum = sum
}
