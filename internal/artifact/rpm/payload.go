package rpm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dcaro/repoman/internal/fileutil"
	"github.com/sassoftware/go-rpmutils"
	"github.com/sirupsen/logrus"
)

// Upstream archive suffixes worth pulling out of a source RPM payload. "gz"
// is deliberately loose so both .tar.gz and .tgz match.
var archiveSuffixes = []string{"gz", ".zip", ".7z", ".xz", ".bz2"}

// ExtractSources pulls the upstream archives out of a source RPM's payload
// into dstDir, optionally including patch files. Spec files and other
// packaging scaffolding are skipped.
func (a *Artifact) ExtractSources(dstDir string, withPatches bool) error {
	if !a.isSource {
		return fmt.Errorf("%s is not a source package", a)
	}

	fd, err := os.Open(a.Path())
	if err != nil {
		return err
	}
	defer fd.Close()

	// ReadRpm consumes the lead and both headers, leaving the reader at
	// the start of the compressed payload.
	pkg, err := rpmutils.ReadRpm(fd)
	if err != nil {
		return fmt.Errorf("failed to read RPM %s: %w", a.Path(), err)
	}

	compressor := getStringTag(pkg, rpmutils.PAYLOADCOMPRESSOR)
	payload, err := fileutil.Decompressor(compressor, fd)
	if err != nil {
		return fmt.Errorf("cannot read %s payload: %w", compressor, err)
	}

	if err := fileutil.EnsureDir(dstDir); err != nil {
		return err
	}

	return extractCpio(payload, dstDir, withPatches)
}

// extractCpio walks a newc-format cpio stream and writes out the entries
// that look like upstream sources.
func extractCpio(r io.Reader, dstDir string, withPatches bool) error {
	for {
		name, size, err := readCpioHeader(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if name == "TRAILER!!!" {
			return nil
		}

		if wantSource(name, withPatches) {
			dst := filepath.Join(dstDir, filepath.Base(name))
			logrus.Debugf("Extracting %s", dst)
			if err := writeCpioEntry(r, dst, size); err != nil {
				return err
			}
		} else {
			if err := skipPadded(r, size); err != nil {
				return err
			}
			continue
		}

		// Entry data is padded to a 4-byte boundary.
		if err := skip(r, pad4(size)); err != nil {
			return err
		}
	}
}

func wantSource(name string, withPatches bool) bool {
	name = strings.TrimPrefix(name, "./")
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return withPatches && strings.HasSuffix(name, ".patch")
}

// readCpioHeader reads one 110-byte newc header plus the padded filename.
func readCpioHeader(r io.Reader) (name string, size int64, err error) {
	header := make([]byte, 110)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return "", 0, io.EOF
		}
		return "", 0, err
	}

	magic := string(header[0:6])
	if magic != "070701" && magic != "070702" {
		return "", 0, fmt.Errorf("bad cpio magic %q", magic)
	}

	fileSize, err := cpioField(header, 7)
	if err != nil {
		return "", 0, fmt.Errorf("bad cpio filesize: %w", err)
	}
	nameSize, err := cpioField(header, 12)
	if err != nil {
		return "", 0, fmt.Errorf("bad cpio namesize: %w", err)
	}

	// The name is NUL-terminated and padded so that header+name align to
	// four bytes.
	nameBuf := make([]byte, nameSize+pad4(110+nameSize))
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return "", 0, err
	}
	name = strings.TrimRight(string(nameBuf[:nameSize]), "\x00")

	return name, fileSize, nil
}

// cpioField decodes the n-th 8-digit hex field of a newc header. Field 0 is
// the magic, so data fields start at 1.
func cpioField(header []byte, n int) (int64, error) {
	start := 6 + (n-1)*8
	return strconv.ParseInt(string(header[start:start+8]), 16, 64)
}

func writeCpioEntry(r io.Reader, dst string, size int64) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(out, r, size); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func skipPadded(r io.Reader, size int64) error {
	return skip(r, size+pad4(size))
}

func skip(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF && n == 0 {
		return nil
	}
	return err
}

func pad4(n int64) int64 {
	return (4 - n%4) % 4
}
