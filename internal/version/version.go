// Package version implements the natural ordering used for artifact
// version-release strings, the kind of ordering a package maintainer expects
// when looking at "1.9-1" and "1.10-1".
package version

import (
	"strconv"
	"strings"
)

// Key wraps a raw version-release string ("1.0-2.el7"). Keys are immutable
// values; all ordering goes through Compare.
type Key struct {
	raw string
}

// NewKey wraps a raw version-release string.
func NewKey(raw string) Key {
	return Key{raw: raw}
}

// String returns the raw version-release string.
func (k Key) String() string {
	return k.raw
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to or
// after b. The version part (before the first dash) is compared first, then
// the release part; a missing release compares as the empty string.
func Compare(a, b Key) int {
	aVer, aRel := splitVerRel(a.raw)
	bVer, bRel := splitVerRel(b.raw)

	if res := compareDotted(aVer, bVer); res != 0 {
		return res
	}
	return compareDotted(aRel, bRel)
}

// Less reports whether a sorts strictly before b.
func Less(a, b Key) bool {
	return Compare(a, b) < 0
}

func splitVerRel(full string) (ver, rel string) {
	if idx := strings.Index(full, "-"); idx >= 0 {
		return full[:idx], full[idx+1:]
	}
	return full, ""
}

// compareDotted compares two dotted strings segment by segment. Segments that
// both parse as integers compare numerically, two non-numeric segments compare
// as plain strings, and in a mixed pair the non-numeric side sorts lower (a
// datestamped release outranks a plain distro tag). When one side runs out of
// segments first it sorts lower.
func compareDotted(a, b string) int {
	aSegs := strings.Split(a, ".")
	bSegs := strings.Split(b, ".")

	for i := 0; i < len(aSegs) && i < len(bSegs); i++ {
		if res := compareSegment(aSegs[i], bSegs[i]); res != 0 {
			return res
		}
	}

	switch {
	case len(aSegs) < len(bSegs):
		return -1
	case len(aSegs) > len(bSegs):
		return 1
	}
	return 0
}

func compareSegment(a, b string) int {
	aNum, aErr := strconv.Atoi(a)
	bNum, bErr := strconv.Atoi(b)

	switch {
	case aErr == nil && bErr == nil:
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		}
		return 0
	case aErr == nil:
		return 1
	case bErr == nil:
		return -1
	}

	return strings.Compare(a, b)
}
