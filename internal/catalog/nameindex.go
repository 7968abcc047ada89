package catalog

import (
	"sort"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/version"
)

// NameIndex maps version keys to their buckets for one artifact name.
// Ordering for "latest" queries always comes from version.Compare, never from
// insertion order.
type NameIndex struct {
	name    string
	buckets map[string]*VersionBucket
}

// NewNameIndex creates an empty index for one artifact name.
func NewNameIndex(name string) *NameIndex {
	return &NameIndex{
		name:    name,
		buckets: make(map[string]*VersionBucket),
	}
}

// Name is the artifact name this index covers.
func (n *NameIndex) Name() string {
	return n.name
}

// AddArtifact files the artifact under its version bucket. With onlyIfNewer
// set, the artifact is admitted only when it is strictly newer than every
// version already indexed. Reports whether the artifact was admitted.
func (n *NameIndex) AddArtifact(a artifact.Artifact, onlyIfNewer bool) bool {
	ver := a.Version()

	if onlyIfNewer {
		for _, b := range n.buckets {
			if version.Compare(b.Version(), ver) >= 0 {
				return false
			}
		}
	}

	bucket, ok := n.buckets[ver.String()]
	if !ok {
		bucket = NewVersionBucket(ver)
		n.buckets[ver.String()] = bucket
	}
	bucket.AddArtifact(a)
	return true
}

// Bucket returns the bucket for a version key, if present.
func (n *NameIndex) Bucket(ver version.Key) (*VersionBucket, bool) {
	b, ok := n.buckets[ver.String()]
	return b, ok
}

// Versions returns all version keys, newest first.
func (n *NameIndex) Versions() []version.Key {
	keys := make([]version.Key, 0, len(n.buckets))
	for _, b := range n.buckets {
		keys = append(keys, b.Version())
	}
	sort.Slice(keys, func(i, j int) bool {
		return version.Less(keys[j], keys[i])
	})
	return keys
}

// LatestVersions returns the num buckets with the greatest versions, newest
// first. num of zero, or more than the distinct versions held, returns all.
func (n *NameIndex) LatestVersions(num int) []*VersionBucket {
	keys := n.Versions()
	if num > 0 && num < len(keys) {
		keys = keys[:num]
	}

	out := make([]*VersionBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, n.buckets[k.String()])
	}
	return out
}

// Empty reports whether the index holds no versions.
func (n *NameIndex) Empty() bool {
	return len(n.buckets) == 0
}

// DeleteVersion deletes every group in the named bucket and drops the bucket,
// returning the artifacts actually removed. Unknown versions are a no-op. On
// failure the bucket keeps its surviving groups so a retry can finish.
func (n *NameIndex) DeleteVersion(ver version.Key, dryRun bool) ([]artifact.Artifact, error) {
	bucket, ok := n.buckets[ver.String()]
	if !ok {
		return nil, nil
	}

	removed, err := bucket.DeleteAll(dryRun)
	if !dryRun && bucket.Empty() {
		delete(n.buckets, ver.String())
	}
	return removed, err
}

// Collect flattens the filtered artifacts across buckets. A non-zero latestN
// restricts traversal to the newest latestN versions.
func (n *NameIndex) Collect(pred Predicate, latestN int) []artifact.Artifact {
	var out []artifact.Artifact
	for _, bucket := range n.LatestVersions(latestN) {
		out = append(out, bucket.Collect(pred)...)
	}
	return out
}
