package catalog

import (
	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/version"
)

// VersionBucket holds every content-identity group for one (name, version)
// pair. A bucket is never kept around empty: once its last group goes, the
// parent index drops the bucket too.
type VersionBucket struct {
	version version.Key
	order   []string
	groups  map[string]*InodeGroup
}

// NewVersionBucket creates an empty bucket for one version key.
func NewVersionBucket(ver version.Key) *VersionBucket {
	return &VersionBucket{
		version: ver,
		groups:  make(map[string]*InodeGroup),
	}
}

// Version is the bucket's version key.
func (b *VersionBucket) Version() version.Key {
	return b.version
}

// AddArtifact files the artifact under its content-identity group, creating
// the group on first sight. Reports whether a new group was created.
func (b *VersionBucket) AddArtifact(a artifact.Artifact) bool {
	id := a.ContentID()
	group, ok := b.groups[id]
	if !ok {
		group = NewInodeGroup(id)
		b.groups[id] = group
		b.order = append(b.order, id)
	}
	group.Add(a)
	return !ok
}

// Group returns the group for a content-identity key, if present.
func (b *VersionBucket) Group(id string) (*InodeGroup, bool) {
	g, ok := b.groups[id]
	return g, ok
}

// Groups returns the groups in insertion order.
func (b *VersionBucket) Groups() []*InodeGroup {
	out := make([]*InodeGroup, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.groups[id])
	}
	return out
}

// Empty reports whether the bucket holds no groups.
func (b *VersionBucket) Empty() bool {
	return len(b.groups) == 0
}

// DeleteGroup deletes the named group's files and drops the group from the
// bucket. Unknown keys are a no-op. On a removal failure the group stays in
// the bucket so a retry can finish the job.
func (b *VersionBucket) DeleteGroup(id string, dryRun bool) error {
	group, ok := b.groups[id]
	if !ok {
		return nil
	}

	if err := group.Delete(dryRun); err != nil {
		return err
	}

	if !dryRun {
		b.remove(id)
	}
	return nil
}

// DeleteAll deletes every group in the bucket and returns the members of the
// groups that were fully removed (under dryRun, the ones that would have
// been). A failing group aborts its own deletion and is left out of the
// report; the remaining groups are still attempted.
func (b *VersionBucket) DeleteAll(dryRun bool) ([]artifact.Artifact, error) {
	var removed []artifact.Artifact
	var firstErr error
	for _, id := range append([]string(nil), b.order...) {
		members := b.groups[id].Filter(nil)
		if err := b.DeleteGroup(id, dryRun); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, members...)
	}
	return removed, firstErr
}

// Collect flattens all groups' filtered members into one sequence, stable by
// group insertion order then member order.
func (b *VersionBucket) Collect(pred Predicate) []artifact.Artifact {
	var out []artifact.Artifact
	for _, id := range b.order {
		out = append(out, b.groups[id].Filter(pred)...)
	}
	return out
}

func (b *VersionBucket) remove(id string) {
	delete(b.groups, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
