package catalog

import (
	"fmt"
	"os"

	"github.com/dcaro/repoman/internal/artifact"
	"github.com/dcaro/repoman/internal/models"
	"github.com/sirupsen/logrus"
)

// Predicate filters artifacts during collection.
type Predicate func(artifact.Artifact) bool

// InodeGroup holds the artifact instances that share one piece of physical
// content (hardlinks or copies of the same file). Retention treats the group
// as one deletable unit, but every member path still has to be unlinked
// individually.
type InodeGroup struct {
	id      string
	members []artifact.Artifact
}

// NewInodeGroup creates an empty group for one content-identity key.
func NewInodeGroup(id string) *InodeGroup {
	return &InodeGroup{id: id}
}

// ID is the content-identity key shared by all members.
func (g *InodeGroup) ID() string {
	return g.id
}

// Add appends an artifact instance. Member order carries no meaning beyond
// being stable.
func (g *InodeGroup) Add(a artifact.Artifact) {
	g.members = append(g.members, a)
}

// Members returns the member list in insertion order.
func (g *InodeGroup) Members() []artifact.Artifact {
	return g.members
}

// Len returns the number of member paths.
func (g *InodeGroup) Len() int {
	return len(g.members)
}

// Filter returns the members satisfying pred, without mutating the group.
func (g *InodeGroup) Filter(pred Predicate) []artifact.Artifact {
	if pred == nil {
		out := make([]artifact.Artifact, len(g.members))
		copy(out, g.members)
		return out
	}

	var out []artifact.Artifact
	for _, a := range g.members {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

// Delete unlinks every member path. A path that is already gone counts as
// removed, so a retention run interrupted halfway can be retried. Any other
// removal failure aborts this group; members not yet reached stay on disk.
// Under dryRun nothing is touched and would-be removals are logged.
func (g *InodeGroup) Delete(dryRun bool) error {
	for _, a := range g.members {
		if dryRun {
			logrus.Infof("NOOP::%s would have been removed", a.Path())
			continue
		}

		err := os.Remove(a.Path())
		if err != nil && !os.IsNotExist(err) {
			return &models.RepoError{
				Type:     models.ErrFileRemoval,
				Artifact: a.Path(),
				Err:      fmt.Errorf("failed to remove: %w", err),
			}
		}
		logrus.Debugf("Removed %s", a.Path())
	}
	return nil
}
