package monitor

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ChangeSet is the result of comparing two snapshots. the json field
// names are the artifact contract the dashboard reads.
type ChangeSet struct {
	HasChanges bool      `json:"has_changes"`
	Entries    []string  `json:"changes_detected"`
	ObservedAt time.Time `json:"timestamp"`
}

func (c *ChangeSet) add(entry string) {
	c.Entries = append(c.Entries, entry)
	c.HasChanges = true
}

func signedComma(n int64) string {
	if n >= 0 {
		return "+" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}

// Detect structurally compares the previous persisted snapshot against a
// newly acquired one. a nil previous means this is the first observation
// for the handle. the comparison order is fixed and determines descriptor
// ordering: followers, following, posts, bio, display name, privacy.
// Detect cannot fail; HasChanges is true exactly when Entries is nonempty.
func Detect(previous *Snapshot, current Snapshot) ChangeSet {
	changes := ChangeSet{ObservedAt: current.ObservedAt}

	if previous == nil {
		changes.add("First time monitoring this user")
		return changes
	}

	numeric := []struct {
		label    string
		old, new int64
	}{
		{"Followers", previous.Followers, current.Followers},
		{"Following", previous.Following, current.Following},
		{"Posts", previous.Posts, current.Posts},
	}
	for _, field := range numeric {
		if field.new == field.old {
			continue
		}
		changes.add(fmt.Sprintf(
			"%s: %s → %s (%s)",
			field.label,
			humanize.Comma(field.old),
			humanize.Comma(field.new),
			signedComma(field.new-field.old),
		))
	}

	// text fields compare on equality only, the content is not diffed
	if current.Biography != previous.Biography {
		changes.add("Bio changed")
	}
	if current.FullName != previous.FullName {
		changes.add("Display name changed")
	}

	if current.IsPrivate != previous.IsPrivate {
		status := "public"
		if current.IsPrivate {
			status = "private"
		}
		changes.add(fmt.Sprintf("Account is now %s", status))
	}

	return changes
}
