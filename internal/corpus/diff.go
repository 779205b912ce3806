package corpus

import "sort"

// Diff partitions the current corpus against a prior hash map.
type Diff struct {
	// Added paths were absent from the prior map.
	Added []string
	// Modified paths exist in both but with differing content hashes.
	Modified []string
	// Deleted paths were in the prior map but are gone from the corpus.
	Deleted []string
}

// Empty reports whether no changes were detected.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}

// Total returns the number of changed paths.
func (d Diff) Total() int {
	return len(d.Added) + len(d.Modified) + len(d.Deleted)
}

// ComputeDiff compares current documents against previously recorded file
// hashes. Hashing is content-addressed, so metadata-only changes do not
// appear in the diff. Two documents with identical content but different
// paths remain distinct entries.
func ComputeDiff(current []Document, previous map[string]string) Diff {
	var diff Diff

	seen := make(map[string]struct{}, len(current))
	for _, doc := range current {
		seen[doc.Path] = struct{}{}
		prevHash, ok := previous[doc.Path]
		switch {
		case !ok:
			diff.Added = append(diff.Added, doc.Path)
		case prevHash != doc.ContentHash:
			diff.Modified = append(diff.Modified, doc.Path)
		}
	}

	for path := range previous {
		if _, ok := seen[path]; !ok {
			diff.Deleted = append(diff.Deleted, path)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Modified)
	sort.Strings(diff.Deleted)
	return diff
}
