package artifact

import "sort"

// FileSet reports the outcome of a materialization as path sets relative to
// the deployment tree.
//
// The net effect invariant: archive-declared paths hold exactly what the
// archive contained, every other pre-existing path is untouched.
type FileSet struct {
	// Applied lists the files written from the bundle, sorted.
	Applied []string

	// Preserved lists the files that existed before materialization and
	// were not part of the bundle, sorted. Typically runtime secrets and
	// local overrides.
	Preserved []string

	// CleanupErrs collects best-effort cleanup failures (consumed bundle,
	// emptied staging directory). Non-fatal; callers report them.
	CleanupErrs []error
}

// preservedPaths computes tree-before minus archive manifest.
func preservedPaths(before map[string]struct{}, applied []string) []string {
	archive := make(map[string]struct{}, len(applied))
	for _, rel := range applied {
		archive[rel] = struct{}{}
	}

	preserved := make([]string, 0, len(before))

	for rel := range before {
		if _, ok := archive[rel]; !ok {
			preserved = append(preserved, rel)
		}
	}

	sort.Strings(preserved)

	return preserved
}
