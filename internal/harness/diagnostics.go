package harness

import "github.com/roach88/capprobe/internal/capability"

// unresolved returns the names that do not resolve against r, in the order
// given. Returns nil when every name resolves.
func unresolved(r capability.Resolver, names []string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := r.Resolve(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// missingDependencies explains a callback failure. It is purely
// informational and never changes the outcome.
func missingDependencies(r capability.Resolver, deps []string) []string {
	return unresolved(r, deps)
}

// missingAliases is checked for every probe, whatever its outcome.
func missingAliases(r capability.Resolver, aliases []string) []string {
	return unresolved(r, aliases)
}
