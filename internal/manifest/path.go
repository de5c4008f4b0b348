package manifest

import "regexp"

// NotAvailable is the sentinel substituted for absent or malformed values.
const NotAvailable = "N/A"

// lastTwoComponents matches the final two backslash-separated components.
var lastTwoComponents = regexp.MustCompile(`([^\\]+)\\([^\\]+)$`)

// PathComponents holds the last two components of a backslash-delimited path.
type PathComponents struct {
	Parent string
	Leaf   string
}

// Unavailable reports whether p is the sentinel pair.
func (p PathComponents) Unavailable() bool {
	return p.Parent == NotAvailable && p.Leaf == NotAvailable
}

// SplitPath returns the parent and leaf of a backslash-delimited path such as
// `\\fileserver\gis\Roads.gdb\Centerlines`. Empty or single-component
// paths yield ("N/A", "N/A").
func SplitPath(path string) PathComponents {
	m := lastTwoComponents.FindStringSubmatch(path)
	if m == nil {
		return PathComponents{Parent: NotAvailable, Leaf: NotAvailable}
	}
	return PathComponents{Parent: m[1], Leaf: m[2]}
}

// SplitPathPtr is SplitPath for an optional path; nil yields the sentinel.
func SplitPathPtr(path *string) PathComponents {
	if path == nil {
		return PathComponents{Parent: NotAvailable, Leaf: NotAvailable}
	}
	return SplitPath(*path)
}
