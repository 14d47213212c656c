// ABOUTME: Tree path helpers and the unit states indexed under each path
// ABOUTME: Anchors are rooted at T and extended one segment per path component

package catalog

import (
	"github.com/nainya/howcatalog/pkg/substrate"
)

// TreeRoot is the first component of every tree anchor path.
const TreeRoot = "T"

// States a unit is indexed in
const (
	StartState = "define"
	AliveState = "_alive"
)

// UnitsAnchor is the collection anchor every unit is indexed under.
func UnitsAnchor() substrate.Path {
	return substrate.NewPath("units")
}

// TreePaths derives the anchor paths of a node with the given parents
// and own segment. Each parent yields [T, parent components..., segment];
// no parents yields [T, segment]. An empty segment is omitted. The
// result is never empty and is not deduplicated.
func TreePaths(parents []string, segment string) []substrate.Path {
	paths := make([]substrate.Path, 0, max(len(parents), 1))
	for _, parent := range parents {
		p := substrate.NewPath(TreeRoot).Append(substrate.PathFromString(parent)...)
		if segment != "" {
			p = p.Append(segment)
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		p := substrate.NewPath(TreeRoot)
		if segment != "" {
			p = p.Append(segment)
		}
		paths = append(paths, p)
	}
	return paths
}

// TreePath is the anchor of a "."-separated unit path such as
// "hc_system.conductor".
func TreePath(path string) substrate.Path {
	return substrate.NewPath(TreeRoot).Append(substrate.PathFromString(path)...)
}
