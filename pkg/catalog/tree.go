// ABOUTME: Assembles the unit tree by walking tree links from the root anchor
// ABOUTME: Each node carries the units indexed at its path

package catalog

import (
	"context"
	"sort"

	"github.com/nainya/howcatalog/pkg/substrate"
)

// GetTree walks the tree links from the root anchor. Every node lists
// the units indexed at it; children are sorted by segment.
func (c *Catalog) GetTree(ctx context.Context) (root *TreeNode, err error) {
	ctx, done := c.begin(ctx, "GetTree")
	defer done(&err)

	return c.treeNode(ctx, substrate.NewPath(TreeRoot))
}

func (c *Catalog) treeNode(ctx context.Context, p substrate.Path) (*TreeNode, error) {
	units, err := c.unitOutputs(ctx, p.Address())
	if err != nil {
		return nil, err
	}
	node := &TreeNode{
		Path:    p[1:].String(),
		Segment: p.Leaf(),
		Units:   units,
	}

	links, err := c.trees.GetLinks(ctx, p.Address(), substrate.LinkTree, nil)
	if err != nil {
		return nil, err
	}
	segments := make([]string, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		seg := string(l.Tag)
		if _, ok := seen[seg]; ok {
			continue
		}
		seen[seg] = struct{}{}
		segments = append(segments, seg)
	}
	sort.Strings(segments)

	for _, seg := range segments {
		child, err := c.treeNode(ctx, p.Append(seg))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
