package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/howcatalog/pkg/substrate"
)

func TestTreePaths(t *testing.T) {
	tests := []struct {
		name    string
		parents []string
		segment string
		want    []substrate.Path
	}{
		{
			name:    "root adjacent",
			segment: "conductor",
			want:    []substrate.Path{{"T", "conductor"}},
		},
		{
			name:    "single parent",
			parents: []string{"hc_system.conductor.api"},
			segment: "app",
			want:    []substrate.Path{{"T", "hc_system", "conductor", "api", "app"}},
		},
		{
			name:    "several parents",
			parents: []string{"a.b", "c"},
			segment: "x",
			want:    []substrate.Path{{"T", "a", "b", "x"}, {"T", "c", "x"}},
		},
		{
			name:    "duplicate parents are kept",
			parents: []string{"a", "a"},
			segment: "x",
			want:    []substrate.Path{{"T", "a", "x"}, {"T", "a", "x"}},
		},
		{
			name: "no parents no segment",
			want: []substrate.Path{{"T"}},
		},
		{
			name:    "empty segment omitted",
			parents: []string{"a"},
			want:    []substrate.Path{{"T", "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TreePaths(tt.parents, tt.segment)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTreePathsShape(t *testing.T) {
	parentSets := [][]string{nil, {"a"}, {"a.b", "c.d.e", "f"}, {"", "x"}}
	for _, parents := range parentSets {
		paths := TreePaths(parents, "seg")
		require.Len(t, paths, max(len(parents), 1))
		for _, p := range paths {
			assert.Equal(t, TreeRoot, p[0])
			assert.Equal(t, "seg", p.Leaf())
		}
	}
}

func TestCanonicalPath(t *testing.T) {
	u := Unit{Parents: []string{"zeta.api", "alpha.api"}, PathAbbreviation: "app"}
	assert.Equal(t, substrate.Path{"T", "alpha", "api", "app"}, u.CanonicalPath())
	assert.Equal(t, "alpha.api.app", u.PathString())

	root := Unit{PathAbbreviation: "conductor"}
	assert.Equal(t, "conductor", root.PathString())

	assert.Equal(t, "", Unit{}.PathString())
}

func TestTagRoundtrip(t *testing.T) {
	assert.Equal(t, "define-vidx1", Tag("define", "vidx1"))

	state, version := ParseTag(Tag(AliveState, "v2-beta"))
	assert.Equal(t, AliveState, state)
	assert.Equal(t, "v2-beta", version)

	state, version = ParseTag("define")
	assert.Equal(t, "define", state)
	assert.Empty(t, version)
}

func TestTreePath(t *testing.T) {
	assert.Equal(t, substrate.Path{"T", "hc_system", "conductor"}, TreePath("hc_system.conductor"))
	assert.Equal(t, substrate.Path{"T"}, TreePath(""))
}
