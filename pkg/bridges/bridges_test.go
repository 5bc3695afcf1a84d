package bridges

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/meshchurn/pkg/topology"
)

func build(t *testing.T, vertices []string, pairs ...[2]string) *topology.Graph {
	t.Helper()
	edges := make([]topology.Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = topology.Edge{Src: p[0], Dst: p[1]}
	}
	g, err := topology.Build(vertices, edges)
	require.NoError(t, err)
	return g
}

func keys(edges []topology.Edge) []topology.EdgeKey {
	out := make([]topology.EdgeKey, len(edges))
	for i, e := range edges {
		out[i] = e.Key()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// bruteForce removes each edge in turn and checks connectivity.
func bruteForce(t *testing.T, g *topology.Graph) []topology.Edge {
	t.Helper()
	var out []topology.Edge
	for _, e := range g.Edges() {
		c := g.Copy()
		require.NoError(t, c.RemoveEdge(e.Src, e.Dst))
		if !c.IsConnected() {
			out = append(out, e)
		}
	}
	return out
}

// randomConnected builds a random tree over n vertices and sprinkles extra
// links over it with probability p.
func randomConnected(seed uint64, n int, p float64) (*topology.Graph, error) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	g := topology.NewGraph()
	for i := 0; i < n; i++ {
		if err := g.AddVertex(fmt.Sprintf("v%d", i), nil); err != nil {
			return nil, err
		}
	}
	for i := 1; i < n; i++ {
		j := r.IntN(i)
		if err := g.AddEdge(fmt.Sprintf("v%d", i), fmt.Sprintf("v%d", j), topology.DefaultQuality); err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			u, v := fmt.Sprintf("v%d", i), fmt.Sprintf("v%d", j)
			if !g.HasEdge(u, v) && r.Float64() < p {
				if err := g.AddEdge(u, v, 1+r.Float64()); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

func TestFind_EmptyAndSingle(t *testing.T) {
	found, err := Find(topology.NewGraph())
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = Find(build(t, []string{"a"}))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFind_SingleEdge(t *testing.T) {
	g := build(t, nil, [2]string{"a", "b"})

	found, err := Find(g)
	require.NoError(t, err)
	assert.Equal(t, []topology.Edge{{Src: "a", Dst: "b", Quality: topology.DefaultQuality}}, found)
}

func TestFind_TreeIsAllBridges(t *testing.T) {
	// A star with a tail: every link of a tree is a bridge.
	g := build(t, nil,
		[2]string{"hub", "a"}, [2]string{"hub", "b"}, [2]string{"hub", "c"},
		[2]string{"c", "d"}, [2]string{"d", "e"},
	)

	found, err := Find(g)
	require.NoError(t, err)
	assert.Equal(t, g.Edges(), found)
}

func TestFind_CycleHasNoBridges(t *testing.T) {
	for n := 3; n <= 8; n++ {
		t.Run(fmt.Sprintf("C%d", n), func(t *testing.T) {
			var pairs [][2]string
			for i := 0; i < n; i++ {
				pairs = append(pairs, [2]string{fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", (i+1)%n)})
			}
			found, err := Find(build(t, nil, pairs...))
			require.NoError(t, err)
			assert.Empty(t, found)
		})
	}
}

func TestFind_TrianglesJoinedByLink(t *testing.T) {
	g := build(t, nil,
		[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"},
		[2]string{"c", "d"},
		[2]string{"d", "e"}, [2]string{"e", "f"}, [2]string{"f", "d"},
		[2]string{"f", "g"},
	)

	found, err := Find(g)
	require.NoError(t, err)
	assert.Equal(t, []topology.EdgeKey{{A: "c", B: "d"}, {A: "f", B: "g"}}, keys(found))
}

func TestFind_CrossLinkToLaterSubtree(t *testing.T) {
	// Root r with two branches tied together at the leaves; only the
	// pendant link is a bridge.
	g := build(t, []string{"r", "a", "b", "c", "d", "p"},
		[2]string{"r", "a"}, [2]string{"a", "b"},
		[2]string{"r", "c"}, [2]string{"c", "d"},
		[2]string{"b", "d"},
		[2]string{"d", "p"},
	)

	found, err := Find(g)
	require.NoError(t, err)
	assert.Equal(t, []topology.EdgeKey{{A: "d", B: "p"}}, keys(found))
}

func TestFind_Disconnected(t *testing.T) {
	g := build(t, nil, [2]string{"a", "b"}, [2]string{"c", "d"})

	_, err := Find(g)
	assert.ErrorIs(t, err, topology.ErrDisconnected)
}

func TestFind_DoesNotMutate(t *testing.T) {
	g := build(t, nil, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"}, [2]string{"c", "d"})
	before := g.Edges()

	_, err := Find(g)
	require.NoError(t, err)
	assert.Equal(t, before, g.Edges())
}

func TestEligible(t *testing.T) {
	g := build(t, nil,
		[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"},
		[2]string{"c", "d"},
	)

	eligible, err := Eligible(g)
	require.NoError(t, err)
	assert.Equal(t, []topology.EdgeKey{{A: "a", B: "b"}, {A: "a", B: "c"}, {A: "b", B: "c"}}, keys(eligible))
}

func TestNumberDetectsCycleInTree(t *testing.T) {
	triangle := build(t, nil, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"})

	f := newFinder(triangle, triangle)
	assert.ErrorIs(t, f.number(0), ErrCycleInTree)
}

func TestNumberIsPreOrder(t *testing.T) {
	tree := build(t, []string{"r", "a", "b", "c"},
		[2]string{"r", "a"}, [2]string{"a", "b"}, [2]string{"r", "c"},
	)

	f := newFinder(tree, tree)
	require.NoError(t, f.number(0))
	// r, then the a-branch fully, then c.
	assert.Equal(t, []int{0, 1, 2, 3}, f.order)
	assert.Equal(t, []int{-1, 0, 1, 0}, f.parent)
}

func TestFind_MatchesBruteForce(t *testing.T) {
	for seed := uint64(0); seed < 200; seed++ {
		n := 1 + int(seed%12)
		p := []float64{0, 0.1, 0.25, 0.5}[seed%4]
		g, err := randomConnected(seed, n, p)
		require.NoError(t, err)

		found, err := Find(g)
		require.NoError(t, err)
		assert.Equal(t, keys(bruteForce(t, g)), keys(found), "seed %d n %d p %v", seed, n, p)
	}
}

func TestFind_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("removing a bridge disconnects, removing anything else does not", prop.ForAll(
		func(seed uint64, n int, density float64) bool {
			g, err := randomConnected(seed, n, density)
			if err != nil {
				return false
			}
			found, err := Find(g)
			if err != nil {
				return false
			}
			isBridge := make(map[topology.EdgeKey]bool)
			for _, e := range found {
				isBridge[e.Key()] = true
			}
			for _, e := range g.Edges() {
				c := g.Copy()
				if err := c.RemoveEdge(e.Src, e.Dst); err != nil {
					return false
				}
				if c.IsConnected() == isBridge[e.Key()] {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(1, 12),
		gen.Float64Range(0, 0.6),
	))

	properties.Property("a tree has every edge as a bridge", prop.ForAll(
		func(seed uint64, n int) bool {
			g, err := randomConnected(seed, n, 0)
			if err != nil {
				return false
			}
			found, err := Find(g)
			return err == nil && len(found) == n-1
		},
		gen.UInt64(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

func BenchmarkFind(b *testing.B) {
	g, err := randomConnected(42, 2000, 0.002)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Find(g); err != nil {
			b.Fatal(err)
		}
	}
}
