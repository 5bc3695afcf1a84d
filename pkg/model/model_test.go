package model

import (
	"encoding/json"
	"testing"

	"github.com/ritzau/meshchurn/pkg/simulate"
	"github.com/ritzau/meshchurn/pkg/topology"
)

func sampleGraph(t *testing.T) *topology.Graph {
	t.Helper()
	g := topology.NewGraph()
	if err := g.AddVertex("a", &topology.Coordinates{Lon: 2.1, Lat: 41.4}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"b", "c", "d"} {
		if err := g.AddVertex(id, nil); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "d"}} {
		if err := g.AddEdge(e[0], e[1], 2); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestFromGraph(t *testing.T) {
	g := sampleGraph(t)
	topo := FromGraph(g, []topology.Edge{{Src: "d", Dst: "c"}})

	if len(topo.Nodes) != 4 || len(topo.Links) != 4 {
		t.Fatalf("got %d nodes, %d links", len(topo.Nodes), len(topo.Links))
	}
	if topo.Nodes[0].Lon == nil || *topo.Nodes[0].Lat != 41.4 {
		t.Errorf("coordinates not carried: %+v", topo.Nodes[0])
	}
	if topo.Nodes[1].Lon != nil {
		t.Errorf("unexpected coordinates on b")
	}

	bridges := 0
	for _, l := range topo.Links {
		if l.Bridge {
			bridges++
			if topology.MakeKey(l.Source, l.Target) != topology.MakeKey("c", "d") {
				t.Errorf("wrong link flagged: %+v", l)
			}
		}
	}
	if bridges != 1 {
		t.Errorf("expected 1 bridge, got %d", bridges)
	}
}

func TestTopologyJSONRoundTrip(t *testing.T) {
	g := sampleGraph(t)
	data, err := json.Marshal(FromGraph(g, nil))
	if err != nil {
		t.Fatal(err)
	}

	var topo Topology
	if err := json.Unmarshal(data, &topo); err != nil {
		t.Fatal(err)
	}
	back, err := topo.ToGraph()
	if err != nil {
		t.Fatalf("ToGraph() unexpected error: %v", err)
	}

	if back.Order() != g.Order() || back.Size() != g.Size() {
		t.Errorf("got %v, want %v", back, g)
	}
	if v, _ := back.Vertex("a"); v.Coords == nil || v.Coords.Lon != 2.1 {
		t.Errorf("coordinates lost: %+v", v)
	}
	if q, _ := back.Quality("c", "d"); q != 2 {
		t.Errorf("quality = %v", q)
	}
}

func TestToGraph_RejectsDuplicateLink(t *testing.T) {
	topo := NewTopology()
	topo.AddNode(&Node{ID: "a"})
	topo.AddNode(&Node{ID: "b"})
	topo.AddLink(&Link{Source: "a", Target: "b"})
	topo.AddLink(&Link{Source: "b", Target: "a"})

	if _, err := topo.ToGraph(); err == nil {
		t.Error("expected duplicate link error")
	}
}

func TestEventsFromLog(t *testing.T) {
	log := simulate.Log{
		{Elapsed: 2, Src: "a", Dst: "b"},
		{Elapsed: 1.5, Src: "a", Dst: "b", Quality: 3},
	}

	events := EventsFromLog(log)
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].State != LinkDown || events[0].At != 2 {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].State != LinkUp || events[1].At != 3.5 || events[1].Quality != 3 {
		t.Errorf("second event = %+v", events[1])
	}
}
