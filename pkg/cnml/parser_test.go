package cnml

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ritzau/meshchurn/pkg/config"
	"github.com/ritzau/meshchurn/pkg/topology"
)

// Three working sites in a triangle, a fourth one hanging off c, a planned
// site and an isolated pair. Links are listed on both ends as CNML does.
const sampleCNML = `<?xml version="1.0" encoding="utf-8"?>
<cnml version="0.1">
  <network>
    <zone id="2413" title="Test">
      <node id="10" title="a" lon="2.10" lat="41.40" status="Working">
        <device id="100">
          <radio id="0">
            <interface id="1000" ipv4="172.25.1.1">
              <link linked_node_id="11" link_status="Working"/>
              <link linked_node_id="12" link_status="Working"/>
              <link linked_node_id="30" link_status="Working"/>
            </interface>
          </radio>
          <interface id="1001" ipv4="10.1.1.1">
            <link linked_node_id="13" link_status="Working"/>
          </interface>
        </device>
      </node>
      <node id="11" title="b" lon="2.11" lat="41.41" status="Working">
        <device id="110">
          <interface id="1100" ipv4="172.25.1.2">
            <link linked_node_id="10" link_status="Working"/>
            <link linked_node_id="12" link_status="Working"/>
          </interface>
        </device>
      </node>
      <node id="12" title="c" lon="bogus" lat="41.42" status="Working">
        <device id="120">
          <radio id="0">
            <interface id="1200" ipv4="172.25.1.3">
              <link linked_node_id="10" link_status="Working"/>
              <link linked_node_id="11" link_status="Working"/>
              <link linked_node_id="13" link_status="Working"/>
              <link linked_node_id="13" link_status="Working"/>
            </interface>
          </radio>
        </device>
      </node>
      <node id="13" title="d" status="Working">
        <device id="130">
          <interface id="1300" ipv4="172.25.1.4">
            <link linked_node_id="12" link_status="Working"/>
            <link linked_node_id="11" link_status="Planned"/>
          </interface>
        </device>
      </node>
      <node id="30" title="planned" status="Planned">
        <device id="300">
          <interface id="3000" ipv4="172.25.3.1">
            <link linked_node_id="10" link_status="Working"/>
          </interface>
        </device>
      </node>
      <node id="40" title="island" status="Working">
        <device id="400">
          <interface id="4000" ipv4="172.25.4.1">
            <link linked_node_id="41" link_status="Working"/>
          </interface>
        </device>
      </node>
      <node id="41" title="island2" status="Working"/>
    </zone>
  </network>
</cnml>`

func TestParser_Parse(t *testing.T) {
	g, err := NewParser().Parse([]byte(sampleCNML))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if g.Order() != 4 {
		t.Fatalf("expected the 4-site component, got %v", g)
	}
	for _, id := range []string{"10", "11", "12", "13"} {
		if _, ok := g.Vertex(id); !ok {
			t.Errorf("missing site %s", id)
		}
	}
	if _, ok := g.Vertex("30"); ok {
		t.Error("planned site was imported")
	}

	want := []topology.EdgeKey{
		topology.MakeKey("10", "11"),
		topology.MakeKey("10", "12"),
		topology.MakeKey("11", "12"),
		topology.MakeKey("12", "13"),
	}
	if g.Size() != len(want) {
		t.Errorf("expected %d links, got %d: %v", len(want), g.Size(), g.Edges())
	}
	for _, k := range want {
		if !g.HasEdge(k.A, k.B) {
			t.Errorf("missing link %v", k)
		}
	}
	if q, _ := g.Quality("10", "11"); q != topology.DefaultQuality {
		t.Errorf("quality = %v", q)
	}

	a, _ := g.Vertex("10")
	if a.Coords == nil || a.Coords.Lon != 2.10 || a.Coords.Lat != 41.40 {
		t.Errorf("coordinates of a = %+v", a.Coords)
	}
	c, _ := g.Vertex("12")
	if c.Coords != nil {
		t.Errorf("unparseable coordinates should be dropped, got %+v", c.Coords)
	}
}

func TestParser_NoWorkingNodes(t *testing.T) {
	doc := `<cnml><network><zone><node id="1" status="Planned"/></zone></network></cnml>`
	_, err := NewParser().Parse([]byte(doc))
	if !errors.Is(err, ErrNoWorkingNodes) {
		t.Errorf("expected ErrNoWorkingNodes, got %v", err)
	}
}

func TestParser_Malformed(t *testing.T) {
	_, err := NewParser().Parse([]byte(`<cnml><node id="1" status="Working">`))
	if err == nil {
		t.Error("expected error for truncated document")
	}
}

func TestSource_Load(t *testing.T) {
	client := &MockClient{MockOutput: []byte(sampleCNML)}
	source := &Source{client: client, parser: NewParser()}

	g, err := source.Load(context.Background(), &config.Config{Area: "2413"})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if g.Order() != 4 {
		t.Errorf("got %v", g)
	}
	if len(client.Areas) != 1 || client.Areas[0] != "2413" {
		t.Errorf("fetched areas = %v", client.Areas)
	}
	if source.Name() != "CNML" {
		t.Errorf("Name() = %q", source.Name())
	}
}

func TestSource_LoadFetchError(t *testing.T) {
	boom := errors.New("boom")
	source := &Source{client: &MockClient{MockError: boom}, parser: NewParser()}

	if _, err := source.Load(context.Background(), &config.Config{Area: "1"}); !errors.Is(err, boom) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestHTTPClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cnml/2413/detail":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(sampleCNML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL+"/cnml/", 5*time.Second)
	if got, want := client.URL("2413"), srv.URL+"/cnml/2413/detail"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}

	data, err := client.Fetch(context.Background(), "2413")
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if len(data) != len(sampleCNML) {
		t.Errorf("got %d bytes, want %d", len(data), len(sampleCNML))
	}

	if _, err := client.Fetch(context.Background(), "9999"); err == nil {
		t.Error("expected error for missing area")
	}
}
