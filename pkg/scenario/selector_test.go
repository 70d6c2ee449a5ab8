package scenario

import (
	"errors"
	"math"
	"testing"

	"github.com/user/loadsim/pkg/adapters/logger"
	"github.com/user/loadsim/pkg/depgraph"
	"github.com/user/loadsim/pkg/netrecord"
	"github.com/user/loadsim/pkg/simulator"
)

func rec(id, url string, rt netrecord.ResourceType, p netrecord.Priority, start, end float64) netrecord.Record {
	return netrecord.Record{
		RequestID:    id,
		URL:          url,
		StartTime:    start,
		EndTime:      end,
		Finished:     true,
		Priority:     p,
		ResourceType: rt,
		TransferSize: 20000,
		Protocol:     "http/1.1",
	}
}

// pageGraph is a document loading a stylesheet, a script, a hero image, an
// analytics beacon that never finished and a late prefetch.
func pageGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	doc := rec("doc", "https://example.com/", netrecord.ResourceDocument, netrecord.PriorityVeryHigh, 0, 0.3)
	css := rec("css", "https://example.com/a.css", netrecord.ResourceStylesheet, netrecord.PriorityVeryHigh, 0.31, 0.5)
	css.Initiator.RequestID = "doc"
	js := rec("js", "https://example.com/app.js", netrecord.ResourceScript, netrecord.PriorityHigh, 0.32, 0.6)
	js.Initiator.RequestID = "doc"
	img := rec("img", "https://example.com/hero.jpg", netrecord.ResourceImage, netrecord.PriorityLow, 0.4, 0.9)
	img.Initiator.URL = "https://example.com/a.css"
	beacon := rec("beacon", "https://stats.test/collect", netrecord.ResourcePing, netrecord.PriorityVeryLow, 0.35, 0)
	beacon.Finished = false
	beacon.Initiator.TaskID = "eval"
	late := rec("late", "https://example.com/next", netrecord.ResourceOther, netrecord.PriorityLow, 2.0, 2.1)
	tasks := []netrecord.Task{{ID: "eval", StartTime: 0.61, Duration: 0.1, Name: "EvaluateScript", URL: "https://example.com/app.js"}}

	g, err := depgraph.NewBuilder(logger.NewNoop()).Build("page", []netrecord.Record{doc, css, js, img, beacon, late}, tasks)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func keys(g *depgraph.Graph) map[string]bool {
	out := make(map[string]bool)
	for _, n := range g.Nodes() {
		out[n.Key] = true
	}
	return out
}

func TestDerive_Filters(t *testing.T) {
	g := pageGraph(t)
	tests := []struct {
		metric      Metric
		pessimistic []string
		optimistic  []string
	}{
		{FirstContentfulPaint,
			[]string{"root", "doc", "css", "js", "img", "beacon", "eval"},
			[]string{"root", "doc", "css", "js", "eval"}},
		{LargestContentfulPaint,
			[]string{"root", "doc", "css", "js", "img", "beacon", "eval"},
			[]string{"root", "doc", "css", "js", "img", "eval"}},
		{Interactive,
			[]string{"root", "doc", "css", "js", "img", "beacon", "eval"},
			[]string{"root", "doc", "css", "js", "img", "eval"}},
	}
	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			v, err := NewSelector(logger.NewNoop()).Derive(g, 1_000_000, tt.metric)
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			check := func(variant Variant, want []string) {
				t.Helper()
				got := keys(variant.Graph)
				if len(got) != len(want) {
					t.Errorf("%s kept %v, want %v", variant.Name(), got, want)
				}
				for _, k := range want {
					if !got[k] {
						t.Errorf("%s is missing %s", variant.Name(), k)
					}
				}
				if variant.Excluded != g.Len()-len(want) {
					t.Errorf("%s Excluded = %d, want %d", variant.Name(), variant.Excluded, g.Len()-len(want))
				}
				if err := variant.Graph.Validate(); err != nil {
					t.Errorf("%s Validate() error = %v", variant.Name(), err)
				}
			}
			check(v.Pessimistic, tt.pessimistic)
			check(v.Optimistic, tt.optimistic)

			if v.Pessimistic.Name() != "pessimistic-"+tt.metric.Name() || v.Optimistic.Name() != "optimistic-"+tt.metric.Name() {
				t.Errorf("names = %s, %s", v.Pessimistic.Name(), v.Optimistic.Name())
			}
		})
	}
}

func TestDerive_SplicesExcludedNodes(t *testing.T) {
	g := pageGraph(t)
	// The optimistic FCP variant drops img and the beacon; eval keeps waiting
	// on the script it evaluates.
	v, err := NewSelector(logger.NewNoop()).Derive(g, 800_000, FirstContentfulPaint)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	opt := v.Optimistic.Graph
	eval, ok := opt.FindByKey("eval")
	if !ok {
		t.Fatal("eval missing from optimistic variant")
	}
	deps := eval.Dependencies()
	if len(deps) != 1 || opt.Node(deps[0]).Key != "js" {
		t.Errorf("eval dependencies = %v, want js", deps)
	}
	if opt.Node(opt.MainDocument()).Key != "doc" {
		t.Errorf("main document = %s, want doc", opt.Node(opt.MainDocument()).Key)
	}
}

func TestDerive_ReconnectsToNearestRetainedAncestor(t *testing.T) {
	g := depgraph.New("chain")
	a := g.AddNode(depgraph.NewNetworkNode(rec("a", "https://x.test/a", netrecord.ResourceDocument, netrecord.PriorityVeryHigh, 0, 0.1), 1))
	b := g.AddNode(depgraph.NewNetworkNode(rec("b", "https://x.test/b", netrecord.ResourceImage, netrecord.PriorityLow, 0.1, 0.2), 0.25))
	c := g.AddNode(depgraph.NewNetworkNode(rec("c", "https://x.test/c", netrecord.ResourceImage, netrecord.PriorityLow, 0.2, 0.3), 0.25))
	d := g.AddNode(depgraph.NewCPUNode(netrecord.Task{ID: "d", StartTime: 0.3, Duration: 0.1}))
	g.AddEdge(g.Root(), a)
	g.AddEdge(a, b)
	g.AddEdge(b, c)
	g.AddEdge(c, d)

	v, err := NewSelector(logger.NewNoop()).Derive(g, 1_000_000, FirstContentfulPaint)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	opt := v.Optimistic.Graph
	if opt.Len() != 3 {
		t.Fatalf("optimistic Len() = %d, want root, a, d", opt.Len())
	}
	nd, _ := opt.FindByKey("d")
	if deps := nd.Dependencies(); len(deps) != 1 || opt.Node(deps[0]).Key != "a" {
		t.Errorf("d dependencies = %v, want a", deps)
	}
}

func TestDerive_ClonesDoNotAliasSource(t *testing.T) {
	g := pageGraph(t)
	before := len(g.Node(g.Root()).Dependents())
	v, err := NewSelector(logger.NewNoop()).Derive(g, 1_000_000, Interactive)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	p := v.Pessimistic.Graph
	p.AddEdge(p.Root(), p.AddNode(depgraph.NewCPUNode(netrecord.Task{ID: "extra"})))
	if len(g.Node(g.Root()).Dependents()) != before {
		t.Error("editing a variant changed the source graph")
	}
	docSrc, _ := g.FindByKey("doc")
	docVar, _ := p.FindByKey("doc")
	if docSrc == docVar {
		t.Error("variant shares node pointers with the source graph")
	}
}

func TestDerive_InvalidInput(t *testing.T) {
	g := pageGraph(t)
	broken := depgraph.New("broken")
	broken.AddNode(depgraph.NewCPUNode(netrecord.Task{ID: "orphan"}))

	tests := []struct {
		name    string
		graph   *depgraph.Graph
		poi     float64
		metric  Metric
		wantErr error
	}{
		{"negative point of interest", g, -1, Interactive, ErrInvalidPointOfInterest},
		{"NaN point of interest", g, math.NaN(), Interactive, ErrInvalidPointOfInterest},
		{"nil metric", g, 1000, nil, ErrNoMetric},
		{"orphan node", broken, 1000, Interactive, depgraph.ErrOrphan},
	}
	s := NewSelector(logger.NewNoop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Derive(tt.graph, tt.poi, tt.metric)
			var inputErr *depgraph.InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("error = %v, want *depgraph.InputError", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// warmPollGraph has an origin whose only reused-connection record is a poll
// that never finished.
func warmPollGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	poll := rec("poll", "https://a.test/poll", netrecord.ResourceXHR, netrecord.PriorityHigh, 0, 0)
	poll.Finished = false
	poll.ConnectionReused = true
	img := rec("img", "https://a.test/img.png", netrecord.ResourceImage, netrecord.PriorityLow, 0.05, 0.2)
	g, err := depgraph.NewBuilder(logger.NewNoop()).Build("poll", []netrecord.Record{poll, img}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestDerive_ScenarioBounding(t *testing.T) {
	presets := []simulator.Settings{
		{RTTMs: 150, ThroughputKbps: 1638.4, CPUSlowdownMultiplier: 4, MaxConnectionsPerOrigin: 6},
		{RTTMs: 40, ThroughputKbps: 10240, CPUSlowdownMultiplier: 1, MaxConnectionsPerOrigin: 6},
		{RTTMs: 300, ThroughputKbps: 700, CPUSlowdownMultiplier: 4, MaxConnectionsPerOrigin: 2},
	}
	graphs := []struct {
		name  string
		build func(*testing.T) *depgraph.Graph
	}{
		{"page", pageGraph},
		{"warm origin dropped from optimistic", warmPollGraph},
	}
	for _, gg := range graphs {
		g := gg.build(t)
		for _, metric := range []Metric{FirstContentfulPaint, LargestContentfulPaint, Interactive} {
			v, err := NewSelector(logger.NewNoop()).Derive(g, 1_000_000, metric)
			if err != nil {
				t.Fatalf("%s: Derive() error = %v", gg.name, err)
			}
			if v.Optimistic.Excluded <= v.Pessimistic.Excluded {
				t.Fatalf("%s %s: optimistic excluded nothing extra", gg.name, metric.Name())
			}
			sim := simulator.New(logger.NewNoop())
			for _, settings := range presets {
				pess, err := sim.Simulate(v.Pessimistic.Graph, settings)
				if err != nil {
					t.Fatalf("Simulate() error = %v", err)
				}
				opt, err := sim.Simulate(v.Optimistic.Graph, settings)
				if err != nil {
					t.Fatalf("Simulate() error = %v", err)
				}
				if pess.TotalMs < opt.TotalMs {
					t.Errorf("%s %s %s: pessimistic %v < optimistic %v", gg.name, metric.Name(), settings, pess.TotalMs, opt.TotalMs)
				}
			}
		}
	}
}

func TestDerive_KeepsWarmOrigins(t *testing.T) {
	g := warmPollGraph(t)
	if !g.IsWarmOrigin("https://a.test:443") {
		t.Fatalf("source warm origins = %v", g.WarmOrigins())
	}
	v, err := NewSelector(logger.NewNoop()).Derive(g, 1_000_000, Interactive)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if _, ok := v.Optimistic.Graph.FindByKey("poll"); ok {
		t.Fatal("optimistic variant kept the unfinished poll")
	}
	for _, variant := range v.All() {
		if !variant.Graph.IsWarmOrigin("https://a.test:443") {
			t.Errorf("%s lost the warm origin", variant.Name())
		}
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in   string
		want Metric
	}{
		{"fcp", FirstContentfulPaint},
		{"LCP", LargestContentfulPaint},
		{"interactive", Interactive},
		{"tti", Interactive},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if err != nil || got.Name() != tt.want.Name() {
			t.Errorf("ParseMetric(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseMetric("speed-index"); err == nil {
		t.Error("ParseMetric accepted an unknown metric")
	}
}
